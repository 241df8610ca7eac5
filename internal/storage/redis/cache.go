package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// Cache 封装 Redis 客户端，缓存入站路径上的两类热点查询：
// 地址 → 所有者，所有者 → 会话。
type Cache struct {
	rdb *goredis.Client
}

// NewCache 创建 Redis 缓存客户端
func NewCache(addr, password string, db int) (*Cache, error) {
	rdb := goredis.NewClient(&goredis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 2,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// 测试连接
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &Cache{rdb: rdb}, nil
}

func ownerKey(address string) string { return "alias:owner:" + address }
func chatKey(ownerID int64) string   { return "owner:chat:" + strconv.FormatInt(ownerID, 10) }

// CacheOwner 缓存地址到所有者的解析结果
func (c *Cache) CacheOwner(ctx context.Context, address string, ownerID int64, ttl time.Duration) error {
	return c.rdb.Set(ctx, ownerKey(address), ownerID, ttl).Err()
}

// GetCachedOwner 读取地址的所有者缓存，未命中或无法解析时返回错误
func (c *Cache) GetCachedOwner(ctx context.Context, address string) (int64, error) {
	return c.rdb.Get(ctx, ownerKey(address)).Int64()
}

// InvalidateOwner 使地址的所有者缓存失效（停用地址后调用）
func (c *Cache) InvalidateOwner(ctx context.Context, address string) error {
	return c.rdb.Del(ctx, ownerKey(address)).Err()
}

// CacheChatID 缓存所有者到会话的映射
func (c *Cache) CacheChatID(ctx context.Context, ownerID, chatID int64, ttl time.Duration) error {
	return c.rdb.Set(ctx, chatKey(ownerID), chatID, ttl).Err()
}

// GetCachedChatID 读取所有者的会话缓存
func (c *Cache) GetCachedChatID(ctx context.Context, ownerID int64) (int64, error) {
	return c.rdb.Get(ctx, chatKey(ownerID)).Int64()
}

// Ping 测试 Redis 连接
func (c *Cache) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

// Close 关闭 Redis 连接
func (c *Cache) Close() error {
	return c.rdb.Close()
}
