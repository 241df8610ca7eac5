package hybrid

import (
	"context"
	"fmt"
	"time"

	"mailrelay/backend/internal/domain"
	"mailrelay/backend/internal/storage"
	"mailrelay/backend/internal/storage/redis"
	sqlstore "mailrelay/backend/internal/storage/sql"
)

const (
	ownerCacheTTL = 10 * time.Minute
	chatCacheTTL  = time.Hour
)

// Store 混合存储实现：SQL 落库，Redis 做入站查询的读穿缓存。
// 名字池的占用事务只走 SQL，保证 compare-and-set 的唯一序列化点不变。
type Store struct {
	sql   *sqlstore.Store
	cache *redis.Cache
	ctx   context.Context
}

// NewStore 创建混合存储实例
func NewStore(dbType, dsn, redisAddr, redisPassword string, redisDB int,
	maxOpenConns, maxIdleConns int, connMaxLifetime time.Duration) (*Store, error) {

	dbStore, err := sqlstore.NewStore(dbType, dsn, maxOpenConns, maxIdleConns, connMaxLifetime)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	cache, err := redis.NewCache(redisAddr, redisPassword, redisDB)
	if err != nil {
		dbStore.Close()
		return nil, fmt.Errorf("failed to initialize redis: %w", err)
	}

	return &Store{
		sql:   dbStore,
		cache: cache,
		ctx:   context.Background(),
	}, nil
}

// ========== User Repository ==========

// UpsertUser 写入会话映射并刷新缓存
func (s *Store) UpsertUser(ownerID, chatID int64) error {
	if err := s.sql.UpsertUser(ownerID, chatID); err != nil {
		return err
	}
	s.cache.CacheChatID(s.ctx, ownerID, chatID, chatCacheTTL)
	return nil
}

// GetChatID 返回所有者绑定的会话 ID（读穿缓存）
func (s *Store) GetChatID(ownerID int64) (int64, error) {
	if chatID, err := s.cache.GetCachedChatID(s.ctx, ownerID); err == nil {
		return chatID, nil
	}

	chatID, err := s.sql.GetChatID(ownerID)
	if err != nil {
		return 0, err
	}
	s.cache.CacheChatID(s.ctx, ownerID, chatID, chatCacheTTL)
	return chatID, nil
}

// ========== Name Pool Repository ==========

// SeedNames 批量写入候选名（不缓存）
func (s *Store) SeedNames(names []string) (int, error) {
	return s.sql.SeedNames(names)
}

// PickUnusedName 随机返回一个未使用的名字（不缓存，避免放大竞争窗口）
func (s *Store) PickUnusedName() (string, error) {
	return s.sql.PickUnusedName()
}

// CountUnusedNames 返回未使用的名字数量
func (s *Store) CountUnusedNames() (int, error) {
	return s.sql.CountUnusedNames()
}

// ========== Alias Repository ==========

// ClaimAlias 占用事务只走 SQL
func (s *Store) ClaimAlias(alias *domain.Alias) error {
	return s.sql.ClaimAlias(alias)
}

// DeactivateAlias 停用地址并使其解析缓存失效
func (s *Store) DeactivateAlias(address string, ownerID int64) (bool, error) {
	affected, err := s.sql.DeactivateAlias(address, ownerID)
	if err != nil {
		return false, err
	}
	if affected {
		s.cache.InvalidateOwner(s.ctx, address)
	}
	return affected, nil
}

// ResolveOwner 地址解析（读穿缓存，仅缓存命中结果）
func (s *Store) ResolveOwner(address string) (int64, error) {
	if ownerID, err := s.cache.GetCachedOwner(s.ctx, address); err == nil {
		return ownerID, nil
	}

	ownerID, err := s.sql.ResolveOwner(address)
	if err != nil {
		return 0, err
	}
	s.cache.CacheOwner(s.ctx, address, ownerID, ownerCacheTTL)
	return ownerID, nil
}

// ListAliasesByOwner 列表查询直接走 SQL
func (s *Store) ListAliasesByOwner(ownerID int64, limit int) ([]domain.Alias, error) {
	return s.sql.ListAliasesByOwner(ownerID, limit)
}

// Close 关闭底层连接
func (s *Store) Close() error {
	cacheErr := s.cache.Close()
	if err := s.sql.Close(); err != nil {
		return err
	}
	return cacheErr
}

// Health 检查两个后端的健康状态
func (s *Store) Health() error {
	if err := s.sql.Health(); err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(s.ctx, 3*time.Second)
	defer cancel()
	return s.cache.Ping(ctx)
}

// Cache 暴露底层缓存，供健康检查复用
func (s *Store) Cache() *redis.Cache {
	return s.cache
}

// 编译期断言：混合存储实现完整的 Store 接口
var _ storage.Store = (*Store)(nil)
