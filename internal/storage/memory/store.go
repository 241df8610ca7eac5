package memory

import (
	"math/rand"
	"sort"
	"sync"
	"time"

	"mailrelay/backend/internal/domain"
	"mailrelay/backend/internal/storage"
)

// Store 使用内存保存名字池、别名目录与会话映射，主要用于开发验证和测试。
// 所有写操作都在同一把锁内完成，占用事务因此天然原子。
type Store struct {
	mu      sync.RWMutex
	users   map[int64]int64                   // ownerID -> chatID
	pool    map[string]*domain.NamePoolEntry  // name -> entry
	aliases map[string]*domain.Alias          // address -> alias
	random  *rand.Rand                        // 由 mu 保护
}

// NewStore 创建一个内存存储实例。
func NewStore() *Store {
	return &Store{
		users:   make(map[int64]int64),
		pool:    make(map[string]*domain.NamePoolEntry),
		aliases: make(map[string]*domain.Alias),
		random:  rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// UpsertUser 写入或更新所有者的会话映射。
func (s *Store) UpsertUser(ownerID, chatID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.users[ownerID] = chatID
	return nil
}

// GetChatID 返回所有者绑定的会话 ID。
func (s *Store) GetChatID(ownerID int64) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	chatID, ok := s.users[ownerID]
	if !ok {
		return 0, storage.ErrOwnerNotFound
	}
	return chatID, nil
}

// SeedNames 批量写入候选名，已存在的名字静默跳过。
func (s *Store) SeedNames(names []string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	inserted := 0
	for _, name := range names {
		if name == "" {
			continue
		}
		if _, exists := s.pool[name]; exists {
			continue
		}
		s.pool[name] = &domain.NamePoolEntry{Name: name}
		inserted++
	}
	return inserted, nil
}

// PickUnusedName 随机返回一个未使用的名字。
func (s *Store) PickUnusedName() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	unused := make([]string, 0, len(s.pool))
	for name, entry := range s.pool {
		if !entry.Used {
			unused = append(unused, name)
		}
	}
	if len(unused) == 0 {
		return "", storage.ErrPoolEmpty
	}
	return unused[s.random.Intn(len(unused))], nil
}

// CountUnusedNames 返回未使用的名字数量。
func (s *Store) CountUnusedNames() (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, entry := range s.pool {
		if !entry.Used {
			count++
		}
	}
	return count, nil
}

// ClaimAlias 原子地写入别名并占用对应的池条目。
func (s *Store) ClaimAlias(alias *domain.Alias) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.aliases[alias.Address]; exists {
		return storage.ErrClaimConflict
	}

	entry, ok := s.pool[alias.BaseName]
	if !ok || entry.Used {
		return storage.ErrClaimConflict
	}

	stored := *alias
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now()
	}
	s.aliases[stored.Address] = &stored

	usedBy := stored.OwnerID
	usedEmail := stored.Address
	usedAt := stored.CreatedAt
	entry.Used = true
	entry.UsedBy = &usedBy
	entry.UsedEmail = &usedEmail
	entry.UsedAt = &usedAt

	return nil
}

// DeactivateAlias 停用属于指定所有者的地址。
func (s *Store) DeactivateAlias(address string, ownerID int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	alias, ok := s.aliases[address]
	if !ok || alias.OwnerID != ownerID {
		return false, nil
	}
	alias.IsActive = false
	return true, nil
}

// ResolveOwner 仅对激活状态的地址返回所有者。
func (s *Store) ResolveOwner(address string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	alias, ok := s.aliases[address]
	if !ok || !alias.IsActive {
		return 0, storage.ErrAliasNotFound
	}
	return alias.OwnerID, nil
}

// ListAliasesByOwner 按创建时间倒序返回所有者的地址。
func (s *Store) ListAliasesByOwner(ownerID int64, limit int) ([]domain.Alias, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.Alias, 0)
	for _, alias := range s.aliases {
		if alias.OwnerID == ownerID {
			result = append(result, *alias)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.After(result[j].CreatedAt)
		}
		return result[i].Address > result[j].Address
	})

	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

// Close 关闭存储（内存实现无事可做）。
func (s *Store) Close() error { return nil }

// Health 检查存储健康状态。
func (s *Store) Health() error { return nil }
