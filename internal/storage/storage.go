package storage

import (
	"errors"

	"mailrelay/backend/internal/domain"
)

var (
	// ErrAliasNotFound 地址不存在或已停用
	ErrAliasNotFound = errors.New("alias not found")
	// ErrOwnerNotFound 所有者没有绑定会话
	ErrOwnerNotFound = errors.New("owner not found")
	// ErrPoolEmpty 名字池中没有未使用的条目
	ErrPoolEmpty = errors.New("name pool has no unused entry")
	// ErrClaimConflict 占用事务输给了并发请求：名字已被占用，或生成的地址撞车。
	// 这是预期内的控制流，调用方应换一个后缀重试，而不是当作故障上报。
	ErrClaimConflict = errors.New("claim conflict")
)

// UserRepository 定义所有者与会话映射的存取操作。
type UserRepository interface {
	UpsertUser(ownerID, chatID int64) error
	GetChatID(ownerID int64) (int64, error)
}

// NamePoolRepository 定义名字池的存取操作。
type NamePoolRepository interface {
	// SeedNames 批量写入候选名，已存在的名字静默跳过，返回实际新增数量。
	// 名字应当已由调用方规整（小写、仅字母数字下划线）。
	SeedNames(names []string) (int, error)
	// PickUnusedName 随机返回一个未使用的名字，池耗尽时返回 ErrPoolEmpty。
	PickUnusedName() (string, error)
	CountUnusedNames() (int, error)
}

// AliasRepository 定义别名目录的存取操作。
type AliasRepository interface {
	// ClaimAlias 在一个原子事务内写入别名，并把对应的池条目从未用翻转为已用。
	// 翻转以“仍未使用”为条件（compare-and-set）：条件不满足或地址主键重复时
	// 整个事务回滚并返回 ErrClaimConflict，其余存储故障原样返回。
	ClaimAlias(alias *domain.Alias) error
	// DeactivateAlias 停用属于指定所有者的地址，返回是否命中了记录。
	DeactivateAlias(address string, ownerID int64) (bool, error)
	// ResolveOwner 仅对激活状态的地址返回所有者，否则返回 ErrAliasNotFound。
	ResolveOwner(address string) (int64, error)
	// ListAliasesByOwner 按创建时间倒序返回所有者的地址，最多 limit 条。
	ListAliasesByOwner(ownerID int64, limit int) ([]domain.Alias, error)
}

// Store 定义完整的存储接口。
type Store interface {
	UserRepository
	NamePoolRepository
	AliasRepository

	Close() error
	Health() error
}
