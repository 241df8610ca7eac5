package service

import (
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"mailrelay/backend/internal/domain"
	"mailrelay/backend/internal/monitoring"
	"mailrelay/backend/internal/storage"
)

// ErrPoolExhausted 池中没有可分配的名字，或重试次数内全部撞车。
// 对调用方是终态：自动重试没有意义，需要补充名字后再试。
var ErrPoolExhausted = errors.New("no names available for allocation")

// maxClaimAttempts 同一个基础名字上尝试不同后缀的次数上限
const maxClaimAttempts = 30

// AllocatorService 负责把池中的名字变成唯一的邮箱地址。
type AllocatorService struct {
	poolRepo  storage.NamePoolRepository
	aliasRepo storage.AliasRepository

	mu  sync.Mutex
	rng *rand.Rand
}

// NewAllocatorService 创建分配业务服务。
func NewAllocatorService(poolRepo storage.NamePoolRepository, aliasRepo storage.AliasRepository) *AllocatorService {
	return &AllocatorService{
		poolRepo:  poolRepo,
		aliasRepo: aliasRepo,
		rng:       rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Allocate 为所有者分配一个新地址：随机挑一个未使用的基础名字，
// 拼上四位随机后缀和域名，在一个原子事务内占用。
// 后缀撞车或名字被并发请求抢走都走同一条重试路径；
// 其余存储故障原样返回。池空或重试耗尽返回 ErrPoolExhausted。
func (s *AllocatorService) Allocate(ownerID int64, domainName string) (*domain.Alias, error) {
	domainName = strings.ToLower(strings.TrimSpace(domainName))

	base, err := s.poolRepo.PickUnusedName()
	if err != nil {
		if errors.Is(err, storage.ErrPoolEmpty) {
			monitoring.PoolExhausted.Inc()
			return nil, ErrPoolExhausted
		}
		return nil, fmt.Errorf("pick name: %w", err)
	}

	for attempt := 0; attempt < maxClaimAttempts; attempt++ {
		address := strings.ToLower(fmt.Sprintf("%s%d@%s", base, s.randomSuffix(), domainName))

		alias := &domain.Alias{
			Address:   address,
			OwnerID:   ownerID,
			BaseName:  base,
			IsActive:  true,
			CreatedAt: time.Now(),
		}

		err := s.aliasRepo.ClaimAlias(alias)
		if err == nil {
			monitoring.AliasesAllocated.Inc()
			return alias, nil
		}
		if errors.Is(err, storage.ErrClaimConflict) {
			monitoring.AllocationConflicts.Inc()
			continue
		}
		return nil, fmt.Errorf("claim alias: %w", err)
	}

	monitoring.PoolExhausted.Inc()
	return nil, ErrPoolExhausted
}

// randomSuffix 生成 1000 到 9999 的随机后缀
func (s *AllocatorService) randomSuffix() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return 1000 + s.rng.Intn(9000)
}
