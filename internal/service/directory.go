package service

import (
	"errors"
	"fmt"
	"strings"

	"mailrelay/backend/internal/domain"
	"mailrelay/backend/internal/monitoring"
	"mailrelay/backend/internal/storage"
)

// DirectoryService 提供别名目录的查询与停用。
type DirectoryService struct {
	aliasRepo storage.AliasRepository
}

// NewDirectoryService 创建目录业务服务。
func NewDirectoryService(aliasRepo storage.AliasRepository) *DirectoryService {
	return &DirectoryService{aliasRepo: aliasRepo}
}

// Deactivate 停用属于指定所有者的地址，返回是否命中。
// 地址不存在或属于别人时返回 false，这是正常的用户输入场景，不是错误。
// 停用是单向的：一旦停用，该地址不再参与投递解析。
func (s *DirectoryService) Deactivate(address string, ownerID int64) (bool, error) {
	address = strings.ToLower(strings.TrimSpace(address))
	if address == "" {
		return false, nil
	}

	hit, err := s.aliasRepo.DeactivateAlias(address, ownerID)
	if err != nil {
		return false, fmt.Errorf("deactivate alias: %w", err)
	}
	if hit {
		monitoring.AliasesDeactivated.Inc()
	}
	return hit, nil
}

// ResolveOwner 查找激活地址的所有者。
// 未知或已停用的地址返回 found=false，投递方应静默丢弃。
func (s *DirectoryService) ResolveOwner(address string) (ownerID int64, found bool, err error) {
	address = strings.ToLower(strings.TrimSpace(address))

	ownerID, err = s.aliasRepo.ResolveOwner(address)
	if err != nil {
		if errors.Is(err, storage.ErrAliasNotFound) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("resolve owner: %w", err)
	}
	return ownerID, true, nil
}

// ListForOwner 按创建时间倒序返回所有者的地址，最多 limit 条。
func (s *DirectoryService) ListForOwner(ownerID int64, limit int) ([]domain.Alias, error) {
	aliases, err := s.aliasRepo.ListAliasesByOwner(ownerID, limit)
	if err != nil {
		return nil, fmt.Errorf("list aliases: %w", err)
	}
	return aliases, nil
}
