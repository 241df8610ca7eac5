package service

import (
	"bufio"
	"fmt"
	"os"

	"mailrelay/backend/internal/domain"
	"mailrelay/backend/internal/monitoring"
	"mailrelay/backend/internal/storage"
)

// NamePoolService 管理可分配的基础名字池。
type NamePoolService struct {
	poolRepo storage.NamePoolRepository
}

// NewNamePoolService 创建名字池业务服务。
func NewNamePoolService(poolRepo storage.NamePoolRepository) *NamePoolService {
	return &NamePoolService{poolRepo: poolRepo}
}

// Seed 把名字列表写入池中，已存在的名字保持原状。
// 名字先做规范化（小写、去掉非字母数字下划线字符），
// 空名字跳过。返回本次新插入的数量，重复播种是幂等的。
func (s *NamePoolService) Seed(names []string) (int, error) {
	cleaned := make([]string, 0, len(names))
	seen := make(map[string]struct{}, len(names))
	for _, raw := range names {
		name := domain.NormalizeName(raw)
		if name == "" {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		cleaned = append(cleaned, name)
	}

	if len(cleaned) == 0 {
		return 0, nil
	}

	inserted, err := s.poolRepo.SeedNames(cleaned)
	if err != nil {
		return 0, fmt.Errorf("seed names: %w", err)
	}

	monitoring.NamesSeeded.Add(float64(inserted))
	return inserted, nil
}

// SeedFromFile 从文本文件读取名字并播种，每行一个名字。
// 文件不存在不算错误，视为播种了零个。
func (s *NamePoolService) SeedFromFile(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("open seed file: %w", err)
	}
	defer f.Close()

	var names []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		names = append(names, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return 0, fmt.Errorf("read seed file: %w", err)
	}

	return s.Seed(names)
}

// UnusedCount 返回池中尚未使用的名字数量。
func (s *NamePoolService) UnusedCount() (int, error) {
	return s.poolRepo.CountUnusedNames()
}
