package service

import (
	"errors"
	"fmt"

	"mailrelay/backend/internal/storage"
)

// UserService 维护所有者与会话端点的绑定。
type UserService struct {
	userRepo storage.UserRepository
}

// NewUserService 创建用户业务服务。
func NewUserService(userRepo storage.UserRepository) *UserService {
	return &UserService{userRepo: userRepo}
}

// Register 记录所有者当前的会话端点，重复注册覆盖旧值。
func (s *UserService) Register(ownerID, chatID int64) error {
	if err := s.userRepo.UpsertUser(ownerID, chatID); err != nil {
		return fmt.Errorf("upsert user: %w", err)
	}
	return nil
}

// ChatID 返回所有者绑定的会话端点。
func (s *UserService) ChatID(ownerID int64) (int64, bool, error) {
	chatID, err := s.userRepo.GetChatID(ownerID)
	if err != nil {
		if errors.Is(err, storage.ErrOwnerNotFound) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("get chat id: %w", err)
	}
	return chatID, true, nil
}
