package sql

import (
	"database/sql"
	"errors"

	"mailrelay/backend/internal/storage"
)

// ========== User Repository ==========

// UpsertUser 写入或更新所有者的会话映射
func (s *Store) UpsertUser(ownerID, chatID int64) error {
	var query string
	switch s.driverName {
	case "mysql":
		query = `
			INSERT INTO users (owner_id, chat_id)
			VALUES (?, ?)
			ON DUPLICATE KEY UPDATE chat_id = VALUES(chat_id)
		`
	default: // postgres / sqlite3
		query = s.rebind(`
			INSERT INTO users (owner_id, chat_id)
			VALUES (?, ?)
			ON CONFLICT (owner_id) DO UPDATE SET chat_id = excluded.chat_id
		`)
	}

	_, err := s.db.Exec(query, ownerID, chatID)
	return err
}

// GetChatID 返回所有者绑定的会话 ID
func (s *Store) GetChatID(ownerID int64) (int64, error) {
	query := s.rebind(`SELECT chat_id FROM users WHERE owner_id = ? LIMIT 1`)

	var chatID int64
	err := s.db.QueryRow(query, ownerID).Scan(&chatID)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, storage.ErrOwnerNotFound
	}
	if err != nil {
		return 0, err
	}
	return chatID, nil
}
