package sql

import (
	"database/sql"
	"errors"
	"fmt"

	"mailrelay/backend/internal/storage"
)

// ========== Name Pool Repository ==========

// SeedNames 批量写入候选名，已存在的名字静默跳过，返回实际新增数量
func (s *Store) SeedNames(names []string) (int, error) {
	var query string
	switch s.driverName {
	case "mysql":
		query = `INSERT IGNORE INTO name_pool (name, used) VALUES (?, ?)`
	case "sqlite3":
		query = `INSERT OR IGNORE INTO name_pool (name, used) VALUES (?, ?)`
	default: // postgres
		query = s.rebind(`INSERT INTO name_pool (name, used) VALUES (?, ?) ON CONFLICT (name) DO NOTHING`)
	}

	inserted := 0
	for _, name := range names {
		if name == "" {
			continue
		}
		res, err := s.db.Exec(query, name, false)
		if err != nil {
			return inserted, fmt.Errorf("seed name %q: %w", name, err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return inserted, err
		}
		inserted += int(affected)
	}
	return inserted, nil
}

// PickUnusedName 随机返回一个未使用的名字
func (s *Store) PickUnusedName() (string, error) {
	query := s.rebind(`SELECT name FROM name_pool WHERE used = ? ORDER BY `) + s.randomExpr() + ` LIMIT 1`

	var name string
	err := s.db.QueryRow(query, false).Scan(&name)
	if errors.Is(err, sql.ErrNoRows) {
		return "", storage.ErrPoolEmpty
	}
	if err != nil {
		return "", err
	}
	return name, nil
}

// CountUnusedNames 返回未使用的名字数量
func (s *Store) CountUnusedNames() (int, error) {
	query := s.rebind(`SELECT COUNT(*) FROM name_pool WHERE used = ?`)

	var count int
	if err := s.db.QueryRow(query, false).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}
