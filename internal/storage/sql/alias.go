package sql

import (
	"database/sql"
	"errors"
	"fmt"

	"mailrelay/backend/internal/domain"
	"mailrelay/backend/internal/storage"
)

// ========== Alias Repository ==========

// ClaimAlias 在一个事务内写入别名并占用池条目。
// 池条目的翻转以 used = false 为条件：影响行数不是 1 说明名字已被
// 并发请求占走；别名主键冲突说明地址撞车。两种情况统一回滚并返回
// ErrClaimConflict，由调用方换后缀重试。
func (s *Store) ClaimAlias(alias *domain.Alias) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin claim tx: %w", err)
	}

	insert := s.rebind(`
		INSERT INTO emails (address, owner_id, base_name, is_active, created_at)
		VALUES (?, ?, ?, ?, ?)
	`)
	if _, err := tx.Exec(insert,
		alias.Address,
		alias.OwnerID,
		alias.BaseName,
		alias.IsActive,
		alias.CreatedAt,
	); err != nil {
		tx.Rollback()
		if isDuplicateKey(err) {
			return storage.ErrClaimConflict
		}
		return fmt.Errorf("insert alias: %w", err)
	}

	update := s.rebind(`
		UPDATE name_pool
		SET used = ?, used_by = ?, used_email = ?, used_at = ?
		WHERE name = ? AND used = ?
	`)
	res, err := tx.Exec(update,
		true,
		alias.OwnerID,
		alias.Address,
		alias.CreatedAt,
		alias.BaseName,
		false,
	)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("claim pool entry: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		tx.Rollback()
		return err
	}
	if affected != 1 {
		tx.Rollback()
		return storage.ErrClaimConflict
	}

	return tx.Commit()
}

// DeactivateAlias 停用属于指定所有者的地址，返回是否命中了记录
func (s *Store) DeactivateAlias(address string, ownerID int64) (bool, error) {
	query := s.rebind(`
		UPDATE emails SET is_active = ?
		WHERE address = ? AND owner_id = ?
	`)

	res, err := s.db.Exec(query, false, address, ownerID)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// ResolveOwner 仅对激活状态的地址返回所有者
func (s *Store) ResolveOwner(address string) (int64, error) {
	query := s.rebind(`
		SELECT owner_id FROM emails
		WHERE address = ? AND is_active = ?
		LIMIT 1
	`)

	var ownerID int64
	err := s.db.QueryRow(query, address, true).Scan(&ownerID)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, storage.ErrAliasNotFound
	}
	if err != nil {
		return 0, err
	}
	return ownerID, nil
}

// ListAliasesByOwner 按创建时间倒序返回所有者的地址
func (s *Store) ListAliasesByOwner(ownerID int64, limit int) ([]domain.Alias, error) {
	query := s.rebind(`
		SELECT address, owner_id, base_name, is_active, created_at
		FROM emails
		WHERE owner_id = ?
		ORDER BY created_at DESC
		LIMIT ?
	`)

	rows, err := s.db.Query(query, ownerID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var aliases []domain.Alias
	for rows.Next() {
		var alias domain.Alias
		if err := rows.Scan(
			&alias.Address,
			&alias.OwnerID,
			&alias.BaseName,
			&alias.IsActive,
			&alias.CreatedAt,
		); err != nil {
			return nil, err
		}
		aliases = append(aliases, alias)
	}

	return aliases, rows.Err()
}
