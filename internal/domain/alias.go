package domain

import "time"

// Alias 表示由基础名派生出的一次性邮箱地址。
// 地址全局唯一；停用是单向操作，地址永远不会被物理删除或回收复用。
type Alias struct {
	Address   string    `json:"address" gorm:"type:varchar(255);primaryKey"`           // 完整地址，如 fox1234@example.com
	OwnerID   int64     `json:"ownerId" gorm:"column:owner_id;index;not null"`         // 所属身份
	BaseName  string    `json:"baseName" gorm:"column:base_name;type:varchar(64);not null"` // 派生自的基础名
	IsActive  bool      `json:"isActive" gorm:"column:is_active;not null;default:true"`
	CreatedAt time.Time `json:"createdAt"`
}

// TableName 指定表名。
func (Alias) TableName() string { return "emails" }
