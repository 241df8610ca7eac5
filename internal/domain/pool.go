package domain

import (
	"strings"
	"time"
	"unicode"
)

// NamePoolEntry 表示名字池中的一个候选基础名，每个名字全局只能消费一次。
// used 一旦置位便不再回退，(used_by, used_email, used_at) 随之固定不变。
type NamePoolEntry struct {
	Name      string     `json:"name" gorm:"type:varchar(64);primaryKey"`
	Used      bool       `json:"used" gorm:"not null;default:false"`
	UsedBy    *int64     `json:"usedBy" gorm:"column:used_by"`
	UsedEmail *string    `json:"usedEmail" gorm:"column:used_email;type:varchar(255)"`
	UsedAt    *time.Time `json:"usedAt" gorm:"column:used_at"`
}

// TableName 指定表名。
func (NamePoolEntry) TableName() string { return "name_pool" }

// NormalizeName 把候选名规整为小写且仅保留字母、数字和下划线。
// 规整后为空的名字视为无效候选。
func NormalizeName(raw string) string {
	raw = strings.ToLower(strings.TrimSpace(raw))

	var b strings.Builder
	for _, r := range raw {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
