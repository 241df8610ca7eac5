package domain

// Owner 表示一个已绑定聊天会话的外部身份（Telegram 用户）。
// 核心只把 OwnerID 当作不透明标识使用，ChatID 是消息投递的目标会话。
type Owner struct {
	OwnerID int64 `json:"ownerId" gorm:"column:owner_id;primaryKey;autoIncrement:false"` // Telegram 用户 ID
	ChatID  int64 `json:"chatId" gorm:"column:chat_id;not null"`                         // 投递目标会话 ID
}

// TableName 指定表名。
func (Owner) TableName() string { return "users" }
