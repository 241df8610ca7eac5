package domain

// InboundPayload 是入站邮件中继回调的载荷。
// Text 是可能经过 MIME 编码、也可能被中继截断的原始邮件内容；
// From 与 Subject 仅在解析不出对应头部时作为兜底使用。
type InboundPayload struct {
	To      string `json:"to"`
	From    string `json:"from"`
	Subject string `json:"subject"`
	Text    string `json:"text"`
}

// ParsedMessage 是对原始邮件解析后的结构化结果。
// 它不落库，每次入站投递生成一次并立即被切块器消费。
type ParsedMessage struct {
	From      string   // From 头部（已解码）
	Subject   string   // Subject 头部（已解码）
	Date      string   // Date 头部原文
	Body      string   // 规整后的纯文本正文
	ImageURLs []string // HTML 中的外链图片，去重且最多 5 条
	Truncated bool     // 原始内容疑似被上游截断，或走了降级解析
}

// MessageChunk 是按传输上限切分后的一段消息。
// Label 已包含分段标注和结尾空行，投递时直接拼接 Label+Text 发送。
type MessageChunk struct {
	Label string
	Text  string
}
