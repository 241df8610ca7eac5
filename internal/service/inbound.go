package service

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"mailrelay/backend/internal/chunk"
	"mailrelay/backend/internal/domain"
	"mailrelay/backend/internal/mailparse"
	"mailrelay/backend/internal/monitoring"
)

// DeliverySink 是投递端的抽象：按顺序发送分段消息，以及独立转发图片。
// 单张图片发送失败由实现方自行消化，不影响整体投递结果。
type DeliverySink interface {
	SendChunks(chatID int64, chunks []domain.MessageChunk) error
	SendImage(chatID int64, url string) error
}

// InboundResult 描述一次入站投递的结果。
type InboundResult struct {
	Ignored bool
	Chunks  int
	Images  int
}

// InboundService 串起入站邮件的完整流水线：
// 解析地址、找到会话、解析正文、分段、投递。
type InboundService struct {
	directory    *DirectoryService
	users        *UserService
	sink         DeliverySink
	logger       *zap.Logger
	maxChunkSize int
}

// NewInboundService 创建入站投递服务。
func NewInboundService(directory *DirectoryService, users *UserService, sink DeliverySink, logger *zap.Logger, maxChunkSize int) *InboundService {
	return &InboundService{
		directory:    directory,
		users:        users,
		sink:         sink,
		logger:       logger,
		maxChunkSize: maxChunkSize,
	}
}

// Handle 处理一封入站邮件。目标地址未激活或所有者没有会话时
// 静默忽略；解析永不失败，payload 里的 from/subject 只在
// 头部提取不到时兜底。返回错误仅代表投递端故障。
func (s *InboundService) Handle(payload domain.InboundPayload) (*InboundResult, error) {
	monitoring.InboundReceived.Inc()

	address := strings.ToLower(strings.TrimSpace(payload.To))

	ownerID, found, err := s.directory.ResolveOwner(address)
	if err != nil {
		return nil, err
	}
	if !found {
		monitoring.InboundIgnored.Inc()
		s.logger.Debug("入站邮件目标地址未激活，忽略", zap.String("address", address))
		return &InboundResult{Ignored: true}, nil
	}

	chatID, found, err := s.users.ChatID(ownerID)
	if err != nil {
		return nil, err
	}
	if !found {
		monitoring.InboundIgnored.Inc()
		s.logger.Warn("别名所有者没有绑定会话，忽略",
			zap.String("address", address),
			zap.Int64("owner_id", ownerID))
		return &InboundResult{Ignored: true}, nil
	}

	parsed := mailparse.Parse(payload.Text)

	from := parsed.From
	if from == "" {
		from = strings.TrimSpace(payload.From)
	}
	if from == "" {
		from = "unknown"
	}

	subject := parsed.Subject
	if subject == "" {
		subject = strings.TrimSpace(payload.Subject)
	}
	if subject == "" {
		subject = "(no subject)"
	}

	body := parsed.Body
	if body == "" {
		body = "⚠️ 未能提取邮件正文（可能邮件头过大，原文在上游被裁剪）。"
	}
	if parsed.Truncated {
		body += "\n\nℹ️ 注意：原始邮件已被截断，正文可能不完整。"
	}

	header := composeHeader(address, from, subject, parsed.Date)

	chunks := chunk.Split(header, body, s.maxChunkSize)
	if err := s.sink.SendChunks(chatID, chunks); err != nil {
		return nil, fmt.Errorf("send chunks: %w", err)
	}
	monitoring.ChunksDelivered.Add(float64(len(chunks)))

	sent := 0
	for _, url := range parsed.ImageURLs {
		if err := s.sink.SendImage(chatID, url); err != nil {
			s.logger.Warn("转发邮件图片失败",
				zap.String("url", url),
				zap.Error(err))
			continue
		}
		sent++
	}
	monitoring.ImagesForwarded.Add(float64(sent))

	s.logger.Info("入站邮件投递完成",
		zap.String("address", address),
		zap.Int64("chat_id", chatID),
		zap.Int("chunks", len(chunks)),
		zap.Int("images", sent))

	return &InboundResult{Chunks: len(chunks), Images: sent}, nil
}

// composeHeader 拼出每封邮件第一段携带的头部摘要。
func composeHeader(to, from, subject, date string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "📬 To: %s\n", to)
	fmt.Fprintf(&b, "👤 From: %s\n", from)
	fmt.Fprintf(&b, "📝 Subject: %s\n", subject)
	if date != "" {
		fmt.Fprintf(&b, "🕒 Date: %s\n", date)
	}
	return strings.TrimSpace(b.String())
}
