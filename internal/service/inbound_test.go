package service

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"mailrelay/backend/internal/domain"
	"mailrelay/backend/internal/storage/memory"
)

// fakeSink 记录投递内容的假投递端
type fakeSink struct {
	chunks    map[int64][]domain.MessageChunk
	images    map[int64][]string
	chunkErr  error
	imageErr  error
}

func newFakeSink() *fakeSink {
	return &fakeSink{
		chunks: make(map[int64][]domain.MessageChunk),
		images: make(map[int64][]string),
	}
}

func (f *fakeSink) SendChunks(chatID int64, chunks []domain.MessageChunk) error {
	if f.chunkErr != nil {
		return f.chunkErr
	}
	f.chunks[chatID] = append(f.chunks[chatID], chunks...)
	return nil
}

func (f *fakeSink) SendImage(chatID int64, url string) error {
	if f.imageErr != nil {
		return f.imageErr
	}
	f.images[chatID] = append(f.images[chatID], url)
	return nil
}

func newInboundFixture(t *testing.T) (*memory.Store, *fakeSink, *InboundService) {
	t.Helper()
	store := memory.NewStore()

	require.NoError(t, store.UpsertUser(1, 100))
	_, err := store.SeedNames([]string{"fox"})
	require.NoError(t, err)
	require.NoError(t, store.ClaimAlias(&domain.Alias{
		Address:   "fox1234@inbox.dev",
		OwnerID:   1,
		BaseName:  "fox",
		IsActive:  true,
		CreatedAt: time.Now(),
	}))

	sink := newFakeSink()
	inbound := NewInboundService(
		NewDirectoryService(store),
		NewUserService(store),
		sink,
		zap.NewNop(),
		3900,
	)
	return store, sink, inbound
}

func TestInboundHandle(t *testing.T) {
	t.Run("完整投递一封邮件", func(t *testing.T) {
		_, sink, inbound := newInboundFixture(t)

		raw := "From: alice@example.com\r\n" +
			"Subject: Hello\r\n" +
			"Date: Mon, 01 Jan 2024 10:00:00 +0000\r\n" +
			"\r\n" +
			"nice to meet you"

		result, err := inbound.Handle(domain.InboundPayload{
			To:   "FOX1234@inbox.dev",
			Text: raw,
		})
		require.NoError(t, err)
		assert.False(t, result.Ignored)
		assert.Equal(t, 1, result.Chunks)

		require.Len(t, sink.chunks[100], 1)
		text := sink.chunks[100][0].Text
		assert.Contains(t, text, "📬 To: fox1234@inbox.dev")
		assert.Contains(t, text, "👤 From: alice@example.com")
		assert.Contains(t, text, "📝 Subject: Hello")
		assert.Contains(t, text, "🕒 Date: Mon, 01 Jan 2024 10:00:00 +0000")
		assert.Contains(t, text, "nice to meet you")
	})

	t.Run("未激活地址静默忽略", func(t *testing.T) {
		store, sink, inbound := newInboundFixture(t)
		_, err := store.DeactivateAlias("fox1234@inbox.dev", 1)
		require.NoError(t, err)

		result, err := inbound.Handle(domain.InboundPayload{
			To:   "fox1234@inbox.dev",
			Text: "From: a@b.c\n\nhello",
		})
		require.NoError(t, err)
		assert.True(t, result.Ignored)
		assert.Empty(t, sink.chunks)
	})

	t.Run("未知地址静默忽略", func(t *testing.T) {
		_, sink, inbound := newInboundFixture(t)

		result, err := inbound.Handle(domain.InboundPayload{
			To:   "ghost@inbox.dev",
			Text: "whatever",
		})
		require.NoError(t, err)
		assert.True(t, result.Ignored)
		assert.Empty(t, sink.chunks)
	})

	t.Run("头部提取不到时用载荷字段兜底", func(t *testing.T) {
		_, sink, inbound := newInboundFixture(t)

		result, err := inbound.Handle(domain.InboundPayload{
			To:      "fox1234@inbox.dev",
			From:    "relay@worker.dev",
			Subject: "Forwarded",
			Text:    "raw text without any headers",
		})
		require.NoError(t, err)
		assert.False(t, result.Ignored)

		require.Len(t, sink.chunks[100], 1)
		text := sink.chunks[100][0].Text
		assert.Contains(t, text, "👤 From: relay@worker.dev")
		assert.Contains(t, text, "📝 Subject: Forwarded")
		// 正文缺失时带占位提示，降级路径附加截断说明
		assert.Contains(t, text, "⚠️")
		assert.Contains(t, text, "ℹ️")
	})

	t.Run("图片独立转发", func(t *testing.T) {
		_, sink, inbound := newInboundFixture(t)

		raw := "From: shop@example.com\r\n" +
			"Content-Type: text/html\r\n" +
			"\r\n" +
			"<p>sale</p><img src=\"https://x.com/a.png\"><img src=\"https://x.com/b.png\">"

		result, err := inbound.Handle(domain.InboundPayload{
			To:   "fox1234@inbox.dev",
			Text: raw,
		})
		require.NoError(t, err)
		assert.Equal(t, 2, result.Images)
		assert.Equal(t, []string{"https://x.com/a.png", "https://x.com/b.png"}, sink.images[100])
	})

	t.Run("图片发送失败不影响整体投递", func(t *testing.T) {
		_, sink, inbound := newInboundFixture(t)
		sink.imageErr = errors.New("telegram: bad image")

		raw := "From: shop@example.com\r\n" +
			"Content-Type: text/html\r\n" +
			"\r\n" +
			"<p>sale</p><img src=\"https://x.com/a.png\">"

		result, err := inbound.Handle(domain.InboundPayload{
			To:   "fox1234@inbox.dev",
			Text: raw,
		})
		require.NoError(t, err)
		assert.False(t, result.Ignored)
		assert.Equal(t, 0, result.Images)
		assert.NotEmpty(t, sink.chunks[100])
	})

	t.Run("投递端故障向上返回", func(t *testing.T) {
		_, sink, inbound := newInboundFixture(t)
		sink.chunkErr = errors.New("telegram: chat not found")

		_, err := inbound.Handle(domain.InboundPayload{
			To:   "fox1234@inbox.dev",
			Text: "From: a@b.c\n\nhello",
		})
		assert.Error(t, err)
	})

	t.Run("长正文分段投递", func(t *testing.T) {
		_, sink, inbound := newInboundFixture(t)

		raw := "From: a@b.c\r\nSubject: big\r\n\r\n" + strings.Repeat("x", 6000)

		result, err := inbound.Handle(domain.InboundPayload{
			To:   "fox1234@inbox.dev",
			Text: raw,
		})
		require.NoError(t, err)
		assert.Equal(t, 2, result.Chunks)
		require.Len(t, sink.chunks[100], 2)
		assert.Contains(t, sink.chunks[100][0].Label, "(1/2)")
		assert.Contains(t, sink.chunks[100][1].Label, "(2/2)")
	})
}
