package httptransport

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"mailrelay/backend/internal/config"
	"mailrelay/backend/internal/domain"
	"mailrelay/backend/internal/service"
	"mailrelay/backend/internal/storage/memory"
)

type captureSink struct {
	chunks []domain.MessageChunk
	images []string
}

func (c *captureSink) SendChunks(chatID int64, chunks []domain.MessageChunk) error {
	c.chunks = append(c.chunks, chunks...)
	return nil
}

func (c *captureSink) SendImage(chatID int64, url string) error {
	c.images = append(c.images, url)
	return nil
}

func newTestRouter(t *testing.T) (*gin.Engine, *captureSink) {
	t.Helper()
	gin.SetMode(gin.TestMode)

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

	sink := &captureSink{}
	inbound := service.NewInboundService(
		service.NewDirectoryService(store),
		service.NewUserService(store),
		sink,
		zap.NewNop(),
		3900,
	)

	cfg := &config.Config{
		Inbound: config.InboundConfig{
			Secret:        "test-secret",
			RatePerMinute: 1000,
			MaxBodyBytes:  1 << 20,
		},
		CORS: config.CORSConfig{AllowedOrigins: []string{"*"}},
	}

	router := NewRouter(RouterDependencies{
		Config:  cfg,
		Inbound: inbound,
		Logger:  zap.NewNop(),
	})
	return router, sink
}

func TestInboundEndpoint(t *testing.T) {
	t.Run("密钥缺失返回 401", func(t *testing.T) {
		router, _ := newTestRouter(t)

		req := httptest.NewRequest(http.MethodPost, "/api/inbound-email",
			strings.NewReader(`{"to":"fox1234@inbox.dev","text":"hi"}`))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("密钥错误返回 401", func(t *testing.T) {
		router, _ := newTestRouter(t)

		req := httptest.NewRequest(http.MethodPost, "/api/inbound-email",
			strings.NewReader(`{"to":"fox1234@inbox.dev","text":"hi"}`))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Inbound-Secret", "wrong")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("缺少目标地址返回 400", func(t *testing.T) {
		router, _ := newTestRouter(t)

		req := httptest.NewRequest(http.MethodPost, "/api/inbound-email",
			strings.NewReader(`{"text":"hi"}`))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Inbound-Secret", "test-secret")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("成功投递返回段数", func(t *testing.T) {
		router, sink := newTestRouter(t)

		body := `{"to":"fox1234@inbox.dev","from":"a@b.c","subject":"Hi","text":"From: a@b.c\n\nhello"}`
		req := httptest.NewRequest(http.MethodPost, "/api/inbound-email", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Inbound-Secret", "test-secret")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"ok":true`)
		assert.Contains(t, w.Body.String(), `"chunks":1`)
		require.Len(t, sink.chunks, 1)
		assert.Contains(t, sink.chunks[0].Text, "hello")
	})

	t.Run("未知地址返回 ignored", func(t *testing.T) {
		router, sink := newTestRouter(t)

		body := `{"to":"ghost@inbox.dev","text":"hello"}`
		req := httptest.NewRequest(http.MethodPost, "/api/inbound-email", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Inbound-Secret", "test-secret")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"ignored":true`)
		assert.Empty(t, sink.chunks)
	})

	t.Run("根路径返回服务状态", func(t *testing.T) {
		router, _ := newTestRouter(t)

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "mailrelay")
	})
}
