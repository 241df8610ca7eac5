package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("MAILRELAY_TELEGRAM_BOT_TOKEN", "123456:test-token")
	t.Setenv("MAILRELAY_INBOUND_SECRET", "test-secret")
	t.Setenv("MAILRELAY_ALIAS_DOMAIN", "Inbox.Dev")
}

func TestLoad(t *testing.T) {
	t.Run("必填项齐全时加载默认配置", func(t *testing.T) {
		setRequiredEnv(t)

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "0.0.0.0", cfg.Server.Host)
		assert.Equal(t, 8080, cfg.Server.Port)
		assert.Equal(t, "123456:test-token", cfg.Telegram.BotToken)
		assert.Equal(t, "/telegram/webhook", cfg.Telegram.WebhookPath)
		assert.Equal(t, "test-secret", cfg.Inbound.Secret)
		// 域名统一转小写
		assert.Equal(t, "inbox.dev", cfg.Alias.Domain)
		assert.Equal(t, "name.txt", cfg.Alias.SeedFile)
		assert.Equal(t, 20, cfg.Alias.ListLimit)
		assert.Equal(t, 3900, cfg.Alias.MaxChunkSize)
		assert.Equal(t, 60, cfg.Inbound.RatePerMinute)
		assert.Equal(t, []string{"*"}, cfg.CORS.AllowedOrigins)
		assert.Empty(t, cfg.Database.Type)
	})

	t.Run("缺少机器人令牌报错", func(t *testing.T) {
		t.Setenv("MAILRELAY_TELEGRAM_BOT_TOKEN", "")
		t.Setenv("MAILRELAY_INBOUND_SECRET", "s")
		t.Setenv("MAILRELAY_ALIAS_DOMAIN", "inbox.dev")

		_, err := Load()
		assert.ErrorContains(t, err, "telegram.bot_token")
	})

	t.Run("缺少回调密钥报错", func(t *testing.T) {
		t.Setenv("MAILRELAY_TELEGRAM_BOT_TOKEN", "tok")
		t.Setenv("MAILRELAY_INBOUND_SECRET", "")
		t.Setenv("MAILRELAY_ALIAS_DOMAIN", "inbox.dev")

		_, err := Load()
		assert.ErrorContains(t, err, "inbound.secret")
	})

	t.Run("缺少域名报错", func(t *testing.T) {
		t.Setenv("MAILRELAY_TELEGRAM_BOT_TOKEN", "tok")
		t.Setenv("MAILRELAY_INBOUND_SECRET", "s")
		t.Setenv("MAILRELAY_ALIAS_DOMAIN", "")

		_, err := Load()
		assert.ErrorContains(t, err, "alias.domain")
	})

	t.Run("回调路径必须以斜杠开头", func(t *testing.T) {
		setRequiredEnv(t)
		t.Setenv("MAILRELAY_TELEGRAM_WEBHOOK_PATH", "telegram/webhook")

		_, err := Load()
		assert.ErrorContains(t, err, "webhook_path")
	})

	t.Run("webhook 地址由 base_url 拼接", func(t *testing.T) {
		setRequiredEnv(t)
		t.Setenv("MAILRELAY_TELEGRAM_BASE_URL", "https://bot.example.com/")

		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, "https://bot.example.com/telegram/webhook", cfg.WebhookURL())
	})

	t.Run("没有 base_url 时跳过注册", func(t *testing.T) {
		setRequiredEnv(t)

		cfg, err := Load()
		require.NoError(t, err)
		assert.Empty(t, cfg.WebhookURL())
	})

	t.Run("环境变量覆盖默认值", func(t *testing.T) {
		setRequiredEnv(t)
		t.Setenv("MAILRELAY_SERVER_PORT", "9090")
		t.Setenv("MAILRELAY_ALIAS_MAX_CHUNK_SIZE", "2000")
		t.Setenv("MAILRELAY_DATABASE_TYPE", "sqlite3")
		t.Setenv("MAILRELAY_DATABASE_DSN", "./test.db")

		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, 9090, cfg.Server.Port)
		assert.Equal(t, 2000, cfg.Alias.MaxChunkSize)
		assert.Equal(t, "sqlite3", cfg.Database.Type)
		assert.Equal(t, "./test.db", cfg.Database.DSN)
	})
}
