package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// ServerConfig 定义 HTTP 服务器的监听配置参数
type ServerConfig struct {
	Host string // 监听地址，默认 "0.0.0.0"
	Port int    // 监听端口，默认 8080
}

// TelegramConfig 定义 Telegram 机器人配置
type TelegramConfig struct {
	BotToken    string // 机器人令牌，必填
	BaseURL     string // 对外可达的服务地址，用于注册 webhook，如 "https://bot.example.com"
	WebhookPath string // webhook 回调路径，必须以 "/" 开头
}

// InboundConfig 定义入站邮件回调接口的配置
type InboundConfig struct {
	Secret        string // 回调方必须携带的共享密钥，必填
	RatePerMinute int    // 单个来源 IP 每分钟允许的请求数
	MaxBodyBytes  int64  // 请求体大小上限
}

// AliasConfig 定义地址分配相关的业务配置
type AliasConfig struct {
	Domain       string // 分配地址使用的域名，如 "inbox.example.com"，必填
	SeedFile     string // 启动时播种名字池的文件路径，文件不存在则跳过
	ListLimit    int    // 列出用户地址的条数上限
	MaxChunkSize int    // 投递消息单段的字符数上限
}

// CORSConfig 定义跨域资源共享 (CORS) 配置
type CORSConfig struct {
	AllowedOrigins []string // 允许的来源列表，"*" 表示允许所有来源
}

// LogConfig 定义日志系统配置
type LogConfig struct {
	Level       string // 日志级别: debug, info, warn, error
	Development bool   // 开发模式: 启用彩色输出和详细堆栈信息
	LogFile     string // 日志文件路径，留空只输出到控制台
}

// DatabaseConfig 定义数据库连接配置（支持 sqlite3、MySQL 和 PostgreSQL）
type DatabaseConfig struct {
	Type            string        // 数据库类型: "sqlite3"、"mysql" 或 "postgres"，留空使用内存存储
	DSN             string        // 数据库连接字符串
	MaxOpenConns    int           // 最大打开连接数，默认 25
	MaxIdleConns    int           // 最大空闲连接数，默认 5
	ConnMaxLifetime time.Duration // 连接最大生命周期，默认 5 分钟
}

// RedisConfig 定义 Redis 缓存服务配置
type RedisConfig struct {
	Enabled  bool   // 是否启用解析结果缓存
	Address  string // Redis 服务地址，格式 "host:port"，默认 "localhost:6379"
	Password string // Redis 认证密码，留空表示无密码
	DB       int    // Redis 数据库编号，默认 0
}

// Config 是系统核心配置的根结构体，包含所有子系统的配置
type Config struct {
	Server   ServerConfig   // HTTP 服务器配置
	Telegram TelegramConfig // Telegram 机器人配置
	Inbound  InboundConfig  // 入站回调配置
	Alias    AliasConfig    // 地址分配配置
	CORS     CORSConfig     // 跨域配置
	Log      LogConfig      // 日志配置
	Database DatabaseConfig // 数据库配置
	Redis    RedisConfig    // Redis 配置
}

// Load 从环境变量和 .env 文件加载系统配置
//
// 配置加载优先级（从高到低）：
//  1. 系统环境变量（最高优先级）
//  2. .env 文件（如果存在）
//  3. 默认值
//
// 环境变量前缀: MAILRELAY_
// 例如: MAILRELAY_SERVER_PORT, MAILRELAY_TELEGRAM_BOT_TOKEN
func Load() (*Config, error) {
	// 尝试加载 .env 文件（静默失败，因为 .env 文件是可选的）
	loadEnvFile()

	viper.SetEnvPrefix("mailrelay")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("telegram.bot_token", "")
	viper.SetDefault("telegram.base_url", "")
	viper.SetDefault("telegram.webhook_path", "/telegram/webhook")
	viper.SetDefault("inbound.secret", "")
	viper.SetDefault("inbound.rate_per_minute", 60)
	viper.SetDefault("inbound.max_body_bytes", 1048576)
	viper.SetDefault("alias.domain", "")
	viper.SetDefault("alias.seed_file", "name.txt")
	viper.SetDefault("alias.list_limit", 20)
	viper.SetDefault("alias.max_chunk_size", 3900)
	viper.SetDefault("cors.allowed_origins", "*")
	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.development", false)
	viper.SetDefault("log.log_file", "")
	viper.SetDefault("database.type", "") // 默认为空，使用内存存储
	viper.SetDefault("database.dsn", "")
	viper.SetDefault("database.max_open_conns", 25)
	viper.SetDefault("database.max_idle_conns", 5)
	viper.SetDefault("database.conn_max_lifetime", "5m")
	viper.SetDefault("redis.enabled", false)
	viper.SetDefault("redis.address", "localhost:6379")
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)

	botToken := viper.GetString("telegram.bot_token")
	if botToken == "" {
		return nil, fmt.Errorf("telegram.bot_token must not be empty, set MAILRELAY_TELEGRAM_BOT_TOKEN")
	}

	webhookPath := viper.GetString("telegram.webhook_path")
	if !strings.HasPrefix(webhookPath, "/") {
		return nil, fmt.Errorf("telegram.webhook_path must start with '/': %q", webhookPath)
	}

	inboundSecret := viper.GetString("inbound.secret")
	if inboundSecret == "" {
		return nil, fmt.Errorf("inbound.secret must not be empty, set MAILRELAY_INBOUND_SECRET")
	}

	aliasDomain := strings.ToLower(strings.TrimSpace(viper.GetString("alias.domain")))
	if aliasDomain == "" {
		return nil, fmt.Errorf("alias.domain must not be empty, set MAILRELAY_ALIAS_DOMAIN")
	}

	listLimit := viper.GetInt("alias.list_limit")
	if listLimit <= 0 {
		listLimit = 20
	}

	maxChunkSize := viper.GetInt("alias.max_chunk_size")
	if maxChunkSize <= 0 {
		maxChunkSize = 3900
	}

	ratePerMinute := viper.GetInt("inbound.rate_per_minute")
	if ratePerMinute <= 0 {
		ratePerMinute = 60
	}

	corsOrigins := parseList(viper.GetString("cors.allowed_origins"))
	if len(corsOrigins) == 0 {
		corsOrigins = []string{"*"}
	}

	connMaxLifetime, err := time.ParseDuration(viper.GetString("database.conn_max_lifetime"))
	if err != nil {
		connMaxLifetime = 5 * time.Minute
	}

	cfg := &Config{
		Server: ServerConfig{
			Host: viper.GetString("server.host"),
			Port: viper.GetInt("server.port"),
		},
		Telegram: TelegramConfig{
			BotToken:    botToken,
			BaseURL:     strings.TrimRight(viper.GetString("telegram.base_url"), "/"),
			WebhookPath: webhookPath,
		},
		Inbound: InboundConfig{
			Secret:        inboundSecret,
			RatePerMinute: ratePerMinute,
			MaxBodyBytes:  viper.GetInt64("inbound.max_body_bytes"),
		},
		Alias: AliasConfig{
			Domain:       aliasDomain,
			SeedFile:     viper.GetString("alias.seed_file"),
			ListLimit:    listLimit,
			MaxChunkSize: maxChunkSize,
		},
		CORS: CORSConfig{
			AllowedOrigins: corsOrigins,
		},
		Log: LogConfig{
			Level:       viper.GetString("log.level"),
			Development: viper.GetBool("log.development"),
			LogFile:     viper.GetString("log.log_file"),
		},
		Database: DatabaseConfig{
			Type:            viper.GetString("database.type"),
			DSN:             viper.GetString("database.dsn"),
			MaxOpenConns:    viper.GetInt("database.max_open_conns"),
			MaxIdleConns:    viper.GetInt("database.max_idle_conns"),
			ConnMaxLifetime: connMaxLifetime,
		},
		Redis: RedisConfig{
			Enabled:  viper.GetBool("redis.enabled"),
			Address:  viper.GetString("redis.address"),
			Password: viper.GetString("redis.password"),
			DB:       viper.GetInt("redis.db"),
		},
	}

	return cfg, nil
}

// WebhookURL 返回注册到 Telegram 的完整回调地址，
// 未配置 base_url 时返回空串，表示跳过注册。
func (c *Config) WebhookURL() string {
	if c.Telegram.BaseURL == "" {
		return ""
	}
	return c.Telegram.BaseURL + c.Telegram.WebhookPath
}

// parseList 将逗号分隔的字符串解析为字符串切片
func parseList(value string) []string {
	parts := strings.Split(value, ",")
	items := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			items = append(items, trimmed)
		}
	}
	return items
}

// loadEnvFile 尝试加载当前目录或父目录的 .env 文件。
// 文件不存在时静默跳过，已存在的环境变量不会被覆盖。
func loadEnvFile() {
	if err := godotenv.Load(".env"); err == nil {
		return
	}

	parentEnv := filepath.Join("..", ".env")
	if _, err := os.Stat(parentEnv); err == nil {
		_ = godotenv.Load(parentEnv)
	}
}
