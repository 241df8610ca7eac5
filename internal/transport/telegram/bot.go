package telegram

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"mailrelay/backend/internal/config"
	"mailrelay/backend/internal/domain"
	"mailrelay/backend/internal/pool"
	"mailrelay/backend/internal/service"
)

// 菜单按钮文案
const (
	btnNewAlias    = "➕ 新建邮箱"
	btnListAliases = "📮 我的邮箱"
	btnDeleteAlias = "🗑 删除邮箱"
	btnHelp        = "ℹ️ 帮助"
	btnBackToMenu  = "↩️ 返回菜单"
)

// 内联按钮回调数据
const (
	cbNewAgain     = "new_again"
	cbShowList     = "show_list"
	cbBackMenu     = "back_menu"
	cbDeletePrefix = "del:"
)

// 列表消息里最多挂多少个删除按钮
const inlineDeleteLimit = 15

// 更新处理协程池的规模
const (
	updateWorkers   = 8
	updateQueueSize = 64
)

var menuKeyboard = tgbotapi.NewReplyKeyboard(
	tgbotapi.NewKeyboardButtonRow(
		tgbotapi.NewKeyboardButton(btnNewAlias),
		tgbotapi.NewKeyboardButton(btnListAliases),
	),
	tgbotapi.NewKeyboardButtonRow(
		tgbotapi.NewKeyboardButton(btnDeleteAlias),
		tgbotapi.NewKeyboardButton(btnHelp),
	),
)

var cancelKeyboard = tgbotapi.NewReplyKeyboard(
	tgbotapi.NewKeyboardButtonRow(
		tgbotapi.NewKeyboardButton(btnBackToMenu),
	),
)

// 新建成功后的快捷操作
var newAliasKeyboard = tgbotapi.NewInlineKeyboardMarkup(
	tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("➕ 再建一个", cbNewAgain),
	),
	tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData(btnListAliases, cbShowList),
	),
)

// Bot 是 Telegram 侧的用户界面，同时充当入站邮件的投递端。
type Bot struct {
	api       *tgbotapi.BotAPI
	users     *service.UserService
	allocator *service.AllocatorService
	directory *service.DirectoryService
	cfg       *config.Config
	logger    *zap.Logger
	workers   *pool.WorkerPool

	// 正在等待输入删除地址的用户
	mu            sync.Mutex
	pendingDelete map[int64]struct{}
}

// New 创建机器人实例并校验令牌。
func New(cfg *config.Config, users *service.UserService, allocator *service.AllocatorService, directory *service.DirectoryService, logger *zap.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(cfg.Telegram.BotToken)
	if err != nil {
		return nil, fmt.Errorf("create bot api: %w", err)
	}

	logger.Info("Telegram 机器人已就绪", zap.String("username", api.Self.UserName))

	return &Bot{
		api:           api,
		users:         users,
		allocator:     allocator,
		directory:     directory,
		cfg:           cfg,
		logger:        logger,
		workers:       pool.NewWorkerPool(updateWorkers, updateQueueSize),
		pendingDelete: make(map[int64]struct{}),
	}, nil
}

// Start 启动后台更新处理协程池。
func (b *Bot) Start(ctx context.Context) {
	b.workers.Start(ctx)
}

// Stop 停止协程池，等待排队的更新处理完。
// 必须在 HTTP 服务停止接收请求之后调用。
func (b *Bot) Stop() {
	b.workers.Stop()
}

// RegisterWebhook 向 Telegram 注册回调地址，丢弃积压的更新。
func (b *Bot) RegisterWebhook(url string) error {
	wh, err := tgbotapi.NewWebhook(url)
	if err != nil {
		return fmt.Errorf("build webhook config: %w", err)
	}
	wh.DropPendingUpdates = true

	if _, err := b.api.Request(wh); err != nil {
		return fmt.Errorf("set webhook: %w", err)
	}
	return nil
}

// DeleteWebhook 注销回调地址，用于优雅停机。
func (b *Bot) DeleteWebhook() error {
	_, err := b.api.Request(tgbotapi.DeleteWebhookConfig{DropPendingUpdates: true})
	return err
}

// WebhookHandler 返回处理 Telegram 更新的 gin 处理器。
// 更新交给协程池异步处理，回调立即返回，避免 Telegram 端超时重发；
// 队列满时丢弃并告警。
func (b *Bot) WebhookHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var update tgbotapi.Update
		if err := c.ShouldBindJSON(&update); err != nil {
			c.Status(400)
			return
		}

		if !b.workers.TrySubmit(func() { b.handleUpdate(update) }) {
			b.logger.Warn("更新队列已满，丢弃更新", zap.Int("update_id", update.UpdateID))
		}
		c.Status(200)
	}
}

func (b *Bot) handleUpdate(update tgbotapi.Update) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("处理更新时 panic", zap.Any("error", r))
		}
	}()

	switch {
	case update.CallbackQuery != nil:
		b.handleCallback(update.CallbackQuery)
	case update.Message != nil && update.Message.From != nil:
		b.handleMessage(update.Message)
	}
}

// handleCallback 处理内联按钮回调，处理完毕后应答以消除按钮上的加载态。
func (b *Bot) handleCallback(call *tgbotapi.CallbackQuery) {
	if call.From == nil || call.Message == nil {
		return
	}
	ownerID := call.From.ID
	chatID := call.Message.Chat.ID

	switch {
	case call.Data == cbNewAgain:
		b.handleNewAlias(ownerID, chatID)
	case call.Data == cbShowList:
		b.handleListAliases(ownerID, chatID)
	case call.Data == cbBackMenu:
		b.clearPendingIfSet(ownerID)
		b.sendMenu(chatID, "已返回菜单。")
	case strings.HasPrefix(call.Data, cbDeletePrefix):
		b.completeDelete(ownerID, chatID, strings.TrimPrefix(call.Data, cbDeletePrefix))
	}

	if _, err := b.api.Request(tgbotapi.NewCallback(call.ID, "")); err != nil {
		b.logger.Warn("应答回调失败", zap.Error(err))
	}
}

func (b *Bot) handleMessage(msg *tgbotapi.Message) {
	ownerID := msg.From.ID
	chatID := msg.Chat.ID
	text := strings.TrimSpace(msg.Text)

	// 等待删除地址的会话优先处理
	if b.clearPendingIfSet(ownerID) {
		if text == btnBackToMenu {
			b.sendMenu(chatID, "已返回菜单。")
			return
		}
		if !looksLikeEmail(text) {
			// 格式不对就重新提问，会话保持
			b.setPending(ownerID)
			b.reply(chatID, fmt.Sprintf("❌ 请输入正确的邮箱地址（例如 fox1234@%s），或点 %s。", b.cfg.Alias.Domain, btnBackToMenu))
			return
		}
		b.completeDelete(ownerID, chatID, text)
		return
	}

	switch text {
	case "/start":
		b.handleStart(ownerID, chatID)
	case btnNewAlias:
		b.handleNewAlias(ownerID, chatID)
	case btnListAliases:
		b.handleListAliases(ownerID, chatID)
	case btnDeleteAlias:
		b.handleDeleteAlias(ownerID, chatID)
	case btnHelp, "/help":
		b.sendMenu(chatID, helpText())
	case btnBackToMenu:
		b.sendMenu(chatID, "已返回菜单。")
	default:
		b.sendMenu(chatID, "请使用下方菜单操作 👇")
	}
}

func (b *Bot) handleStart(ownerID, chatID int64) {
	if err := b.users.Register(ownerID, chatID); err != nil {
		b.logger.Error("注册用户失败", zap.Int64("owner_id", ownerID), zap.Error(err))
		b.reply(chatID, "😞 服务暂时不可用，请稍后再试。")
		return
	}
	b.sendMenu(chatID, "👋 欢迎！\n\n"+helpText())
}

func (b *Bot) handleNewAlias(ownerID, chatID int64) {
	if err := b.users.Register(ownerID, chatID); err != nil {
		b.logger.Error("注册用户失败", zap.Int64("owner_id", ownerID), zap.Error(err))
		b.reply(chatID, "😞 服务暂时不可用，请稍后再试。")
		return
	}

	alias, err := b.allocator.Allocate(ownerID, b.cfg.Alias.Domain)
	if err != nil {
		if errors.Is(err, service.ErrPoolExhausted) {
			b.reply(chatID, "😞 暂时没有可分配的名字，请稍后再试或联系管理员补充。")
			return
		}
		b.logger.Error("分配地址失败", zap.Int64("owner_id", ownerID), zap.Error(err))
		b.reply(chatID, "😞 创建失败，请稍后再试。")
		return
	}

	msg := tgbotapi.NewMessage(chatID, fmt.Sprintf("✅ 新邮箱已创建：\n\n%s\n\n发到这个地址的邮件会转发到这里 📩", alias.Address))
	msg.ReplyMarkup = newAliasKeyboard
	b.send(msg)
}

func (b *Bot) handleListAliases(ownerID, chatID int64) {
	aliases, err := b.directory.ListForOwner(ownerID, b.cfg.Alias.ListLimit)
	if err != nil {
		b.logger.Error("查询地址列表失败", zap.Int64("owner_id", ownerID), zap.Error(err))
		b.reply(chatID, "😞 查询失败，请稍后再试。")
		return
	}

	if len(aliases) == 0 {
		b.reply(chatID, "你还没有邮箱，点 ➕ 新建邮箱 创建一个。")
		return
	}

	var sb strings.Builder
	sb.WriteString("📮 你的邮箱：\n\n")
	for _, a := range aliases {
		if a.IsActive {
			sb.WriteString("✅ ")
		} else {
			sb.WriteString("❌ ")
		}
		sb.WriteString(a.Address)
		sb.WriteString("\n")
	}

	msg := tgbotapi.NewMessage(chatID, sb.String())
	msg.ReplyMarkup = buildListKeyboard(aliases)
	b.send(msg)
}

// buildListKeyboard 给每个启用中的地址挂一个删除按钮，末尾是返回菜单。
func buildListKeyboard(aliases []domain.Alias) tgbotapi.InlineKeyboardMarkup {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, inlineDeleteLimit+1)
	for _, a := range aliases {
		if !a.IsActive {
			continue
		}
		if len(rows) == inlineDeleteLimit {
			break
		}
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🗑 "+a.Address, cbDeletePrefix+a.Address),
		))
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData(btnBackToMenu, cbBackMenu),
	))
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func (b *Bot) handleDeleteAlias(ownerID, chatID int64) {
	aliases, err := b.directory.ListForOwner(ownerID, b.cfg.Alias.ListLimit)
	if err != nil {
		b.logger.Error("查询地址列表失败", zap.Int64("owner_id", ownerID), zap.Error(err))
		b.reply(chatID, "😞 查询失败，请稍后再试。")
		return
	}
	if len(aliases) == 0 {
		b.reply(chatID, "你还没有可删除的邮箱。")
		return
	}

	b.setPending(ownerID)

	msg := tgbotapi.NewMessage(chatID, "请输入要停用的邮箱地址：")
	msg.ReplyMarkup = cancelKeyboard
	b.send(msg)
}

func (b *Bot) completeDelete(ownerID, chatID int64, address string) {
	hit, err := b.directory.Deactivate(address, ownerID)
	if err != nil {
		b.logger.Error("停用地址失败",
			zap.Int64("owner_id", ownerID),
			zap.String("address", address),
			zap.Error(err))
		b.sendMenu(chatID, "😞 操作失败，请稍后再试。")
		return
	}

	if hit {
		b.sendMenu(chatID, fmt.Sprintf("🗑 已停用：%s\n发到这个地址的邮件不再转发。", strings.ToLower(strings.TrimSpace(address))))
	} else {
		b.sendMenu(chatID, "❓ 没有找到这个地址，或者它不属于你。")
	}
}

// looksLikeEmail 粗略校验邮箱格式，细致核对交给存储层的精确匹配。
func looksLikeEmail(s string) bool {
	return strings.Contains(s, "@") && strings.Contains(s, ".")
}

func (b *Bot) setPending(ownerID int64) {
	b.mu.Lock()
	b.pendingDelete[ownerID] = struct{}{}
	b.mu.Unlock()
}

// clearPendingIfSet 原子地读取并清除等待状态
func (b *Bot) clearPendingIfSet(ownerID int64) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.pendingDelete[ownerID]; ok {
		delete(b.pendingDelete, ownerID)
		return true
	}
	return false
}

func (b *Bot) sendMenu(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = menuKeyboard
	b.send(msg)
}

func (b *Bot) reply(chatID int64, text string) {
	b.send(tgbotapi.NewMessage(chatID, text))
}

func (b *Bot) send(c tgbotapi.Chattable) {
	if _, err := b.api.Send(c); err != nil {
		b.logger.Warn("发送 Telegram 消息失败", zap.Error(err))
	}
}

func helpText() string {
	return "➕ 新建邮箱：从名字池分配一个新地址\n" +
		"📮 我的邮箱：查看你的所有地址\n" +
		"🗑 删除邮箱：停用一个地址\n\n" +
		"📩 发到你地址的邮件会自动转发到这里 ✅"
}

// SendChunks 按顺序投递分段消息，任何一段失败即中止并返回错误。
func (b *Bot) SendChunks(chatID int64, chunks []domain.MessageChunk) error {
	for _, chunk := range chunks {
		msg := tgbotapi.NewMessage(chatID, chunk.Label+chunk.Text)
		if _, err := b.api.Send(msg); err != nil {
			return fmt.Errorf("send chunk: %w", err)
		}
	}
	return nil
}

// SendImage 转发一张邮件里的外链图片。
func (b *Bot) SendImage(chatID int64, url string) error {
	photo := tgbotapi.NewPhoto(chatID, tgbotapi.FileURL(url))
	photo.Caption = "🖼️ 来自邮件的图片"
	if _, err := b.api.Send(photo); err != nil {
		return fmt.Errorf("send photo: %w", err)
	}
	return nil
}

var _ service.DeliverySink = (*Bot)(nil)
