package bot

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xaenox/billing-assistant/internal/models"
)

// historyLimit is the number of messages /history shows.
const historyLimit = 6

// conversationNamespace seeds the stable conversation id of each chat.
var conversationNamespace = uuid.MustParse("6f1c2b9e-3d4a-4e8b-9a51-7c0d2e4f6a18")

var hrefPattern = regexp.MustCompile(`(?s)<href>(.*?)</href>\s*<href-value>(.*?)</href-value>`)

// API is the part of the Telegram client the bot uses.
type API interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// ChatService answers turns and lists past ones.
type ChatService interface {
	HandleTurn(ctx context.Context, req models.ChatRequest) (*models.ChatResponse, error)
	History(ctx context.Context, conversationID string) ([]*models.Message, error)
}

type Bot struct {
	api    API
	chat   ChatService
	logger *zap.Logger
}

func New(token string, chat ChatService, logger *zap.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}
	return NewWithAPI(api, chat, logger), nil
}

func NewWithAPI(api API, chat ChatService, logger *zap.Logger) *Bot {
	return &Bot{
		api:    api,
		chat:   chat,
		logger: logger,
	}
}

// Start polls for updates until ctx is cancelled.
func (b *Bot) Start(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)
	b.logger.Info("Telegram bot started")

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			b.logger.Info("Telegram bot stopped")
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			if update.Message == nil {
				continue
			}
			go b.handleMessage(ctx, update.Message)
		}
	}
}

// ConversationID maps a Telegram chat to its conversation.
func ConversationID(chatID int64) string {
	return uuid.NewSHA1(conversationNamespace, []byte(strconv.FormatInt(chatID, 10))).String()
}

func (b *Bot) handleMessage(ctx context.Context, message *tgbotapi.Message) {
	if message.IsCommand() {
		b.handleCommand(ctx, message)
		return
	}

	content := message.Text
	if message.Caption != "" {
		content = message.Caption
	}
	if strings.TrimSpace(content) == "" {
		b.sendMessage(message.Chat.ID, "Please send your question as text.")
		return
	}

	resp, err := b.chat.HandleTurn(ctx, models.ChatRequest{
		ConversationID: ConversationID(message.Chat.ID),
		MessageID:      strconv.Itoa(message.MessageID),
		UserID:         userID(message),
		UserQuery:      content,
	})
	if err != nil {
		b.logger.Error("Failed to handle chat turn",
			zap.Error(err),
			zap.Int64("chat_id", message.Chat.ID))
		b.sendErrorMessage(message.Chat.ID, "Sorry, I couldn't answer that right now. Please try again.")
		return
	}

	msg := tgbotapi.NewMessage(message.Chat.ID, renderContent(resp.Content))
	msg.ReplyToMessageID = message.MessageID
	if _, err := b.api.Send(msg); err != nil {
		b.logger.Error("Failed to send reply",
			zap.Error(err),
			zap.Int64("chat_id", message.Chat.ID))
	}
}

func (b *Bot) handleCommand(ctx context.Context, message *tgbotapi.Message) {
	switch message.Command() {
	case "start":
		b.handleStart(message)
	case "help":
		b.handleHelp(message)
	case "history":
		b.handleHistory(ctx, message)
	default:
		b.sendMessage(message.Chat.ID, "Unknown command. Use /help to see available commands.")
	}
}

func (b *Bot) handleStart(message *tgbotapi.Message) {
	welcome := `Welcome to the billing assistant!
Ask me about invoices, statements of account, customer payment behaviour or the status of purchase orders.

Use /help to see all available commands.`

	b.sendMessage(message.Chat.ID, welcome)
}

func (b *Bot) handleHelp(message *tgbotapi.Message) {
	help := `Available commands:
/start - Start the bot
/help - Show this help message
/history - Show the latest messages of this chat

You can ask for example:
- Download invoice 9288000123
- Statement of account for customer 100234 in company 288 as of 31.03.2024
- Top 5 customers by payment days
- Status of purchase order 4500012345`

	b.sendMessage(message.Chat.ID, help)
}

func (b *Bot) handleHistory(ctx context.Context, message *tgbotapi.Message) {
	messages, err := b.chat.History(ctx, ConversationID(message.Chat.ID))
	if err != nil {
		b.logger.Error("Failed to get chat history",
			zap.Error(err),
			zap.Int64("chat_id", message.Chat.ID))
		b.sendErrorMessage(message.Chat.ID, "Sorry, I couldn't retrieve your message history.")
		return
	}

	if len(messages) == 0 {
		b.sendMessage(message.Chat.ID, "You don't have any messages yet.")
		return
	}
	if len(messages) > historyLimit {
		messages = messages[len(messages)-historyLimit:]
	}

	response := "*Your recent messages:*\n\n"
	for _, msg := range messages {
		response += fmt.Sprintf("*%s*\n", escapeMarkdown(msg.Role))
		response += fmt.Sprintf("_%s_\n\n", escapeMarkdown(renderContent(msg.Content)))
	}

	msg := tgbotapi.NewMessage(message.Chat.ID, response)
	msg.ParseMode = tgbotapi.ModeMarkdownV2
	if _, err := b.api.Send(msg); err != nil {
		b.logger.Error("Failed to send history message",
			zap.Error(err),
			zap.Int64("chat_id", message.Chat.ID))
	}
}

// renderContent turns link replies into plain "label: url" lines.
func renderContent(content string) string {
	return hrefPattern.ReplaceAllString(content, "$1: $2")
}

func userID(message *tgbotapi.Message) string {
	if message.From == nil {
		return ""
	}
	if message.From.UserName != "" {
		return message.From.UserName
	}
	return strconv.FormatInt(message.From.ID, 10)
}

// escapeMarkdown escapes the MarkdownV2 special characters.
func escapeMarkdown(text string) string {
	specialChars := []string{"\\", "_", "*", "[", "]", "(", ")", "~", "`", ">", "#", "+", "-", "=", "|", "{", "}", ".", "!"}
	escaped := text
	for _, char := range specialChars {
		escaped = strings.ReplaceAll(escaped, char, "\\"+char)
	}
	return escaped
}

func (b *Bot) sendMessage(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := b.api.Send(msg); err != nil {
		b.logger.Error("Failed to send message",
			zap.Error(err),
			zap.Int64("chat_id", chatID))
	}
}

func (b *Bot) sendErrorMessage(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, "⚠️ "+text)
	if _, err := b.api.Send(msg); err != nil {
		b.logger.Error("Failed to send error message",
			zap.Error(err),
			zap.Int64("chat_id", chatID))
	}
}
