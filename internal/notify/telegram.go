// Package notify delivers best-effort Telegram notifications for completed
// analyses. Delivery failures are reported to the caller for logging only and
// never affect the submission result.
package notify

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/example/screenshotai/internal/models"
)

// Notifier sends analysis notifications to a configured Telegram chat.
type Notifier struct {
	bot    *tgbotapi.BotAPI
	chatID int64
	log    *zap.Logger
}

// New creates a Notifier. The chat ID must be the numeric Telegram chat
// identifier.
func New(token, chatID string, log *zap.Logger) (*Notifier, error) {
	return newWithEndpoint(token, chatID, tgbotapi.APIEndpoint, log)
}

// NewWithEndpoint creates a Notifier against a custom Bot API endpoint.
func NewWithEndpoint(token, chatID, endpoint string, log *zap.Logger) (*Notifier, error) {
	return newWithEndpoint(token, chatID, endpoint, log)
}

func newWithEndpoint(token, chatID, endpoint string, log *zap.Logger) (*Notifier, error) {
	id, err := strconv.ParseInt(chatID, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid telegram chat id %q: %w", chatID, err)
	}

	bot, err := tgbotapi.NewBotAPIWithAPIEndpoint(token, endpoint)
	if err != nil {
		return nil, fmt.Errorf("connecting to telegram: %w", err)
	}

	return &Notifier{bot: bot, chatID: id, log: log}, nil
}

// Send composes and delivers the notification for a completed record.
func (n *Notifier) Send(rec *models.AnalysisRecord) error {
	msg := tgbotapi.NewMessage(n.chatID, composeMessage(rec))
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyMarkup = buildKeyboard(rec)

	if _, err := n.bot.Send(msg); err != nil {
		return fmt.Errorf("sending telegram message: %w", err)
	}

	n.log.Info("telegram notification sent",
		zap.String("analysis_id", rec.ID),
		zap.String("source", rec.Source))
	return nil
}

func composeMessage(rec *models.AnalysisRecord) string {
	emoji, name := "📱", "iPhone Screenshot"
	if strings.HasPrefix(rec.Source, "desktop") {
		emoji, name = "🖥️", "Desktop Screenshot"
	}

	caption := fmt.Sprintf("<b>%s %s</b> <i>%s</i>", emoji, name, time.Now().UTC().Format("15:04:05"))
	return fmt.Sprintf("%s\n\n<b>AI Analysis:</b>\n\n%s", caption, rec.BriefSummary)
}

// buildKeyboard attaches the research actions, plus the webpage action when a
// URL was detected. Callback data carries the record ID so a follow-up bot
// can resolve the analysis later.
func buildKeyboard(rec *models.AnalysisRecord) tgbotapi.InlineKeyboardMarkup {
	rows := [][]tgbotapi.InlineKeyboardButton{
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🔬 Research Papers", "arxiv_research_"+rec.ID)),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🧠 Deep Research", "deep_research_"+rec.ID)),
	}
	if rec.Content.WebpageURL != "" {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🌐 Webpage Content", "full_webpage_"+rec.ID)))
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}
