package messaging

import (
	"context"
	"fmt"
	"net/http"

	"github.com/2beens/trainplan/internal/telemetry/tracing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
)

//go:generate mockgen -source=$GOFILE -destination=mocks_test.go -package=messaging_test

const updatesTimeoutSeconds = 30

type botAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// Telegram delivers prompts as private chat messages with inline keyboards.
type Telegram struct {
	api botAPI
}

// NewTelegram logs in with token. httpClient should be instrumented by the caller.
func NewTelegram(token string, debug bool, httpClient *http.Client) (*Telegram, error) {
	api, err := tgbotapi.NewBotAPIWithClient(token, tgbotapi.APIEndpoint, httpClient)
	if err != nil {
		return nil, fmt.Errorf("telegram login: %w", err)
	}
	api.Debug = debug
	log.Infof("telegram: authorized as @%s", api.Self.UserName)

	return NewTelegramWithAPI(api), nil
}

func NewTelegramWithAPI(api botAPI) *Telegram {
	return &Telegram{
		api: api,
	}
}

func (t *Telegram) Send(ctx context.Context, userID int64, prompt Prompt) (err error) {
	_, span := tracing.GlobalTracer.Start(ctx, "messaging.telegram.send")
	defer func() { tracing.EndSpanWithErrCheck(span, err) }()
	span.SetAttributes(attribute.Int64("user.id", userID))
	span.SetAttributes(attribute.String("prompt.kind", string(prompt.Kind)))

	msg := tgbotapi.NewMessage(userID, prompt.Text)
	msg.ParseMode = tgbotapi.ModeHTML
	if len(prompt.Buttons) > 0 {
		row := make([]tgbotapi.InlineKeyboardButton, 0, len(prompt.Buttons))
		for _, b := range prompt.Buttons {
			row = append(row, tgbotapi.NewInlineKeyboardButtonData(b.Label, b.Data))
		}
		msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(row)
	}

	if _, err := t.api.Send(msg); err != nil {
		return fmt.Errorf("telegram send to %d: %w", userID, err)
	}
	return nil
}

// AnswerCallback stops the client side spinner of a pressed button.
func (t *Telegram) AnswerCallback(callbackID, text string) error {
	if _, err := t.api.Request(tgbotapi.NewCallback(callbackID, text)); err != nil {
		return fmt.Errorf("answer callback %s: %w", callbackID, err)
	}
	return nil
}

// Updates starts long polling. The channel is closed by StopUpdates.
func (t *Telegram) Updates() tgbotapi.UpdatesChannel {
	cfg := tgbotapi.NewUpdate(0)
	cfg.Timeout = updatesTimeoutSeconds
	cfg.AllowedUpdates = []string{"message", "callback_query"}
	return t.api.GetUpdatesChan(cfg)
}

func (t *Telegram) StopUpdates() {
	t.api.StopReceivingUpdates()
}
