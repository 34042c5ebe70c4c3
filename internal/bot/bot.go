package bot

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strconv"
	"strings"
	"time"

	"github.com/2beens/trainplan/internal/messaging"
	"github.com/2beens/trainplan/internal/scheduler"
	"github.com/2beens/trainplan/internal/session"
	"github.com/2beens/trainplan/internal/telemetry/tracing"
	"github.com/2beens/trainplan/internal/users"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
)

//go:generate mockgen -source=$GOFILE -destination=mocks_test.go -package=bot_test

const helpText = `/workout - start today's workout now
/workout 0-6 - start the workout of a plan day (0 is Monday)
/timezone Europe/Belgrade - set your timezone
/help - this message`

type telegramClient interface {
	Updates() tgbotapi.UpdatesChannel
	StopUpdates()
	AnswerCallback(callbackID, text string) error
	Send(ctx context.Context, userID int64, prompt messaging.Prompt) error
}

type actionHandler interface {
	HandleAction(ctx context.Context, action session.Action) error
}

type starter interface {
	StartNow(ctx context.Context, userID int64, dayOfWeek *int) (*session.Session, error)
}

type userRegistry interface {
	Upsert(ctx context.Context, user users.User) error
}

type planRefresher interface {
	Refresh(ctx context.Context, userID int64) error
}

// Bot turns telegram updates into session actions and commands.
type Bot struct {
	telegram telegramClient
	sessions actionHandler
	starter  starter
	users    userRegistry
	plans    planRefresher
}

type NewBotParams struct {
	Telegram telegramClient
	Sessions actionHandler
	Starter  starter
	Users    userRegistry
	Plans    planRefresher
}

func NewBot(params NewBotParams) *Bot {
	return &Bot{
		telegram: params.Telegram,
		sessions: params.Sessions,
		starter:  params.Starter,
		users:    params.Users,
		plans:    params.Plans,
	}
}

// Run consumes updates until ctx is done or the updates channel closes.
func (b *Bot) Run(ctx context.Context) {
	updates := b.telegram.Updates()
	log.Infoln("telegram bot listening for updates")

	for {
		select {
		case <-ctx.Done():
			b.telegram.StopUpdates()
			log.Debugln("telegram bot stopped")
			return
		case update, ok := <-updates:
			if !ok {
				log.Warnln("telegram updates channel closed")
				return
			}
			b.HandleUpdate(ctx, update)
		}
	}
}

func (b *Bot) HandleUpdate(ctx context.Context, update tgbotapi.Update) {
	switch {
	case update.CallbackQuery != nil:
		b.handleCallback(ctx, update.CallbackQuery)
	case update.Message != nil && update.Message.IsCommand():
		b.handleCommand(ctx, update.Message)
	}
}

func (b *Bot) handleCallback(ctx context.Context, query *tgbotapi.CallbackQuery) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "bot.callback")
	defer span.End()

	answer := "Got it"
	defer func() {
		if err := b.telegram.AnswerCallback(query.ID, answer); err != nil {
			log.Warnf("bot: %s", err)
		}
	}()

	if query.From == nil {
		answer = "Unknown user"
		return
	}

	cb, err := messaging.DecodeCallback(query.Data)
	if err != nil {
		log.Warnf("bot: callback from user %d: %s", query.From.ID, err)
		answer = "Unknown button"
		return
	}
	kind, err := session.ParseActionKind(cb.Action)
	if err != nil {
		answer = "Unknown button"
		return
	}
	span.SetAttributes(attribute.String("session.id", cb.SessionID))

	err = b.sessions.HandleAction(ctx, session.Action{
		UserID:    query.From.ID,
		SessionID: cb.SessionID,
		Index:     cb.Index,
		Kind:      kind,
	})
	switch {
	case errors.Is(err, session.ErrStaleAction):
		answer = "Already handled"
	case err != nil:
		log.Errorf("bot: action of user %d: %s", query.From.ID, err)
		answer = "Something went wrong"
	case kind == session.ActionSkip:
		answer = "Skipped"
	default:
		answer = "Nice work!"
	}
}

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "bot.command")
	defer span.End()
	span.SetAttributes(attribute.String("command", msg.Command()))

	if msg.From == nil {
		return
	}
	userID := msg.From.ID

	switch msg.Command() {
	case "start":
		if err := b.users.Upsert(ctx, users.User{
			ID:        userID,
			FirstName: msg.From.FirstName,
			Username:  msg.From.UserName,
		}); err != nil {
			log.Errorf("bot: register user %d: %s", userID, err)
			b.reply(ctx, userID, "Could not register you right now, please try again later.")
			return
		}
		b.reply(ctx, userID, fmt.Sprintf(
			"Hi %s! I will remind you about your workouts and guide you through them.\n\n%s",
			html.EscapeString(msg.From.FirstName), helpText,
		))
	case "workout":
		b.startWorkout(ctx, userID, strings.TrimSpace(msg.CommandArguments()))
	case "timezone":
		b.setTimezone(ctx, msg.From, strings.TrimSpace(msg.CommandArguments()))
	case "help":
		b.reply(ctx, userID, helpText)
	default:
		b.reply(ctx, userID, "Unknown command.\n\n"+helpText)
	}
}

func (b *Bot) startWorkout(ctx context.Context, userID int64, arg string) {
	var day *int
	if arg != "" {
		d, err := strconv.Atoi(arg)
		if err != nil || d < 0 || d > 6 {
			b.reply(ctx, userID, "Day must be a number from 0 (Monday) to 6 (Sunday).")
			return
		}
		day = &d
	}

	_, err := b.starter.StartNow(ctx, userID, day)
	switch {
	case errors.Is(err, scheduler.ErrNothingScheduled):
		b.reply(ctx, userID, "No workout planned for that day. Enjoy the rest!")
	case err != nil:
		log.Errorf("bot: start workout of user %d: %s", userID, err)
		b.reply(ctx, userID, "Could not start the workout right now, please try again later.")
	}
}

func (b *Bot) setTimezone(ctx context.Context, from *tgbotapi.User, tz string) {
	if tz == "" {
		b.reply(ctx, from.ID, "Usage: /timezone Europe/Belgrade")
		return
	}
	if _, err := time.LoadLocation(tz); err != nil {
		b.reply(ctx, from.ID, fmt.Sprintf("Unknown timezone: %s", html.EscapeString(tz)))
		return
	}

	if err := b.users.Upsert(ctx, users.User{
		ID:        from.ID,
		FirstName: from.FirstName,
		Username:  from.UserName,
		Timezone:  tz,
	}); err != nil {
		log.Errorf("bot: set timezone of user %d: %s", from.ID, err)
		b.reply(ctx, from.ID, "Could not save your timezone right now, please try again later.")
		return
	}

	// triggers are armed in the user's timezone
	if err := b.plans.Refresh(ctx, from.ID); err != nil {
		log.Errorf("bot: refresh triggers of user %d: %s", from.ID, err)
	}
	b.reply(ctx, from.ID, fmt.Sprintf("Timezone set to %s.", html.EscapeString(tz)))
}

func (b *Bot) reply(ctx context.Context, userID int64, text string) {
	if err := b.telegram.Send(ctx, userID, messaging.Prompt{Kind: messaging.PromptInfo, Text: text}); err != nil {
		log.Warnf("bot: reply to user %d: %s", userID, err)
	}
}
