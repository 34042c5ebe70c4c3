package messaging

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	log "github.com/sirupsen/logrus"
)

var ErrInvalidCallback = errors.New("invalid callback data")

type PromptKind string

const (
	PromptExercise  PromptKind = "exercise"
	PromptRest      PromptKind = "rest"
	PromptCompleted PromptKind = "completed"
	PromptAbandoned PromptKind = "abandoned"
	PromptInfo      PromptKind = "info"
)

const (
	ActionComplete = "done"
	ActionSkip     = "skip"
)

const callbackPrefix = "tp"

type Button struct {
	Label string
	Data  string
}

type Prompt struct {
	Kind    PromptKind
	Text    string
	Buttons []Button
}

// Callback is the (session, exercise index, action) triple carried by a prompt button.
type Callback struct {
	SessionID string
	Index     int
	Action    string
}

// Encode fits into the 64 byte limit of telegram callback data.
func (c Callback) Encode() string {
	return fmt.Sprintf("%s:%s:%d:%s", callbackPrefix, c.Action, c.Index, c.SessionID)
}

func DecodeCallback(data string) (Callback, error) {
	parts := strings.SplitN(data, ":", 4)
	if len(parts) != 4 || parts[0] != callbackPrefix {
		return Callback{}, fmt.Errorf("%w: %q", ErrInvalidCallback, data)
	}

	action := parts[1]
	if action != ActionComplete && action != ActionSkip {
		return Callback{}, fmt.Errorf("%w: unknown action %q", ErrInvalidCallback, action)
	}
	index, err := strconv.Atoi(parts[2])
	if err != nil || index < 0 {
		return Callback{}, fmt.Errorf("%w: bad index %q", ErrInvalidCallback, parts[2])
	}
	if parts[3] == "" {
		return Callback{}, fmt.Errorf("%w: empty session id", ErrInvalidCallback)
	}

	return Callback{
		SessionID: parts[3],
		Index:     index,
		Action:    action,
	}, nil
}

// LogChannel only logs prompts. Used when telegram is disabled.
type LogChannel struct{}

func (LogChannel) Send(_ context.Context, userID int64, prompt Prompt) error {
	buttons := make([]string, 0, len(prompt.Buttons))
	for _, b := range prompt.Buttons {
		buttons = append(buttons, fmt.Sprintf("[%s -> %s]", b.Label, b.Data))
	}
	log.Infof("prompt to user %d (%s): %s %s", userID, prompt.Kind, prompt.Text, strings.Join(buttons, " "))
	return nil
}
