package users

import (
	"context"
	"errors"
	"time"

	log "github.com/sirupsen/logrus"
)

type userGetter interface {
	Get(ctx context.Context, userID int64) (*User, error)
}

// Locations resolves the timezone a user's plan times and dates are expressed in.
type Locations struct {
	users    userGetter
	fallback *time.Location
}

func NewLocations(users userGetter, fallback *time.Location) *Locations {
	if fallback == nil {
		fallback = time.UTC
	}
	return &Locations{
		users:    users,
		fallback: fallback,
	}
}

// Location never fails: unknown users, unset and invalid timezones
// all resolve to the configured default.
func (l *Locations) Location(ctx context.Context, userID int64) *time.Location {
	user, err := l.users.Get(ctx, userID)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			log.Warnf("resolve location of user %d: %s", userID, err)
		}
		return l.fallback
	}
	if user.Timezone == "" {
		return l.fallback
	}

	loc, err := time.LoadLocation(user.Timezone)
	if err != nil {
		log.Warnf("user %d has invalid timezone [%s]: %s", userID, user.Timezone, err)
		return l.fallback
	}
	return loc
}
