package users

import (
	"errors"
	"time"
)

var ErrNotFound = errors.New("user not found")

// User is a messaging channel user. ID is the Telegram user id,
// which doubles as the private chat id.
type User struct {
	ID        int64     `json:"id"`
	FirstName string    `json:"firstName"`
	Username  string    `json:"username"`
	Timezone  string    `json:"timezone"`
	CreatedAt time.Time `json:"createdAt"`
}
