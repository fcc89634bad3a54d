// Package session persists the bearer token and the cached user between
// runs. Every store overwrites both values together.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/md-rashed-zaman/slotscheduler/services/scheduler-client/internal/model"
)

const (
	TokenKey = "service_scheduler_token"
	UserKey  = "service_scheduler_user"
)

var ErrCorrupt = errors.New("session record is corrupt")

type Session struct {
	Token string
	User  *model.User
}

func (s Session) Empty() bool {
	return s.Token == "" && s.User == nil
}

type Store interface {
	// Load returns an empty Session when nothing is stored.
	Load(ctx context.Context) (Session, error)
	Save(ctx context.Context, s Session) error
	Clear(ctx context.Context) error
}

// Pinger is implemented by stores that can report reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Token reads just the token; read errors count as no token.
func Token(ctx context.Context, store Store) string {
	s, err := store.Load(ctx)
	if err != nil {
		return ""
	}
	return s.Token
}

func encodeUser(u *model.User) (string, error) {
	if u == nil {
		return "", nil
	}
	raw, err := json.Marshal(u)
	if err != nil {
		return "", fmt.Errorf("encode user: %w", err)
	}
	return string(raw), nil
}

func decodeUser(raw string) (*model.User, error) {
	if raw == "" {
		return nil, nil
	}
	var u model.User
	if err := json.Unmarshal([]byte(raw), &u); err != nil {
		return nil, fmt.Errorf("%w: user: %v", ErrCorrupt, err)
	}
	return &u, nil
}
