package session

import (
	"context"
	"sync"
)

type MemoryStore struct {
	mu    sync.Mutex
	token string
	user  string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) Load(_ context.Context) (Session, error) {
	m.mu.Lock()
	token, rawUser := m.token, m.user
	m.mu.Unlock()

	user, err := decodeUser(rawUser)
	if err != nil {
		return Session{}, err
	}
	return Session{Token: token, User: user}, nil
}

func (m *MemoryStore) Save(_ context.Context, s Session) error {
	rawUser, err := encodeUser(s.User)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.token, m.user = s.Token, rawUser
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Clear(_ context.Context) error {
	m.mu.Lock()
	m.token, m.user = "", ""
	m.mu.Unlock()
	return nil
}

// SetRaw stores values verbatim, bypassing encoding.
func (m *MemoryStore) SetRaw(token, rawUser string) {
	m.mu.Lock()
	m.token, m.user = token, rawUser
	m.mu.Unlock()
}
