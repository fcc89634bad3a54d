package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// FileStore keeps the session as a small JSON document keyed like browser
// local storage. With a passphrase the document is sealed at rest.
type FileStore struct {
	path   string
	sealer *sealer
}

type FileOption func(*FileStore)

func WithPassphrase(passphrase string) FileOption {
	return func(f *FileStore) {
		if passphrase != "" {
			f.sealer = newSealer([]byte(passphrase))
		}
	}
}

func NewFileStore(path string, opts ...FileOption) *FileStore {
	f := &FileStore{path: path}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// DefaultPath is $XDG_CONFIG_HOME/slotscheduler/session.json or the platform
// equivalent.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("resolve config dir: %w", err)
	}
	return filepath.Join(dir, "slotscheduler", "session.json"), nil
}

func (f *FileStore) Path() string {
	return f.path
}

type sealedFile struct {
	Sealed string `json:"sealed"`
}

func (f *FileStore) Load(_ context.Context) (Session, error) {
	raw, err := os.ReadFile(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return Session{}, nil
	}
	if err != nil {
		return Session{}, fmt.Errorf("read session file: %w", err)
	}

	if f.sealer != nil {
		var env sealedFile
		if err := json.Unmarshal(raw, &env); err != nil || env.Sealed == "" {
			return Session{}, fmt.Errorf("%w: expected sealed document", ErrCorrupt)
		}
		if raw, err = f.sealer.open(env.Sealed); err != nil {
			return Session{}, err
		}
	}

	var doc map[string]string
	if err := json.Unmarshal(raw, &doc); err != nil {
		return Session{}, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	user, err := decodeUser(doc[UserKey])
	if err != nil {
		return Session{}, err
	}
	return Session{Token: doc[TokenKey], User: user}, nil
}

func (f *FileStore) Save(_ context.Context, s Session) error {
	rawUser, err := encodeUser(s.User)
	if err != nil {
		return err
	}
	raw, err := json.Marshal(map[string]string{
		TokenKey: s.Token,
		UserKey:  rawUser,
	})
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}

	if f.sealer != nil {
		sealed, err := f.sealer.seal(raw)
		if err != nil {
			return err
		}
		if raw, err = json.Marshal(sealedFile{Sealed: sealed}); err != nil {
			return fmt.Errorf("encode sealed session: %w", err)
		}
	}
	return writeFileAtomic(f.path, raw)
}

func (f *FileStore) Clear(_ context.Context) error {
	if err := os.Remove(f.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove session file: %w", err)
	}
	return nil
}

func (f *FileStore) Ping(_ context.Context) error {
	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("session dir: %w", err)
	}
	return nil
}

func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create session dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".session-*")
	if err != nil {
		return fmt.Errorf("create temp session file: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if err := tmp.Chmod(0o600); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("chmod session file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write session file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close session file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replace session file: %w", err)
	}
	return nil
}
