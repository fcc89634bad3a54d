package session

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/md-rashed-zaman/slotscheduler/services/scheduler-client/internal/model"
)

func sampleSession() Session {
	return Session{
		Token: "header.payload.sig",
		User: &model.User{
			ID:        "u1",
			Email:     "ada@example.com",
			FirstName: "Ada",
			LastName:  "Lovelace",
			Role:      model.UserRoleAdmin,
			FullName:  "Ada Lovelace",
		},
	}
}

func exerciseStore(t *testing.T, store Store) {
	t.Helper()
	ctx := context.Background()

	empty, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("load empty: %v", err)
	}
	if !empty.Empty() {
		t.Fatalf("expected empty session, got %+v", empty)
	}

	if err := store.Save(ctx, sampleSession()); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.Token != "header.payload.sig" || got.User == nil || got.User.Email != "ada@example.com" {
		t.Fatalf("unexpected session %+v", got)
	}
	if Token(ctx, store) != "header.payload.sig" {
		t.Fatal("Token helper mismatch")
	}

	if err := store.Clear(ctx); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if err := store.Clear(ctx); err != nil {
		t.Fatalf("second clear: %v", err)
	}
	after, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("load after clear: %v", err)
	}
	if !after.Empty() {
		t.Fatalf("expected cleared session, got %+v", after)
	}
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, NewMemoryStore())
}

func TestMemoryStoreCorruptUser(t *testing.T) {
	store := NewMemoryStore()
	store.SetRaw("tok", "{not json")
	if _, err := store.Load(context.Background()); !errors.Is(err, ErrCorrupt) {
		t.Fatalf("expected ErrCorrupt, got %v", err)
	}
}

func TestFileStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "session.json")
	store := NewFileStore(path)
	exerciseStore(t, store)

	if err := store.Save(context.Background(), sampleSession()); err != nil {
		t.Fatalf("save: %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Fatalf("expected 0600, got %v", info.Mode().Perm())
	}

	raw, _ := os.ReadFile(path)
	var doc map[string]string
	if err := json.Unmarshal(raw, &doc); err != nil {
		t.Fatalf("file is not a flat JSON document: %v", err)
	}
	if doc[TokenKey] != "header.payload.sig" || !strings.Contains(doc[UserKey], `"email":"ada@example.com"`) {
		t.Fatalf("unexpected document %v", doc)
	}
}

func TestFileStoreCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	if err := os.WriteFile(path, []byte("garbage"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := NewFileStore(path).Load(context.Background()); !errors.Is(err, ErrCorrupt) {
		t.Fatalf("expected ErrCorrupt, got %v", err)
	}
}

func TestFileStoreSealed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	store := NewFileStore(path, WithPassphrase("correct horse"))
	exerciseStore(t, store)

	if err := store.Save(context.Background(), sampleSession()); err != nil {
		t.Fatalf("save: %v", err)
	}
	raw, _ := os.ReadFile(path)
	if strings.Contains(string(raw), "ada@example.com") {
		t.Fatal("sealed file leaks plaintext")
	}

	wrong := NewFileStore(path, WithPassphrase("battery staple"))
	if _, err := wrong.Load(context.Background()); !errors.Is(err, ErrCorrupt) {
		t.Fatalf("expected ErrCorrupt for wrong passphrase, got %v", err)
	}
}

func countDerivations(s *sealer) *int {
	n := new(int)
	derive := s.derive
	s.derive = func(passphrase, salt []byte) (*[32]byte, error) {
		*n++
		return derive(passphrase, salt)
	}
	return n
}

func TestFileStoreSealedDerivesKeyOnce(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	store := NewFileStore(path, WithPassphrase("correct horse"))
	derived := countDerivations(store.sealer)

	for i := 0; i < 3; i++ {
		if err := store.Save(context.Background(), sampleSession()); err != nil {
			t.Fatalf("save: %v", err)
		}
	}
	for i := 0; i < 10; i++ {
		got, err := store.Load(context.Background())
		if err != nil || got.Token != sampleSession().Token {
			t.Fatalf("load %d: %+v %v", i, got, err)
		}
	}
	if *derived != 1 {
		t.Fatalf("expected one key derivation, got %d", *derived)
	}

	// a second process sharing the file derives once for the stored salt
	other := NewFileStore(path, WithPassphrase("correct horse"))
	otherDerived := countDerivations(other.sealer)
	for i := 0; i < 5; i++ {
		if _, err := other.Load(context.Background()); err != nil {
			t.Fatalf("other load: %v", err)
		}
	}
	if err := other.Save(context.Background(), sampleSession()); err != nil {
		t.Fatalf("other save: %v", err)
	}
	if _, err := store.Load(context.Background()); err != nil {
		t.Fatalf("reload: %v", err)
	}
	if *otherDerived != 1 || *derived != 1 {
		t.Fatalf("expected no extra derivations, got %d and %d", *otherDerived, *derived)
	}
}

func TestRedisStore(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	store := NewRedisStore(rdb, "test:", time.Hour)
	exerciseStore(t, store)

	if err := store.Save(context.Background(), sampleSession()); err != nil {
		t.Fatalf("save: %v", err)
	}
	if !mr.Exists("test:"+TokenKey) || !mr.Exists("test:"+UserKey) {
		t.Fatal("expected both keys")
	}
	if ttl := mr.TTL("test:" + TokenKey); ttl != time.Hour {
		t.Fatalf("expected 1h ttl, got %s", ttl)
	}
	if err := store.Ping(context.Background()); err != nil {
		t.Fatalf("ping: %v", err)
	}

	mr.FastForward(2 * time.Hour)
	got, err := store.Load(context.Background())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !got.Empty() {
		t.Fatal("expected session to expire with ttl")
	}
}
