package session

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// TokenKey is the persisted key holding the bearer token.
const TokenKey = "userToken"

// MemoryStore holds a single session, replaced whenever a newer token is seen.
type MemoryStore struct {
	mu     sync.RWMutex
	token  string
	userID string
	parser Parser
}

func NewMemoryStore(p Parser) *MemoryStore {
	return &MemoryStore{parser: p}
}

func (s *MemoryStore) Set(token, userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
	s.userID = userID
}

func (s *MemoryStore) Clear() {
	s.Set("", "")
}

func (s *MemoryStore) Current(_ context.Context) (Session, error) {
	s.mu.RLock()
	token, uid := s.token, s.userID
	s.mu.RUnlock()
	if strings.TrimSpace(token) == "" {
		return Session{}, ErrMissingToken
	}
	if uid == "" {
		id, err := s.parser.UserID(token)
		if err != nil {
			return Session{}, err
		}
		uid = id
	}
	return Session{Token: token, UserID: uid}, nil
}

// FileStore is a persisted key-value file shared with the login flow.
// It is re-read on every call.
type FileStore struct {
	Path   string
	Parser Parser
}

func (s *FileStore) Current(_ context.Context) (Session, error) {
	kv, err := s.read()
	if err != nil {
		return Session{}, err
	}
	token := strings.TrimSpace(kv[TokenKey])
	if token == "" {
		return Session{}, ErrMissingToken
	}
	uid := kv["userId"]
	if uid == "" {
		if uid, err = s.Parser.UserID(token); err != nil {
			return Session{}, err
		}
	}
	return Session{Token: token, UserID: uid}, nil
}

func (s *FileStore) Save(token, userID string) error {
	kv, err := s.read()
	if err != nil {
		return err
	}
	kv[TokenKey] = token
	if userID != "" {
		kv["userId"] = userID
	} else {
		delete(kv, "userId")
	}
	raw, err := json.MarshalIndent(kv, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(s.Path), 0o700); err != nil {
		return err
	}
	return os.WriteFile(s.Path, raw, 0o600)
}

func (s *FileStore) read() (map[string]string, error) {
	kv := map[string]string{}
	raw, err := os.ReadFile(s.Path)
	if errors.Is(err, os.ErrNotExist) {
		return kv, nil
	}
	if err != nil {
		return nil, err
	}
	if len(strings.TrimSpace(string(raw))) == 0 {
		return kv, nil
	}
	if err := json.Unmarshal(raw, &kv); err != nil {
		return nil, err
	}
	return kv, nil
}

// Static always returns the same session. Tests use it to inject identities.
type Static Session

func (s Static) Current(_ context.Context) (Session, error) {
	if strings.TrimSpace(s.Token) == "" {
		return Session{}, ErrMissingToken
	}
	return Session(s), nil
}
