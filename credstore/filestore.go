package credstore

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/anyauth/gateway/anyauth"
	errs "github.com/anyauth/gateway/internal/errors"
)

// FileStore persists one JSON-serialized token per session id under a
// cache directory. Writes go through a temp file, an fsync and a rename so
// a token is durably on disk before Put returns.
type FileStore struct {
	dir    string
	logger zerolog.Logger
}

var _ anyauth.TokenStore = (*FileStore)(nil)

// FileStoreOption configures a FileStore.
type FileStoreOption func(*FileStore)

// WithFileStoreLogger sets a structured logger.
func WithFileStoreLogger(logger zerolog.Logger) FileStoreOption {
	return func(s *FileStore) { s.logger = logger }
}

// NewFileStore creates the cache directory if needed and returns a store
// rooted at it.
func NewFileStore(dir string, options ...FileStoreOption) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, errs.Wrapf(err, "[NewFileStore] create cache dir %q", dir)
	}
	s := &FileStore{dir: dir, logger: zerolog.Nop()}
	for _, option := range options {
		option(s)
	}
	return s, nil
}

// Get returns the token stored for the session id. A missing file and a
// file that fails token-shape validation both read as a miss.
func (s *FileStore) Get(_ context.Context, sessionID string) (*anyauth.Token, error) {
	if err := validateSessionID(sessionID); err != nil {
		return nil, errs.Wrapf(err, "[FileStore Get]")
	}

	data, err := os.ReadFile(s.path(sessionID))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, errs.Wrapf(err, "[FileStore Get] read %q", sessionID)
	}

	token, err := anyauth.ParseToken(data)
	if err != nil {
		s.logger.Warn().Err(err).Str("session_id", sessionID).Msg("stored token failed validation, treating as miss")
		return nil, nil
	}
	return token, nil
}

// Put writes the token for the session id, replacing any prior value.
func (s *FileStore) Put(_ context.Context, sessionID string, token *anyauth.Token) error {
	if err := validateSessionID(sessionID); err != nil {
		return errs.Wrapf(err, "[FileStore Put]")
	}

	data, err := json.Marshal(token)
	if err != nil {
		return errs.Wrapf(err, "[FileStore Put] marshal token")
	}

	tmp, err := os.CreateTemp(s.dir, sessionID+".*.tmp")
	if err != nil {
		return errs.Wrapf(err, "[FileStore Put] create temp file")
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return errs.Wrapf(err, "[FileStore Put] write temp file")
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return errs.Wrapf(err, "[FileStore Put] sync temp file")
	}
	if err := tmp.Close(); err != nil {
		return errs.Wrapf(err, "[FileStore Put] close temp file")
	}

	if err := os.Rename(tmp.Name(), s.path(sessionID)); err != nil {
		return errs.Wrapf(err, "[FileStore Put] rename into place")
	}
	return nil
}

func (s *FileStore) path(sessionID string) string {
	return filepath.Join(s.dir, sessionID+".json")
}
