package session

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"unicode/utf8"

	"github.com/avolkov/lanferry/internal/client/repositories/identity"
	"github.com/avolkov/lanferry/internal/dbx"
	"github.com/avolkov/lanferry/internal/netx"
)

// Durable key names in the identity table.
const (
	keyBaseURL        = "base_url"
	keyPrincipalID    = "principal_id"
	keyClientDeviceID = "client_device_id"
)

// Store owns the live session. All access goes through it; callers get
// value copies, never shared pointers.
type Store struct {
	mu   sync.Mutex
	db   *sql.DB
	repo identity.Repository
	sess Session
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db, repo: identity.NewSQLiteRepository(db)}
}

// Load restores the durable identity fields from the local database.
// Corrupt values are defensively discarded rather than propagated.
func (s *Store) Load(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	baseURL, err := s.repo.Get(ctx, keyBaseURL)
	if err != nil {
		return fmt.Errorf("load session: %w", err)
	}
	principalID, err := s.repo.Get(ctx, keyPrincipalID)
	if err != nil {
		return fmt.Errorf("load session: %w", err)
	}
	deviceID, err := s.repo.Get(ctx, keyClientDeviceID)
	if err != nil {
		return fmt.Errorf("load session: %w", err)
	}

	if normalized, err := netx.NormalizeBaseURL(string(baseURL)); err == nil {
		s.sess.BaseURL = normalized
	}
	if v := string(principalID); utf8.ValidString(v) {
		s.sess.PrincipalID = v
	}
	if v := string(deviceID); utf8.ValidString(v) {
		s.sess.ClientDeviceID = v
	}
	return nil
}

// Session returns a copy of the current session.
func (s *Store) Session() Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sess
}

// SetIdentity replaces the identity fields and persists the non-secret ones
// in a single transaction. The device secret stays volatile and the access
// token stays in memory.
func (s *Store) SetIdentity(ctx context.Context, sess Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := identity.NewSQLiteRepository(tx)
		if err := repo.Set(ctx, keyBaseURL, []byte(sess.BaseURL)); err != nil {
			return err
		}
		if err := repo.Set(ctx, keyPrincipalID, []byte(sess.PrincipalID)); err != nil {
			return err
		}
		return repo.Set(ctx, keyClientDeviceID, []byte(sess.ClientDeviceID))
	})
	if err != nil {
		return fmt.Errorf("persist identity: %w", err)
	}
	s.sess = sess
	return nil
}

// SetBaseURL updates only the coordinator URL (durable).
func (s *Store) SetBaseURL(ctx context.Context, baseURL string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.repo.Set(ctx, keyBaseURL, []byte(baseURL)); err != nil {
		return fmt.Errorf("persist base url: %w", err)
	}
	s.sess.BaseURL = baseURL
	return nil
}

// SetToken stores the access token in memory only.
func (s *Store) SetToken(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sess.AccessToken = token
}

func (s *Store) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sess.AccessToken
}

func (s *Store) BaseURL() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sess.BaseURL
}

// ClearToken drops the in-memory access token, e.g. after a 401.
func (s *Store) ClearToken() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sess.AccessToken = ""
}

// ClearIdentity drops the in-memory identity and secret but keeps the
// saved coordinator URL, so recovery can re-pair against the same host.
func (s *Store) ClearIdentity() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sess.PrincipalID = ""
	s.sess.ClientDeviceID = ""
	s.sess.DeviceSecret = ""
	s.sess.AccessToken = ""
}

// Reset wipes the session wholesale: durable fields, volatile secret and
// token.
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.repo.Clear(ctx); err != nil {
		return fmt.Errorf("reset session: %w", err)
	}
	s.sess = Session{}
	return nil
}
