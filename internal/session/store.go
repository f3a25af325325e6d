// internal/session/store.go
//
// Session rows in the tenant database.
//
// Schema reference
//
//	CREATE TABLE session (
//	    session_key   VARCHAR(40) PRIMARY KEY,
//	    session_data  TEXT        NOT NULL,
//	    expire_date   TIMESTAMP   NOT NULL,
//	    KEY (expire_date)
//	);
//
// Notes
// -----
// • Load treats a missing and an expired row the same way (ErrNotFound);
//   callers start a fresh anonymous session either way.

package session

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// ErrNotFound is returned for unknown or expired keys.
var ErrNotFound = errors.New("session: not found")

// UserKey is the data key holding the authenticated user's id.
const UserKey = "_auth_user_id"

// Session is one decoded row.
type Session struct {
	Key       string         `json:"key"`
	Data      map[string]any `json:"data"`
	ExpiresAt time.Time      `json:"expires_at"`
}

// UserID returns the authenticated user id stored in the session.
func (s *Session) UserID() (int64, bool) {
	switch v := s.Data[UserKey].(type) {
	case float64: // JSON numbers
		return int64(v), true
	case int64:
		return v, true
	case int:
		return int64(v), true
	case string:
		id, err := strconv.ParseInt(v, 10, 64)
		return id, err == nil
	}
	return 0, false
}

// Store loads and saves sessions for one tenant.
type Store struct {
	db    *sqlx.DB
	codec Codec
	now   func() time.Time
}

// NewStore binds codec to a tenant pool.
func NewStore(db *sqlx.DB, codec Codec) *Store {
	return &Store{db: db, codec: codec, now: time.Now}
}

// NewKey returns a fresh random session key.
func NewKey() string { return strings.ReplaceAll(uuid.NewString(), "-", "") }

// Load reads and verifies the session stored under key.
func (s *Store) Load(ctx context.Context, key string) (*Session, error) {
	var row struct {
		Data   string    `db:"session_data"`
		Expire time.Time `db:"expire_date"`
	}
	err := s.db.GetContext(ctx, &row,
		`SELECT session_data, expire_date FROM session WHERE session_key = ? AND expire_date > ?`,
		key, s.now())
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("session: load: %w", err)
	}

	data, err := s.codec.Decode(key, row.Data)
	if err != nil {
		return nil, err
	}
	return &Session{Key: key, Data: data, ExpiresAt: row.Expire}, nil
}

// Save upserts sess, signing its data until sess.ExpiresAt.
func (s *Store) Save(ctx context.Context, sess *Session) error {
	token, err := s.codec.Encode(sess.Key, sess.Data, sess.ExpiresAt)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`REPLACE INTO session (session_key, session_data, expire_date) VALUES (?, ?, ?)`,
		sess.Key, token, sess.ExpiresAt)
	if err != nil {
		return fmt.Errorf("session: save: %w", err)
	}
	return nil
}

// Delete removes the row for key.
func (s *Store) Delete(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM session WHERE session_key = ?`, key)
	return err
}

// ClearExpired purges rows past their expiry and returns the count.
func (s *Store) ClearExpired(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM session WHERE expire_date <= ?`, s.now())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
