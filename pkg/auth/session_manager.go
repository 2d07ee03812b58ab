package auth

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"relaychat/internal/database"
	"relaychat/internal/models"
)

// SessionCookieName is the http-only cookie carrying the bearer token.
const SessionCookieName = "session_token"

const DefaultSessionTTL = 7 * 24 * time.Hour

var (
	ErrInvalidSession = errors.New("invalid session token")
	ErrExpiredSession = errors.New("session expired")
)

// SessionManager issues, validates and revokes opaque bearer tokens
// backed by session rows in the durable store. Tokens are never cached:
// every Validate call re-checks the row and its expiry.
type SessionManager struct {
	db  *database.Database
	ttl time.Duration
}

func NewSessionManager(db *database.Database, ttl time.Duration) *SessionManager {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &SessionManager{db: db, ttl: ttl}
}

// Issue creates a new session for userID and returns its token and
// absolute expiry.
func (m *SessionManager) Issue(userID uuid.UUID) (string, time.Time, error) {
	token := uuid.NewString()
	expiresAt := time.Now().Add(m.ttl)

	session := &models.UserSession{
		UserID:    userID,
		Token:     token,
		ExpiresAt: expiresAt,
	}
	if err := m.db.SaveSession(session); err != nil {
		return "", time.Time{}, err
	}
	return token, expiresAt, nil
}

// Validate resolves token to its owning user. An expired row is pruned
// on sight and reported as ErrExpiredSession; a missing row is
// ErrInvalidSession.
func (m *SessionManager) Validate(token string) (uuid.UUID, error) {
	if token == "" {
		return uuid.Nil, ErrInvalidSession
	}

	session, err := m.db.FindSessionByToken(token)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return uuid.Nil, ErrInvalidSession
		}
		return uuid.Nil, err
	}

	if !time.Now().Before(session.ExpiresAt) {
		_ = m.db.DeleteSession(token)
		return uuid.Nil, ErrExpiredSession
	}

	return session.UserID, nil
}

// Revoke deletes the session row. Revoking an unknown token is not an
// error.
func (m *SessionManager) Revoke(token string) error {
	return m.db.DeleteSession(token)
}

// ExtractToken pulls the bearer token from the session cookie, falling
// back to the Authorization header.
func ExtractToken(r *http.Request) string {
	if cookie, err := r.Cookie(SessionCookieName); err == nil && cookie.Value != "" {
		return cookie.Value
	}

	hdr := r.Header.Get("Authorization")
	parts := strings.SplitN(hdr, " ", 2)
	if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
		return parts[1]
	}
	return ""
}
