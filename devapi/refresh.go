package devapi

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"
	"time"
)

var errUnknownRefreshToken = errors.New("unknown refresh token")

type storedRefreshToken struct {
	Token  string
	UserID int64
	Iat    time.Time
}

// refreshManager issues opaque refresh tokens and rotates them on use.
// Each user holds at most one.
type refreshManager struct {
	lock    sync.Mutex
	tokens  map[string]*storedRefreshToken
	userIDs map[int64]string // user ID to token
	length  int
	expiry  time.Duration
	nowFunc func() time.Time
}

func newRefreshManager(expiry time.Duration, now func() time.Time) *refreshManager {
	return &refreshManager{
		tokens:  make(map[string]*storedRefreshToken),
		userIDs: make(map[int64]string),
		length:  32,
		expiry:  expiry,
		nowFunc: now,
	}
}

func (m *refreshManager) Create(userID int64) (string, error) {
	m.lock.Lock()
	defer m.lock.Unlock()
	return m.create(userID)
}

func (m *refreshManager) create(userID int64) (string, error) {
	if existing, ok := m.userIDs[userID]; ok {
		delete(m.tokens, existing)
	}

	tokenBytes := make([]byte, m.length)
	if _, err := rand.Read(tokenBytes); err != nil {
		return "", fmt.Errorf("failed to generate random bytes: %w", err)
	}

	tokenStr := hex.EncodeToString(tokenBytes)
	m.tokens[tokenStr] = &storedRefreshToken{Token: tokenStr, UserID: userID, Iat: m.nowFunc()}
	m.userIDs[userID] = tokenStr
	return tokenStr, nil
}

// Rotate consumes token and issues its replacement.
func (m *refreshManager) Rotate(token string) (int64, string, error) {
	m.lock.Lock()
	defer m.lock.Unlock()

	rt, ok := m.tokens[token]
	if !ok {
		return 0, "", errUnknownRefreshToken
	}
	delete(m.tokens, token)
	delete(m.userIDs, rt.UserID)

	if m.expiry > 0 && m.nowFunc().Sub(rt.Iat) > m.expiry {
		return 0, "", fmt.Errorf("refresh token expired")
	}

	next, err := m.create(rt.UserID)
	if err != nil {
		return 0, "", err
	}
	return rt.UserID, next, nil
}

func (m *refreshManager) DeleteForUser(userID int64) {
	m.lock.Lock()
	defer m.lock.Unlock()
	if token, ok := m.userIDs[userID]; ok {
		delete(m.tokens, token)
		delete(m.userIDs, userID)
	}
}
