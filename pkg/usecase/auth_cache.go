package usecase

import (
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"

	"github.com/nexaflow/nexaflow/pkg/domain/model/auth"
)

const (
	authCacheTTL = 5 * time.Minute
)

type cachedSession struct {
	session   *auth.Session
	expiresAt time.Time
}

// authCache keeps verified sessions keyed by a hash of the access token
type authCache struct {
	cache sync.Map
}

func newAuthCache() *authCache {
	return &authCache{}
}

func tokenKey(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

func (c *authCache) get(token string) (*auth.Session, bool) {
	key := tokenKey(token)
	val, ok := c.cache.Load(key)
	if !ok {
		return nil, false
	}

	cached := val.(*cachedSession)
	if time.Now().After(cached.expiresAt) {
		c.cache.Delete(key)
		return nil, false
	}

	return cached.session, true
}

// set caches session until the token expires or the TTL passes, whichever is first
func (c *authCache) set(token string, session *auth.Session, tokenExpiry time.Time) {
	expiresAt := time.Now().Add(authCacheTTL)
	if !tokenExpiry.IsZero() && tokenExpiry.Before(expiresAt) {
		expiresAt = tokenExpiry
	}
	c.cache.Store(tokenKey(token), &cachedSession{
		session:   session,
		expiresAt: expiresAt,
	})
}
