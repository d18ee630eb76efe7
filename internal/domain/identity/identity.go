// Package identity resolves API keys to shopper and admin identities.
package identity

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"slices"

	"github.com/go-faster/errors"
)

// ScopeAdmin grants access to reporting endpoints.
const ScopeAdmin = "admin"

// ErrAnonymous is returned when a request carries no valid credentials.
var ErrAnonymous = errors.New("anonymous")

// User is the authenticated caller.
type User struct {
	ID      string
	IsAdmin bool
}

// Key is a stored API key. Only the HMAC of the raw key is kept.
type Key struct {
	ID      string
	KeyHash string
	Name    string
	UserID  string
	Scopes  []string
}

// User returns the identity the key authenticates as.
func (k *Key) User() User {
	return User{
		ID:      k.UserID,
		IsAdmin: slices.Contains(k.Scopes, ScopeAdmin),
	}
}

// KeyRepository finds active keys by hash.
type KeyRepository interface {
	FindByHash(ctx context.Context, hash string) (*Key, error)
}

// HashKey returns the hex HMAC-SHA256 of key under pepper.
func HashKey(pepper []byte, key string) string {
	mac := hmac.New(sha256.New, pepper)
	mac.Write([]byte(key))
	return hex.EncodeToString(mac.Sum(nil))
}

// Authenticator validates raw API keys.
type Authenticator struct {
	keys   KeyRepository
	pepper []byte
}

// NewAuthenticator creates an Authenticator.
func NewAuthenticator(keys KeyRepository, pepper []byte) *Authenticator {
	return &Authenticator{
		keys:   keys,
		pepper: pepper,
	}
}

// Authenticate resolves a raw key. Every failure is reported as
// ErrAnonymous so callers cannot distinguish unknown keys from bad ones.
func (a *Authenticator) Authenticate(ctx context.Context, rawKey string) (User, error) {
	if rawKey == "" {
		return User{}, ErrAnonymous
	}

	hash := HashKey(a.pepper, rawKey)
	key, err := a.keys.FindByHash(ctx, hash)
	if err != nil {
		return User{}, ErrAnonymous
	}

	// The lookup matched on the hash; compare again in constant time in case
	// the repository returned a different row.
	want, err := hex.DecodeString(hash)
	if err != nil {
		return User{}, ErrAnonymous
	}
	got, err := hex.DecodeString(key.KeyHash)
	if err != nil || subtle.ConstantTimeCompare(want, got) != 1 {
		return User{}, ErrAnonymous
	}
	if key.UserID == "" {
		return User{}, ErrAnonymous
	}

	return key.User(), nil
}

type userKey struct{}

// WithUser stores the user in ctx.
func WithUser(ctx context.Context, u User) context.Context {
	return context.WithValue(ctx, userKey{}, u)
}

// FromContext returns the user stored by WithUser or ErrAnonymous.
func FromContext(ctx context.Context) (User, error) {
	u, ok := ctx.Value(userKey{}).(User)
	if !ok || u.ID == "" {
		return User{}, ErrAnonymous
	}
	return u, nil
}
