// Package redis stores checkout sessions in Redis so they survive restarts
// and are shared between API replicas.
package redis

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	goredis "github.com/redis/go-redis/v9"

	"github.com/xenking/smart-trolley/internal/domain/checkout"
)

const keyPrefix = "trolley:checkout:"

var _ checkout.SessionStore = (*SessionStore)(nil)

// SessionStore implements checkout.SessionStore. Sessions are JSON values
// that expire after the TTL; every save resets the expiry.
type SessionStore struct {
	client goredis.UniversalClient
	ttl    time.Duration
}

// NewSessionStore creates a SessionStore.
func NewSessionStore(client goredis.UniversalClient, ttl time.Duration) *SessionStore {
	if ttl <= 0 {
		ttl = checkout.DefaultSessionTTL
	}
	return &SessionStore{client: client, ttl: ttl}
}

// NewClient parses a redis:// URL or falls back to a plain address.
func NewClient(url, addr, password string, db int) (*goredis.Client, error) {
	if url != "" {
		opts, err := goredis.ParseURL(url)
		if err != nil {
			return nil, errors.Wrap(err, "parse redis url")
		}
		return goredis.NewClient(opts), nil
	}
	if addr == "" {
		return nil, errors.New("redis address is required")
	}
	return goredis.NewClient(&goredis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	}), nil
}

func sessionKey(userID, id string) string {
	return keyPrefix + userID + ":" + id
}

// Save implements checkout.SessionStore.
func (s *SessionStore) Save(ctx context.Context, sess *checkout.Session) error {
	if err := s.client.Set(ctx, sessionKey(sess.UserID, sess.ID), encodeSession(sess), s.ttl).Err(); err != nil {
		return errors.Wrap(err, "set session")
	}
	return nil
}

// Get implements checkout.SessionStore.
func (s *SessionStore) Get(ctx context.Context, userID, id string) (*checkout.Session, error) {
	data, err := s.client.Get(ctx, sessionKey(userID, id)).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, checkout.ErrSessionNotFound
		}
		return nil, errors.Wrap(err, "get session")
	}

	sess, err := decodeSession(data)
	if err != nil {
		return nil, errors.Wrap(err, "decode session")
	}
	if sess.UserID != userID {
		return nil, checkout.ErrSessionNotFound
	}
	return sess, nil
}

// Delete implements checkout.SessionStore.
func (s *SessionStore) Delete(ctx context.Context, userID, id string) error {
	if err := s.client.Del(ctx, sessionKey(userID, id)).Err(); err != nil {
		return errors.Wrap(err, "delete session")
	}
	return nil
}

// Ping reports whether Redis is reachable.
func (s *SessionStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
