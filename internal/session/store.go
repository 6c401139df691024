// Package session implements the cookie-addressed, Redis-backed session
// store. A session carries exactly two things: the upstream bearer token and
// the canonical principal derived from it. They are written and cleared
// together; no other component mutates them directly.
package session

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/taskdeck/taskdeck/internal/rbac"
)

// Store orchestrates cookie based sessions backed by Redis.
type Store struct {
	client     *redis.Client
	cookieName string
	secret     []byte
	ttl        time.Duration
	secure     bool
}

// Session holds per-request session data.
type Session struct {
	ID        string
	token     string
	principal *rbac.Principal
	isNew     bool
	dirty     bool
	destroyed bool
}

type sessionPayload struct {
	Token     string          `json:"token"`
	Principal *rbac.Principal `json:"principal,omitempty"`
}

// NewStore constructs a Store. The secret feeds session ID generation when
// the primary source fails.
func NewStore(client *redis.Client, cookieName, secret string, ttl time.Duration, secure bool) *Store {
	return &Store{
		client:     client,
		cookieName: cookieName,
		secret:     []byte(secret),
		ttl:        ttl,
		secure:     secure,
	}
}

// Load loads or creates a session for the request.
func (s *Store) Load(ctx context.Context, r *http.Request) (*Session, error) {
	cookie, err := r.Cookie(s.cookieName)
	if err != nil {
		if errors.Is(err, http.ErrNoCookie) {
			return &Session{isNew: true}, nil
		}
		return nil, err
	}

	payload, err := s.client.Get(ctx, s.redisKey(cookie.Value)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return &Session{ID: cookie.Value, isNew: true}, nil
		}
		return nil, err
	}

	var stored sessionPayload
	if err := json.Unmarshal(payload, &stored); err != nil {
		return nil, err
	}
	return &Session{
		ID:        cookie.Value,
		token:     stored.Token,
		principal: stored.Principal,
	}, nil
}

// Commit persists the session and writes cookie headers as needed.
func (s *Store) Commit(ctx context.Context, w http.ResponseWriter, sess *Session) error {
	if sess == nil {
		return nil
	}

	if sess.destroyed {
		if sess.ID != "" {
			if err := s.client.Del(ctx, s.redisKey(sess.ID)).Err(); err != nil && !errors.Is(err, redis.Nil) {
				return err
			}
		}
		http.SetCookie(w, &http.Cookie{
			Name:     s.cookieName,
			Value:    "",
			Path:     "/",
			MaxAge:   -1,
			HttpOnly: true,
			Secure:   s.secure,
			SameSite: http.SameSiteStrictMode,
		})
		return nil
	}

	if !sess.dirty {
		return nil
	}

	if sess.ID == "" {
		sess.ID = s.generateSessionID()
	}

	raw, err := json.Marshal(sessionPayload{Token: sess.token, Principal: sess.principal})
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, s.redisKey(sess.ID), raw, s.ttl).Err(); err != nil {
		return err
	}

	if sess.isNew {
		http.SetCookie(w, &http.Cookie{
			Name:     s.cookieName,
			Value:    sess.ID,
			Path:     "/",
			MaxAge:   int(s.ttl / time.Second),
			HttpOnly: true,
			Secure:   s.secure,
			SameSite: http.SameSiteStrictMode,
		})
	}
	return nil
}

func (s *Store) redisKey(id string) string {
	return fmt.Sprintf("session:%s", id)
}

func (s *Store) generateSessionID() string {
	if id, err := uuid.NewRandom(); err == nil {
		return id.String()
	}
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return base64.RawURLEncoding.EncodeToString([]byte(time.Now().Format(time.RFC3339Nano)))
	}
	if len(s.secret) > 0 {
		for i := range b {
			b[i] ^= s.secret[i%len(s.secret)]
		}
	}
	return base64.RawURLEncoding.EncodeToString(b)
}

// Token returns the upstream bearer token, empty when unauthenticated.
func (sess *Session) Token() string {
	if sess == nil || sess.destroyed {
		return ""
	}
	return sess.token
}

// Principal returns the stored principal, nil when unauthenticated.
func (sess *Session) Principal() *rbac.Principal {
	if sess == nil || sess.destroyed {
		return nil
	}
	return sess.principal
}

// Authenticated reports whether the session carries a complete identity.
func (sess *Session) Authenticated() bool {
	return sess != nil && !sess.destroyed && sess.token != "" && sess.principal != nil
}

// SetIdentity stores token and principal together. Replacing an identity
// mid-session is last-write-wins; a superseded login simply overwrites.
func (sess *Session) SetIdentity(token string, principal *rbac.Principal) {
	if sess == nil {
		return
	}
	sess.token = token
	sess.principal = principal
	sess.destroyed = false
	sess.dirty = true
}

// Destroy clears the identity and schedules cookie removal. Destroying an
// already destroyed session is a no-op.
func (sess *Session) Destroy() {
	if sess == nil || sess.destroyed {
		return
	}
	sess.token = ""
	sess.principal = nil
	sess.destroyed = true
	sess.dirty = true
}
