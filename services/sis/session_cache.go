package sis

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/sync/singleflight"

	"eduassist-backend/lib/vault"
)

// student ids of this length belong to the senior-high subsystem, the
// only variant this bridge speaks. Other lengths select junior-high or
// continuing-education deployments with different login flows.
const seniorHighIDLength = 6

const (
	sessionCacheSize = 2048
	// the upstream declares no session expiry, it is treated as
	// soft-expiring instead
	defaultSessionTTL = time.Minute * 10
)

// SessionAcquirer performs the login handshake against the portal.
type SessionAcquirer interface {
	Login(ctx context.Context, studentID, password string) (string, error)
}

type SessionCacheOptions struct {
	Credentials CredentialStore
	Vault       *vault.Vault
	Acquirer    SessionAcquirer
	// TTL overrides the default session lifetime when positive.
	TTL time.Duration
}

// SessionCache holds short-lived session tokens per subject.
// Concurrent misses for the same subject collapse into a single login,
// the upstream invalidates prior sessions on repeated logins. Tokens
// are volatile only, never persisted.
type SessionCache struct {
	credentials CredentialStore
	vault       *vault.Vault
	acquirer    SessionAcquirer
	sessions    *expirable.LRU[string, string]
	flight      *singleflight.Group
}

func NewSessionCache(opts SessionCacheOptions) *SessionCache {
	ttl := opts.TTL
	if ttl <= 0 {
		ttl = defaultSessionTTL
	}
	return &SessionCache{
		credentials: opts.Credentials,
		vault:       opts.Vault,
		acquirer:    opts.Acquirer,
		sessions:    expirable.NewLRU[string, string](sessionCacheSize, nil, ttl),
		flight:      &singleflight.Group{},
	}
}

// GetOrRefresh returns the cached session token for the subject,
// logging in first on a miss. Distinct subjects never block each
// other.
func (c *SessionCache) GetOrRefresh(ctx context.Context, subjectID string) (string, error) {
	if session, ok := c.sessions.Get(subjectID); ok {
		return session, nil
	}

	session, err, shared := c.flight.Do(subjectID, func() (interface{}, error) {
		return c.refresh(ctx, subjectID)
	})
	if err != nil {
		return "", err
	}
	if shared {
		slog.DebugContext(
			ctx, "concurrent session refresh collapsed",
			"subject_id", subjectID,
		)
	}
	return session.(string), nil
}

// Invalidate drops the subject's cached session so the next
// GetOrRefresh logs in again. Called when a fetch reports the session
// as likely expired.
func (c *SessionCache) Invalidate(subjectID string) {
	c.sessions.Remove(subjectID)
}

func (c *SessionCache) refresh(ctx context.Context, subjectID string) (string, error) {
	ctx, span := tracer.Start(ctx, "SessionCache:refresh")
	defer span.End()

	if len(subjectID) != seniorHighIDLength {
		return "", fmt.Errorf("%w: subject id %q", ErrNotImplemented, subjectID)
	}

	cred, err := c.credentials.GetCredential(ctx, subjectID)
	if err != nil {
		span.RecordError(err)
		return "", err
	}
	password, err := c.vault.Unwrap(cred.Envelope)
	if err != nil {
		span.RecordError(err)
		return "", err
	}

	session, err := c.acquirer.Login(ctx, subjectID, string(password))
	if err != nil {
		span.RecordError(err)
		return "", err
	}

	c.sessions.Add(subjectID, session)
	return session, nil
}
