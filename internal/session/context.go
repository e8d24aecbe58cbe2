package session

import (
	"context"
	"errors"
)

// Identity is the authenticated agent supplied by the session collaborator.
// The core trusts it without further verification.
type Identity struct {
	AgentID    string
	AgentName  string
	AgentEmail string
}

type contextKey string

const (
	identityKey  contextKey = "agentIdentity"
	requestIDKey contextKey = "requestID"
)

// ErrNoIdentityInContext is returned when no agent identity is found in context.
var ErrNoIdentityInContext = errors.New("no agent identity found in context")

// ErrNoRequestIDInContext is returned when no request ID is found in context.
var ErrNoRequestIDInContext = errors.New("no request ID found in context")

// WithIdentity adds the agent identity to the context.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

// FromContext extracts the agent identity from the context.
func FromContext(ctx context.Context) (Identity, error) {
	id, ok := ctx.Value(identityKey).(Identity)
	if !ok || id.AgentID == "" {
		return Identity{}, ErrNoIdentityInContext
	}
	return id, nil
}

// AgentIDFromContext extracts just the agent ID from the context.
func AgentIDFromContext(ctx context.Context) (string, error) {
	id, err := FromContext(ctx)
	if err != nil {
		return "", err
	}
	return id.AgentID, nil
}

// MustFromContext extracts the agent identity from the context or panics.
func MustFromContext(ctx context.Context) Identity {
	id, err := FromContext(ctx)
	if err != nil {
		panic(err)
	}
	return id
}

// WithRequestID adds a request ID to the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

// RequestIDFromContext extracts the request ID from the context.
func RequestIDFromContext(ctx context.Context) (string, error) {
	requestID, ok := ctx.Value(requestIDKey).(string)
	if !ok || requestID == "" {
		return "", ErrNoRequestIDInContext
	}
	return requestID, nil
}
