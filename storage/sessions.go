// Package storage persists conversation sessions in NATS KV.
package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/framelight/fusionpilot/orchestrator"
)

// BucketSessions is the KV bucket holding one entry per conversation.
const BucketSessions = "FUSIONPILOT_SESSIONS"

// SessionStore provides session persistence backed by NATS KV. Every
// orchestrator call loads the session, mutates it, and writes it back, so
// a restart resumes conversations where they left off.
type SessionStore struct {
	kv jetstream.KeyValue
}

// NewSessionStore creates a SessionStore with the given JetStream context.
// It creates the KV bucket if it doesn't exist.
func NewSessionStore(ctx context.Context, js jetstream.JetStream) (*SessionStore, error) {
	kv, err := getOrCreateBucket(ctx, js, BucketSessions)
	if err != nil {
		return nil, fmt.Errorf("create sessions bucket: %w", err)
	}
	return &SessionStore{kv: kv}, nil
}

func getOrCreateBucket(ctx context.Context, js jetstream.JetStream, name string) (jetstream.KeyValue, error) {
	kv, err := js.KeyValue(ctx, name)
	if err == nil {
		return kv, nil
	}
	// Bucket doesn't exist, create it
	return js.CreateKeyValue(ctx, jetstream.KeyValueConfig{
		Bucket:      name,
		Description: "Fusionpilot conversation sessions",
		History:     5, // Keep last 5 revisions
	})
}

// Get retrieves a session by ID.
func (s *SessionStore) Get(ctx context.Context, id string) (*orchestrator.Session, error) {
	entry, err := s.kv.Get(ctx, id)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get session: %w", err)
	}

	var sess orchestrator.Session
	if err := json.Unmarshal(entry.Value(), &sess); err != nil {
		return nil, fmt.Errorf("unmarshal session: %w", err)
	}
	return &sess, nil
}

// GetOrCreate retrieves a session by ID, creating and persisting a fresh
// one when none exists.
func (s *SessionStore) GetOrCreate(ctx context.Context, id string) (*orchestrator.Session, error) {
	sess, err := s.Get(ctx, id)
	if err == nil {
		return sess, nil
	}
	if err != ErrNotFound {
		return nil, err
	}

	sess = orchestrator.NewSession(id)
	if err := s.Put(ctx, sess); err != nil {
		return nil, err
	}
	return sess, nil
}

// Put writes a session back to the bucket.
func (s *SessionStore) Put(ctx context.Context, sess *orchestrator.Session) error {
	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	if _, err := s.kv.Put(ctx, sess.ID, data); err != nil {
		return fmt.Errorf("store session: %w", err)
	}
	return nil
}

// Delete removes a session.
func (s *SessionStore) Delete(ctx context.Context, id string) error {
	if err := s.kv.Delete(ctx, id); err != nil {
		if isNotFound(err) {
			return ErrNotFound
		}
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// List returns the IDs of all stored sessions.
func (s *SessionStore) List(ctx context.Context) ([]string, error) {
	keys, err := s.kv.Keys(ctx)
	if err != nil {
		if err == jetstream.ErrNoKeysFound {
			return nil, nil
		}
		return nil, fmt.Errorf("list session keys: %w", err)
	}
	return keys, nil
}

// isNotFound checks if an error indicates a key was not found.
func isNotFound(err error) bool {
	return err != nil && strings.Contains(err.Error(), "key not found")
}
