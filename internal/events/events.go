// Package events publishes domain events to the message broker.
package events

import (
	"context"
	"time"
)

const (
	RoutingUsersImported       = "users.imported"
	RoutingLetterStatusChanged = "letters.status.changed"
)

// UsersImported is published after a bulk import finished.
type UsersImported struct {
	ActorID  uint      `json:"actor_id"`
	Source   string    `json:"source"`
	Created  int       `json:"created"`
	Updated  int       `json:"updated"`
	Rejected int       `json:"rejected"`
	Total    int       `json:"total"`
	At       time.Time `json:"at"`
}

// LetterStatusChanged is published on every letter workflow transition.
type LetterStatusChanged struct {
	LetterID    string    `json:"letter_id"`
	ReferenceNo string    `json:"reference_no"`
	Status      string    `json:"status"`
	ActorID     uint      `json:"actor_id"`
	CreatedBy   uint      `json:"created_by"`
	At          time.Time `json:"at"`
}

// Publisher sends domain events.
type Publisher interface {
	PublishUsersImported(ctx context.Context, evt UsersImported) error
	PublishLetterStatusChanged(ctx context.Context, evt LetterStatusChanged) error
	Close() error
}

// NoopPublisher drops every event. Used when no broker is configured.
type NoopPublisher struct{}

func (NoopPublisher) PublishUsersImported(context.Context, UsersImported) error { return nil }

func (NoopPublisher) PublishLetterStatusChanged(context.Context, LetterStatusChanged) error {
	return nil
}

func (NoopPublisher) Close() error { return nil }
