package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNotFound        = errors.New("record not found")
	ErrVersionConflict = errors.New("record was modified concurrently")
)

// Store is the persistence contract the services depend on. All records
// live in the database; nothing is cached in process.
type Store interface {
	UpsertProfile(ctx context.Context, p Profile) (*Profile, error)
	GetProfile(ctx context.Context, id string) (*Profile, error)
	FindProfiles(ctx context.Context, filter ProfileFilter) ([]Profile, error)
	SearchProfiles(ctx context.Context, query string, limit int) ([]Profile, error)

	CreateMeetup(ctx context.Context, m *Meetup) error
	GetMeetup(ctx context.Context, id string) (*Meetup, error)
	ListMeetupsByParticipant(ctx context.Context, userID string) ([]Meetup, error)
	// UpdateMeetup writes status and feedback only if the stored version
	// still equals m.Version, then bumps m.Version.
	UpdateMeetup(ctx context.Context, m *Meetup) error

	CreateMessage(ctx context.Context, msg *Message) error
	ListMessagesBySender(ctx context.Context, sender string) ([]Message, error)

	Close() error
}

// likePattern escapes LIKE wildcards in q and wraps it for substring match.
func likePattern(q string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + strings.ToLower(r.Replace(q)) + "%"
}

func marshalFeedback(feedback map[string]string) (string, error) {
	if feedback == nil {
		feedback = map[string]string{}
	}
	b, err := json.Marshal(feedback)
	if err != nil {
		return "", fmt.Errorf("failed to marshal feedback: %w", err)
	}
	return string(b), nil
}

func unmarshalFeedback(raw string) (map[string]string, error) {
	feedback := map[string]string{}
	if raw == "" {
		return feedback, nil
	}
	if err := json.Unmarshal([]byte(raw), &feedback); err != nil {
		return nil, fmt.Errorf("failed to unmarshal feedback: %w", err)
	}
	return feedback, nil
}
