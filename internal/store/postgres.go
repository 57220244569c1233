package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore keeps the same tables as SQLiteStore on a Postgres server,
// using native text[] and jsonb columns for meetups.
type PostgresStore struct {
	pool *pgxpool.Pool
}

var _ Store = (*PostgresStore)(nil)

func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	poolCfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}
	poolCfg.MaxConns = 20
	poolCfg.MinConns = 2

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create DB pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping DB: %w", err)
	}

	return NewPostgresStoreFromPool(ctx, pool)
}

// NewPostgresStoreFromPool wraps an existing pool and creates the schema.
func NewPostgresStoreFromPool(ctx context.Context, pool *pgxpool.Pool) (*PostgresStore, error) {
	s := &PostgresStore{pool: pool}
	if err := s.initSchema(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return s, nil
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) initSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS profiles (
			id TEXT PRIMARY KEY,
			name TEXT,
			industry TEXT,
			role TEXT,
			food_preference TEXT,
			availability TEXT CHECK (availability IN ('lunch', 'after-office', 'unavailable')),
			lat DOUBLE PRECISION,
			lng DOUBLE PRECISION,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);
		CREATE INDEX IF NOT EXISTS idx_profiles_availability ON profiles (availability, industry);

		CREATE TABLE IF NOT EXISTS meetups (
			id TEXT PRIMARY KEY,
			participants TEXT[] NOT NULL,
			participants_lower TEXT[] NOT NULL, -- lower() of participants, for membership lookups
			type TEXT NOT NULL,
			status TEXT NOT NULL CHECK (status IN ('pending', 'ongoing', 'declined', 'completed')),
			feedback JSONB NOT NULL DEFAULT '{}'::jsonb,
			start_time TIMESTAMPTZ NOT NULL,
			version BIGINT NOT NULL DEFAULT 1
		);
		CREATE INDEX IF NOT EXISTS idx_meetups_participants ON meetups USING GIN (participants_lower);

		CREATE TABLE IF NOT EXISTS messages (
			id TEXT PRIMARY KEY,
			sender TEXT NOT NULL,
			content TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_messages_sender ON messages (sender, created_at DESC);
	`)
	return err
}

func scanPgProfile(row pgx.Row) (*Profile, error) {
	var p Profile
	var availability *string
	if err := row.Scan(&p.ID, &p.Name, &p.Industry, &p.Role, &p.FoodPreference, &availability, &p.Lat, &p.Lng, &p.UpdatedAt); err != nil {
		return nil, err
	}
	if availability != nil {
		p.Availability = Availability(*availability)
	}
	return &p, nil
}

func (s *PostgresStore) UpsertProfile(ctx context.Context, p Profile) (*Profile, error) {
	row := s.pool.QueryRow(ctx, `
		INSERT INTO profiles (`+profileColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE
		SET name = COALESCE(EXCLUDED.name, profiles.name),
			industry = COALESCE(EXCLUDED.industry, profiles.industry),
			role = COALESCE(EXCLUDED.role, profiles.role),
			food_preference = COALESCE(EXCLUDED.food_preference, profiles.food_preference),
			availability = COALESCE(EXCLUDED.availability, profiles.availability),
			lat = COALESCE(EXCLUDED.lat, profiles.lat),
			lng = COALESCE(EXCLUDED.lng, profiles.lng),
			updated_at = EXCLUDED.updated_at
		RETURNING `+profileColumns,
		p.ID, p.Name, p.Industry, p.Role, p.FoodPreference, nullIfEmpty(string(p.Availability)), p.Lat, p.Lng, time.Now().UTC(),
	)
	out, err := scanPgProfile(row)
	if err != nil {
		return nil, fmt.Errorf("upsert profile: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) GetProfile(ctx context.Context, id string) (*Profile, error) {
	p, err := scanPgProfile(s.pool.QueryRow(ctx, "SELECT "+profileColumns+" FROM profiles WHERE id = $1", id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get profile: %w", err)
	}
	return p, nil
}

func (s *PostgresStore) FindProfiles(ctx context.Context, filter ProfileFilter) ([]Profile, error) {
	query := "SELECT " + profileColumns + " FROM profiles WHERE availability = $1"
	args := []any{string(filter.Availability)}
	if filter.Industry != "" {
		query += " AND industry = $2"
		args = append(args, filter.Industry)
	}
	return s.queryProfiles(ctx, query, args...)
}

func (s *PostgresStore) SearchProfiles(ctx context.Context, q string, limit int) ([]Profile, error) {
	return s.queryProfiles(ctx, "SELECT "+profileColumns+` FROM profiles
		WHERE name ILIKE $1 OR industry ILIKE $1 OR role ILIKE $1 OR id ILIKE $1
		LIMIT $2`, likePattern(q), limit)
}

func (s *PostgresStore) queryProfiles(ctx context.Context, query string, args ...any) ([]Profile, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query profiles: %w", err)
	}
	defer rows.Close()

	profiles := []Profile{}
	for rows.Next() {
		p, err := scanPgProfile(rows)
		if err != nil {
			return nil, fmt.Errorf("scan profile: %w", err)
		}
		profiles = append(profiles, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate profiles: %w", err)
	}
	return profiles, nil
}

const pgMeetupColumns = "id, participants, type, status, feedback::text, start_time, version"

func scanPgMeetup(row pgx.Row) (*Meetup, error) {
	var m Meetup
	var feedbackJSON string
	if err := row.Scan(&m.ID, &m.Participants, &m.Type, &m.Status, &feedbackJSON, &m.StartTime, &m.Version); err != nil {
		return nil, err
	}
	feedback, err := unmarshalFeedback(feedbackJSON)
	if err != nil {
		return nil, fmt.Errorf("meetup %s: %w", m.ID, err)
	}
	m.Feedback = feedback
	return &m, nil
}

func (s *PostgresStore) CreateMeetup(ctx context.Context, m *Meetup) error {
	feedbackJSON, err := marshalFeedback(m.Feedback)
	if err != nil {
		return err
	}

	m.ID = uuid.NewString()
	m.StartTime = time.Now().UTC()
	m.Version = 1

	_, err = s.pool.Exec(ctx, `
		INSERT INTO meetups (id, participants, participants_lower, type, status, feedback, start_time, version)
		VALUES ($1, $2, (SELECT array_agg(lower(p)) FROM unnest($2::text[]) AS p), $3, $4, $5::jsonb, $6, $7)
	`, m.ID, m.Participants, string(m.Type), string(m.Status), feedbackJSON, m.StartTime, m.Version)
	if err != nil {
		return fmt.Errorf("insert meetup: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetMeetup(ctx context.Context, id string) (*Meetup, error) {
	m, err := scanPgMeetup(s.pool.QueryRow(ctx, "SELECT "+pgMeetupColumns+" FROM meetups WHERE id = $1", id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get meetup: %w", err)
	}
	return m, nil
}

func (s *PostgresStore) ListMeetupsByParticipant(ctx context.Context, userID string) ([]Meetup, error) {
	rows, err := s.pool.Query(ctx, "SELECT "+pgMeetupColumns+` FROM meetups
		WHERE participants_lower @> ARRAY[lower($1)]
		ORDER BY start_time DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("query meetups: %w", err)
	}
	defer rows.Close()

	meetups := []Meetup{}
	for rows.Next() {
		m, err := scanPgMeetup(rows)
		if err != nil {
			return nil, fmt.Errorf("scan meetup: %w", err)
		}
		meetups = append(meetups, *m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate meetups: %w", err)
	}
	return meetups, nil
}

func (s *PostgresStore) UpdateMeetup(ctx context.Context, m *Meetup) error {
	feedbackJSON, err := marshalFeedback(m.Feedback)
	if err != nil {
		return err
	}

	tag, err := s.pool.Exec(ctx, `
		UPDATE meetups
		SET status = $1, feedback = $2::jsonb, version = version + 1
		WHERE id = $3 AND version = $4
	`, string(m.Status), feedbackJSON, m.ID, m.Version)
	if err != nil {
		return fmt.Errorf("update meetup: %w", err)
	}
	if tag.RowsAffected() == 0 {
		if _, err := s.GetMeetup(ctx, m.ID); err != nil {
			return err
		}
		return ErrVersionConflict
	}
	m.Version++
	return nil
}

func (s *PostgresStore) CreateMessage(ctx context.Context, msg *Message) error {
	msg.ID = uuid.NewString()
	msg.CreatedAt = time.Now().UTC()

	_, err := s.pool.Exec(ctx, "INSERT INTO messages (id, sender, content, created_at) VALUES ($1, $2, $3, $4)",
		msg.ID, msg.Sender, msg.Content, msg.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert message: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListMessagesBySender(ctx context.Context, sender string) ([]Message, error) {
	rows, err := s.pool.Query(ctx, "SELECT id, sender, content, created_at FROM messages WHERE sender = $1 ORDER BY created_at DESC", sender)
	if err != nil {
		return nil, fmt.Errorf("query messages: %w", err)
	}
	defer rows.Close()

	messages := []Message{}
	for rows.Next() {
		var msg Message
		if err := rows.Scan(&msg.ID, &msg.Sender, &msg.Content, &msg.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate messages: %w", err)
	}
	return messages, nil
}
