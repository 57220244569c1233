package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mattn/go-sqlite3"
)

// sqliteDriverName is go-sqlite3 with go_lower registered on every
// connection. SQLite's built-in lower() folds ASCII only.
const sqliteDriverName = "sqlite3_geomeet"

func init() {
	sql.Register(sqliteDriverName, &sqlite3.SQLiteDriver{
		ConnectHook: func(conn *sqlite3.SQLiteConn) error {
			return conn.RegisterFunc("go_lower", strings.ToLower, true)
		},
	})
}

type SQLiteStore struct {
	db *sql.DB
}

var _ Store = (*SQLiteStore)(nil)

func NewSQLiteStore(dataSourceName string) (*SQLiteStore, error) {
	if err := ensureDirForSQLite(dataSourceName); err != nil {
		return nil, err
	}

	db, err := sql.Open(sqliteDriverName, dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if isMemoryDSN(dataSourceName) {
		// every new connection to :memory: is a fresh, empty database
		db.SetMaxOpenConns(1)
	}
	if err = db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err = store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return store, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) initSchema() error {
	schema := `
    CREATE TABLE IF NOT EXISTS profiles (
        id TEXT PRIMARY KEY, -- wallet address
        name TEXT,
        industry TEXT,
        role TEXT,
        food_preference TEXT,
        availability TEXT CHECK (availability IN ('lunch', 'after-office', 'unavailable')),
        lat REAL,
        lng REAL,
        updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
    );
    CREATE INDEX IF NOT EXISTS idx_profiles_availability ON profiles (availability, industry);

    CREATE TABLE IF NOT EXISTS meetups (
        id TEXT PRIMARY KEY, -- UUID
        participants TEXT NOT NULL, -- JSON array, first entry is the inviter
        type TEXT NOT NULL,
        status TEXT NOT NULL CHECK (status IN ('pending', 'ongoing', 'declined', 'completed')),
        feedback TEXT NOT NULL DEFAULT '{}', -- JSON object
        start_time DATETIME NOT NULL,
        version INTEGER NOT NULL DEFAULT 1
    );

    CREATE TABLE IF NOT EXISTS messages (
        id TEXT PRIMARY KEY, -- UUID
        sender TEXT NOT NULL,
        content TEXT NOT NULL,
        created_at DATETIME NOT NULL
    );
    CREATE INDEX IF NOT EXISTS idx_messages_sender ON messages (sender, created_at);
    `
	_, err := s.db.Exec(schema)
	return err
}

// Profile methods

const profileColumns = "id, name, industry, role, food_preference, availability, lat, lng, updated_at"

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProfile(row rowScanner) (*Profile, error) {
	var p Profile
	var name, industry, role, food, availability sql.NullString
	var lat, lng sql.NullFloat64
	if err := row.Scan(&p.ID, &name, &industry, &role, &food, &availability, &lat, &lng, &p.UpdatedAt); err != nil {
		return nil, err
	}
	p.Name = stringPtr(name)
	p.Industry = stringPtr(industry)
	p.Role = stringPtr(role)
	p.FoodPreference = stringPtr(food)
	p.Availability = Availability(availability.String)
	p.Lat = floatPtr(lat)
	p.Lng = floatPtr(lng)
	return &p, nil
}

func (s *SQLiteStore) UpsertProfile(ctx context.Context, p Profile) (*Profile, error) {
	_, err := s.db.ExecContext(ctx, `
        INSERT INTO profiles (`+profileColumns+`)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
        ON CONFLICT (id) DO UPDATE SET
            name = COALESCE(excluded.name, profiles.name),
            industry = COALESCE(excluded.industry, profiles.industry),
            role = COALESCE(excluded.role, profiles.role),
            food_preference = COALESCE(excluded.food_preference, profiles.food_preference),
            availability = COALESCE(excluded.availability, profiles.availability),
            lat = COALESCE(excluded.lat, profiles.lat),
            lng = COALESCE(excluded.lng, profiles.lng),
            updated_at = excluded.updated_at
    `, p.ID, p.Name, p.Industry, p.Role, p.FoodPreference, nullIfEmpty(string(p.Availability)), p.Lat, p.Lng, time.Now().UTC())
	if err != nil {
		return nil, fmt.Errorf("failed to upsert profile: %w", err)
	}
	return s.GetProfile(ctx, p.ID)
}

func (s *SQLiteStore) GetProfile(ctx context.Context, id string) (*Profile, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+profileColumns+" FROM profiles WHERE id = ?", id)
	p, err := scanProfile(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}
	return p, nil
}

func (s *SQLiteStore) FindProfiles(ctx context.Context, filter ProfileFilter) ([]Profile, error) {
	query := "SELECT " + profileColumns + " FROM profiles WHERE availability = ?"
	args := []any{string(filter.Availability)}
	if filter.Industry != "" {
		query += " AND industry = ?"
		args = append(args, filter.Industry)
	}
	return s.queryProfiles(ctx, query, args...)
}

func (s *SQLiteStore) SearchProfiles(ctx context.Context, q string, limit int) ([]Profile, error) {
	pattern := likePattern(q)
	query := "SELECT " + profileColumns + ` FROM profiles
        WHERE go_lower(COALESCE(name, '')) LIKE ? ESCAPE '\'
           OR go_lower(COALESCE(industry, '')) LIKE ? ESCAPE '\'
           OR go_lower(COALESCE(role, '')) LIKE ? ESCAPE '\'
           OR go_lower(id) LIKE ? ESCAPE '\'
        LIMIT ?`
	return s.queryProfiles(ctx, query, pattern, pattern, pattern, pattern, limit)
}

func (s *SQLiteStore) queryProfiles(ctx context.Context, query string, args ...any) ([]Profile, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query profiles: %w", err)
	}
	defer rows.Close()

	profiles := []Profile{}
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan profile row: %w", err)
		}
		profiles = append(profiles, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate profiles: %w", err)
	}
	return profiles, nil
}

// Meetup methods

const meetupColumns = "id, participants, type, status, feedback, start_time, version"

func scanMeetup(row rowScanner) (*Meetup, error) {
	var m Meetup
	var participantsJSON, feedbackJSON string
	if err := row.Scan(&m.ID, &participantsJSON, &m.Type, &m.Status, &feedbackJSON, &m.StartTime, &m.Version); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(participantsJSON), &m.Participants); err != nil {
		return nil, fmt.Errorf("failed to unmarshal participants for meetup %s: %w", m.ID, err)
	}
	feedback, err := unmarshalFeedback(feedbackJSON)
	if err != nil {
		return nil, fmt.Errorf("meetup %s: %w", m.ID, err)
	}
	m.Feedback = feedback
	return &m, nil
}

func (s *SQLiteStore) CreateMeetup(ctx context.Context, m *Meetup) error {
	participantsJSON, err := json.Marshal(m.Participants)
	if err != nil {
		return fmt.Errorf("failed to marshal participants: %w", err)
	}
	feedbackJSON, err := marshalFeedback(m.Feedback)
	if err != nil {
		return err
	}

	m.ID = uuid.NewString()
	m.StartTime = time.Now().UTC()
	m.Version = 1

	_, err = s.db.ExecContext(ctx, "INSERT INTO meetups ("+meetupColumns+") VALUES (?, ?, ?, ?, ?, ?, ?)",
		m.ID, string(participantsJSON), string(m.Type), string(m.Status), feedbackJSON, m.StartTime, m.Version)
	if err != nil {
		return fmt.Errorf("failed to insert meetup: %w", err)
	}
	return nil
}

func (s *SQLiteStore) GetMeetup(ctx context.Context, id string) (*Meetup, error) {
	m, err := scanMeetup(s.db.QueryRowContext(ctx, "SELECT "+meetupColumns+" FROM meetups WHERE id = ?", id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get meetup: %w", err)
	}
	return m, nil
}

func (s *SQLiteStore) ListMeetupsByParticipant(ctx context.Context, userID string) ([]Meetup, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT "+meetupColumns+` FROM meetups
        WHERE EXISTS (SELECT 1 FROM json_each(meetups.participants) WHERE go_lower(json_each.value) = go_lower(?))
        ORDER BY start_time DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query meetups: %w", err)
	}
	defer rows.Close()

	meetups := []Meetup{}
	for rows.Next() {
		m, err := scanMeetup(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan meetup row: %w", err)
		}
		meetups = append(meetups, *m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate meetups: %w", err)
	}
	return meetups, nil
}

func (s *SQLiteStore) UpdateMeetup(ctx context.Context, m *Meetup) error {
	feedbackJSON, err := marshalFeedback(m.Feedback)
	if err != nil {
		return err
	}

	res, err := s.db.ExecContext(ctx, "UPDATE meetups SET status = ?, feedback = ?, version = version + 1 WHERE id = ? AND version = ?",
		string(m.Status), feedbackJSON, m.ID, m.Version)
	if err != nil {
		return fmt.Errorf("failed to execute meetup update: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read meetup update result: %w", err)
	}
	if affected == 0 {
		if _, err := s.GetMeetup(ctx, m.ID); err != nil {
			return err
		}
		return ErrVersionConflict
	}
	m.Version++
	return nil
}

// Message methods

func (s *SQLiteStore) CreateMessage(ctx context.Context, msg *Message) error {
	msg.ID = uuid.NewString()
	msg.CreatedAt = time.Now().UTC()

	_, err := s.db.ExecContext(ctx, "INSERT INTO messages (id, sender, content, created_at) VALUES (?, ?, ?, ?)",
		msg.ID, msg.Sender, msg.Content, msg.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert message: %w", err)
	}
	return nil
}

func (s *SQLiteStore) ListMessagesBySender(ctx context.Context, sender string) ([]Message, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT id, sender, content, created_at FROM messages WHERE sender = ? ORDER BY created_at DESC", sender)
	if err != nil {
		return nil, fmt.Errorf("failed to query messages: %w", err)
	}
	defer rows.Close()

	messages := []Message{}
	for rows.Next() {
		var msg Message
		if err := rows.Scan(&msg.ID, &msg.Sender, &msg.Content, &msg.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan message row: %w", err)
		}
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate messages: %w", err)
	}
	return messages, nil
}

func stringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	return &ns.String
}

func floatPtr(nf sql.NullFloat64) *float64 {
	if !nf.Valid {
		return nil
	}
	return &nf.Float64
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func isMemoryDSN(dsn string) bool {
	return strings.Contains(dsn, ":memory:") || strings.Contains(dsn, "mode=memory")
}

// ensureDirForSQLite creates the parent directory of a file DSN.
func ensureDirForSQLite(dsn string) error {
	if isMemoryDSN(dsn) {
		return nil
	}
	clean := strings.TrimPrefix(dsn, "file:")
	clean = strings.Split(clean, "?")[0]
	dir := filepath.Dir(clean)
	if dir == "." || dir == "" {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create db dir %q: %w", dir, err)
	}
	return nil
}
