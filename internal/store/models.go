package store

import (
	"strings"
	"time"

	"geomeet.io/geo-meet/internal/utils"
)

type Availability string

const (
	AvailabilityLunch       Availability = "lunch"
	AvailabilityAfterOffice Availability = "after-office"
	AvailabilityUnavailable Availability = "unavailable"
)

func (a Availability) Valid() bool {
	switch a {
	case AvailabilityLunch, AvailabilityAfterOffice, AvailabilityUnavailable:
		return true
	}
	return false
}

type MeetupType string

const (
	MeetupTypeLunch       MeetupType = "lunch"
	MeetupTypeAfterOffice MeetupType = "after-office"
)

type MeetupStatus string

const (
	MeetupStatusPending   MeetupStatus = "pending"
	MeetupStatusOngoing   MeetupStatus = "ongoing"
	MeetupStatusDeclined  MeetupStatus = "declined"
	MeetupStatusCompleted MeetupStatus = "completed"
)

// Terminal reports whether no accept/decline may move the meetup any further.
func (s MeetupStatus) Terminal() bool {
	return s == MeetupStatusDeclined || s == MeetupStatusCompleted
}

// Per-participant tokens stored in Meetup.Feedback.
const (
	FeedbackAccepted   = "accepted"
	FeedbackDeclined   = "declined"
	FeedbackThumbsUp   = "👍"
	FeedbackThumbsDown = "👎"
)

// Profile is keyed by wallet address. Nil fields are "not provided" and are
// left untouched by an upsert.
type Profile struct {
	ID             string       `json:"id"`
	Name           *string      `json:"name"`
	Industry       *string      `json:"industry"`
	Role           *string      `json:"role"`
	FoodPreference *string      `json:"food_preference"`
	Availability   Availability `json:"availability,omitempty"`
	Lat            *float64     `json:"lat"`
	Lng            *float64     `json:"lng"`
	UpdatedAt      time.Time    `json:"updated_at"`
}

func (p Profile) Location() (utils.Coordinate, bool) {
	if p.Lat == nil || p.Lng == nil {
		return utils.Coordinate{}, false
	}
	return utils.Coordinate{Lat: *p.Lat, Lng: *p.Lng}, true
}

type Meetup struct {
	ID           string            `json:"id"`
	Participants []string          `json:"participants"` // participants[0] is the inviter
	Type         MeetupType        `json:"type"`
	Status       MeetupStatus      `json:"status"`
	Feedback     map[string]string `json:"feedback"`
	StartTime    time.Time         `json:"start_time"`
	Version      int64             `json:"version"`
}

// HasParticipant compares identifiers case-insensitively.
func (m Meetup) HasParticipant(id string) bool {
	for _, p := range m.Participants {
		if strings.EqualFold(p, id) {
			return true
		}
	}
	return false
}

type Message struct {
	ID        string    `json:"id"`
	Sender    string    `json:"sender"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

type ProfileFilter struct {
	Availability Availability
	Industry     string // empty means any
}
