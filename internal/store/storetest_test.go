package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strp(s string) *string { return &s }

func f64p(f float64) *float64 { return &f }

// exerciseStore runs the behaviour shared by every Store implementation.
func exerciseStore(t *testing.T, s Store) {
	ctx := context.Background()

	t.Run("profile upsert merges fields left nil", func(t *testing.T) {
		created, err := s.UpsertProfile(ctx, Profile{
			ID:           "0xAbC1",
			Name:         strp("Ada"),
			Industry:     strp("fintech"),
			Availability: AvailabilityLunch,
			Lat:          f64p(52.5),
			Lng:          f64p(13.4),
		})
		require.NoError(t, err)
		assert.Equal(t, "Ada", *created.Name)

		updated, err := s.UpsertProfile(ctx, Profile{ID: "0xAbC1", Role: strp("engineer")})
		require.NoError(t, err)
		assert.Equal(t, "Ada", *updated.Name)
		assert.Equal(t, "engineer", *updated.Role)
		assert.Equal(t, AvailabilityLunch, updated.Availability)
		assert.InDelta(t, 52.5, *updated.Lat, 1e-9)
		assert.Nil(t, updated.FoodPreference)

		got, err := s.GetProfile(ctx, "0xAbC1")
		require.NoError(t, err)
		assert.Equal(t, updated.Role, got.Role)
	})

	t.Run("missing profile is not found", func(t *testing.T) {
		_, err := s.GetProfile(ctx, "0xmissing")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("find profiles filters by availability and industry", func(t *testing.T) {
		_, err := s.UpsertProfile(ctx, Profile{ID: "0xF1", Availability: AvailabilityLunch, Industry: strp("health")})
		require.NoError(t, err)
		_, err = s.UpsertProfile(ctx, Profile{ID: "0xF2", Availability: AvailabilityAfterOffice, Industry: strp("health")})
		require.NoError(t, err)

		lunch, err := s.FindProfiles(ctx, ProfileFilter{Availability: AvailabilityLunch})
		require.NoError(t, err)
		ids := profileIDs(lunch)
		assert.Contains(t, ids, "0xAbC1")
		assert.Contains(t, ids, "0xF1")
		assert.NotContains(t, ids, "0xF2")

		health, err := s.FindProfiles(ctx, ProfileFilter{Availability: AvailabilityLunch, Industry: "health"})
		require.NoError(t, err)
		assert.Equal(t, []string{"0xF1"}, profileIDs(health))
	})

	t.Run("search is case-insensitive and limited", func(t *testing.T) {
		_, err := s.UpsertProfile(ctx, Profile{ID: "0xE10", Name: strp("Élodie"), Role: strp("ÜBERSETZERIN")})
		require.NoError(t, err)
		for _, q := range []string{"élodie", "ÉLODIE", "Élo", "übersetz", "ÜBERSETZ"} {
			got, err := s.SearchProfiles(ctx, q, 25)
			require.NoError(t, err)
			assert.Equal(t, []string{"0xE10"}, profileIDs(got), "query %q", q)
		}

		got, err := s.SearchProfiles(ctx, "FINTECH", 25)
		require.NoError(t, err)
		assert.Equal(t, []string{"0xAbC1"}, profileIDs(got))

		got, err = s.SearchProfiles(ctx, "abc", 25)
		require.NoError(t, err)
		assert.Equal(t, []string{"0xAbC1"}, profileIDs(got))

		got, err = s.SearchProfiles(ctx, "0x", 2)
		require.NoError(t, err)
		assert.Len(t, got, 2)

		got, err = s.SearchProfiles(ctx, "%", 25)
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("meetup create, compare-and-swap update and listing", func(t *testing.T) {
		m := &Meetup{
			Participants: []string{"0xAAA", "0xBBB"},
			Type:         MeetupTypeLunch,
			Status:       MeetupStatusPending,
			Feedback:     map[string]string{"0xaaa": FeedbackAccepted},
		}
		require.NoError(t, s.CreateMeetup(ctx, m))
		require.NotEmpty(t, m.ID)
		assert.Equal(t, int64(1), m.Version)

		loaded, err := s.GetMeetup(ctx, m.ID)
		require.NoError(t, err)
		assert.Equal(t, []string{"0xAAA", "0xBBB"}, loaded.Participants)
		assert.Equal(t, map[string]string{"0xaaa": FeedbackAccepted}, loaded.Feedback)
		assert.Equal(t, MeetupStatusPending, loaded.Status)

		stale := *loaded
		loaded.Status = MeetupStatusOngoing
		loaded.Feedback["0xbbb"] = FeedbackAccepted
		require.NoError(t, s.UpdateMeetup(ctx, loaded))
		assert.Equal(t, int64(2), loaded.Version)

		stale.Status = MeetupStatusDeclined
		assert.ErrorIs(t, s.UpdateMeetup(ctx, &stale), ErrVersionConflict)

		after, err := s.GetMeetup(ctx, m.ID)
		require.NoError(t, err)
		assert.Equal(t, MeetupStatusOngoing, after.Status)
		assert.Equal(t, FeedbackAccepted, after.Feedback["0xbbb"])

		ghost := &Meetup{ID: "00000000-0000-0000-0000-000000000000", Version: 1}
		assert.ErrorIs(t, s.UpdateMeetup(ctx, ghost), ErrNotFound)

		time.Sleep(5 * time.Millisecond)
		later := &Meetup{Participants: []string{"0xCCC", "0xaaa"}, Type: MeetupTypeAfterOffice, Status: MeetupStatusPending}
		require.NoError(t, s.CreateMeetup(ctx, later))

		list, err := s.ListMeetupsByParticipant(ctx, "0xaAa")
		require.NoError(t, err)
		require.Len(t, list, 2)
		assert.Equal(t, later.ID, list[0].ID)
		assert.Equal(t, m.ID, list[1].ID)

		none, err := s.ListMeetupsByParticipant(ctx, "0xnobody")
		require.NoError(t, err)
		assert.Empty(t, none)
	})

	t.Run("missing meetup is not found", func(t *testing.T) {
		_, err := s.GetMeetup(ctx, "nope")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("messages are listed newest first per sender", func(t *testing.T) {
		first := &Message{Sender: "0xAAA", Content: "hello"}
		require.NoError(t, s.CreateMessage(ctx, first))
		time.Sleep(5 * time.Millisecond)
		second := &Message{Sender: "0xAAA", Content: "still there?"}
		require.NoError(t, s.CreateMessage(ctx, second))
		require.NoError(t, s.CreateMessage(ctx, &Message{Sender: "0xBBB", Content: "other"}))

		msgs, err := s.ListMessagesBySender(ctx, "0xAAA")
		require.NoError(t, err)
		require.Len(t, msgs, 2)
		assert.Equal(t, second.ID, msgs[0].ID)
		assert.Equal(t, first.ID, msgs[1].ID)
	})
}

func profileIDs(profiles []Profile) []string {
	ids := make([]string, 0, len(profiles))
	for _, p := range profiles {
		ids = append(ids, p.ID)
	}
	return ids
}
