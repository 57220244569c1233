package core

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"geomeet.io/geo-meet/internal/store"
)

// fakeStore is an in-memory store.Store with hooks for failure injection.
type fakeStore struct {
	mu       sync.Mutex
	profiles map[string]store.Profile
	meetups  map[string]store.Meetup
	messages []store.Message
	nextID   int

	searchCalls int
	updateCalls int
	failWith    error
	// beforeUpdate runs inside UpdateMeetup before the version check.
	beforeUpdate func(stored *store.Meetup)
}

var _ store.Store = (*fakeStore)(nil)

func newFakeStore() *fakeStore {
	return &fakeStore{
		profiles: map[string]store.Profile{},
		meetups:  map[string]store.Meetup{},
	}
}

func (f *fakeStore) UpsertProfile(_ context.Context, p store.Profile) (*store.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return nil, f.failWith
	}
	if old, ok := f.profiles[p.ID]; ok {
		if p.Name == nil {
			p.Name = old.Name
		}
		if p.Industry == nil {
			p.Industry = old.Industry
		}
		if p.Role == nil {
			p.Role = old.Role
		}
		if p.FoodPreference == nil {
			p.FoodPreference = old.FoodPreference
		}
		if p.Availability == "" {
			p.Availability = old.Availability
		}
		if p.Lat == nil {
			p.Lat = old.Lat
		}
		if p.Lng == nil {
			p.Lng = old.Lng
		}
	}
	p.UpdatedAt = time.Now().UTC()
	f.profiles[p.ID] = p
	return &p, nil
}

func (f *fakeStore) GetProfile(_ context.Context, id string) (*store.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return nil, f.failWith
	}
	p, ok := f.profiles[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &p, nil
}

func (f *fakeStore) FindProfiles(_ context.Context, filter store.ProfileFilter) ([]store.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return nil, f.failWith
	}
	out := []store.Profile{}
	for _, p := range f.profiles {
		if p.Availability != filter.Availability {
			continue
		}
		if filter.Industry != "" && (p.Industry == nil || *p.Industry != filter.Industry) {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

func (f *fakeStore) SearchProfiles(_ context.Context, q string, limit int) ([]store.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.searchCalls++
	if f.failWith != nil {
		return nil, f.failWith
	}
	q = strings.ToLower(q)
	contains := func(s *string) bool { return s != nil && strings.Contains(strings.ToLower(*s), q) }
	out := []store.Profile{}
	for _, p := range f.profiles {
		if len(out) == limit {
			break
		}
		if contains(p.Name) || contains(p.Industry) || contains(p.Role) || strings.Contains(strings.ToLower(p.ID), q) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeStore) CreateMeetup(_ context.Context, m *store.Meetup) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return f.failWith
	}
	f.nextID++
	m.ID = fmt.Sprintf("meetup-%d", f.nextID)
	m.StartTime = time.Now().UTC().Add(time.Duration(f.nextID) * time.Millisecond)
	m.Version = 1
	f.meetups[m.ID] = cloneMeetup(*m)
	return nil
}

func (f *fakeStore) GetMeetup(_ context.Context, id string) (*store.Meetup, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return nil, f.failWith
	}
	m, ok := f.meetups[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	c := cloneMeetup(m)
	return &c, nil
}

func (f *fakeStore) ListMeetupsByParticipant(_ context.Context, userID string) ([]store.Meetup, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return nil, f.failWith
	}
	out := []store.Meetup{}
	for _, m := range f.meetups {
		if m.HasParticipant(userID) {
			out = append(out, cloneMeetup(m))
		}
	}
	return out, nil
}

func (f *fakeStore) UpdateMeetup(_ context.Context, m *store.Meetup) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updateCalls++
	if f.failWith != nil {
		return f.failWith
	}
	stored, ok := f.meetups[m.ID]
	if !ok {
		return store.ErrNotFound
	}
	if f.beforeUpdate != nil {
		f.beforeUpdate(&stored)
		f.meetups[m.ID] = stored
	}
	if stored.Version != m.Version {
		return store.ErrVersionConflict
	}
	stored.Status = m.Status
	stored.Feedback = cloneFeedback(m.Feedback)
	stored.Version++
	f.meetups[m.ID] = stored
	m.Version = stored.Version
	return nil
}

func (f *fakeStore) CreateMessage(_ context.Context, msg *store.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return f.failWith
	}
	f.nextID++
	msg.ID = fmt.Sprintf("message-%d", f.nextID)
	msg.CreatedAt = time.Now().UTC()
	f.messages = append(f.messages, *msg)
	return nil
}

func (f *fakeStore) ListMessagesBySender(_ context.Context, sender string) ([]store.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return nil, f.failWith
	}
	out := []store.Message{}
	for i := len(f.messages) - 1; i >= 0; i-- {
		if f.messages[i].Sender == sender {
			out = append(out, f.messages[i])
		}
	}
	return out, nil
}

func (f *fakeStore) Close() error { return nil }

// stored returns the persisted copy of a meetup for assertions.
func (f *fakeStore) stored(id string) store.Meetup {
	f.mu.Lock()
	defer f.mu.Unlock()
	return cloneMeetup(f.meetups[id])
}

func cloneMeetup(m store.Meetup) store.Meetup {
	m.Participants = append([]string(nil), m.Participants...)
	m.Feedback = cloneFeedback(m.Feedback)
	return m
}

func cloneFeedback(in map[string]string) map[string]string {
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
