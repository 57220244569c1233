package core

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"geomeet.io/geo-meet/internal/store"
)

func TestProfileUpsertAndGet(t *testing.T) {
	ctx := context.Background()
	svc := NewProfileService(newFakeStore())

	rows, err := svc.Upsert(ctx, store.Profile{
		ID:             " 0xA11CE ",
		Name:           strp("Alice"),
		FoodPreference: strp("vegan"),
		Availability:   store.AvailabilityLunch,
		Lat:            f64p(48.85),
		Lng:            f64p(2.35),
	})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "0xA11CE", rows[0].ID)

	got, err := svc.Get(ctx, "0xA11CE")
	require.NoError(t, err)
	assert.Equal(t, "vegan", *got.FoodPreference)
	assert.Equal(t, store.AvailabilityLunch, got.Availability)
}

func TestProfileUpsertValidation(t *testing.T) {
	svc := NewProfileService(newFakeStore())
	tests := []struct {
		name    string
		profile store.Profile
	}{
		{name: "missing id", profile: store.Profile{Name: strp("nobody")}},
		{name: "bad availability", profile: store.Profile{ID: "0x1", Availability: "brunch"}},
		{name: "lat out of range", profile: store.Profile{ID: "0x1", Lat: f64p(91)}},
		{name: "lng out of range", profile: store.Profile{ID: "0x1", Lng: f64p(-181)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Upsert(context.Background(), tt.profile)
			assert.ErrorIs(t, err, ErrValidation)
		})
	}
}

func TestProfileGetErrors(t *testing.T) {
	fake := newFakeStore()
	svc := NewProfileService(fake)

	_, err := svc.Get(context.Background(), "")
	assert.ErrorIs(t, err, ErrValidation)

	_, err = svc.Get(context.Background(), "0xmissing")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, "Profile not found", PublicMessage(err))

	fake.failWith = errors.New("timeout")
	_, err = svc.Upsert(context.Background(), store.Profile{ID: "0x1"})
	assert.ErrorIs(t, err, ErrStorage)
}
