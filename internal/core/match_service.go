package core

import (
	"context"
	"math"
	"strings"

	"geomeet.io/geo-meet/internal/store"
	"geomeet.io/geo-meet/internal/utils"
)

// DefaultBoxDegrees is the half-width of the matching box, roughly 1.1 km of
// latitude.
const DefaultBoxDegrees = 0.01

type MatchQuery struct {
	Origin       utils.Coordinate
	Availability store.Availability
	Industry     string
	// ExcludeID drops the requester's own profile from the result.
	ExcludeID string
}

type MatchService struct {
	dbStore    store.Store
	boxDegrees float64
}

func NewMatchService(db store.Store, boxDegrees float64) *MatchService {
	if boxDegrees <= 0 {
		boxDegrees = DefaultBoxDegrees
	}
	return &MatchService{dbStore: db, boxDegrees: boxDegrees}
}

// FindNearby returns profiles sharing the requested availability whose
// latitude and longitude each differ from the origin by less than the box
// half-width. Profiles without a coordinate never match. The result is not
// ordered by distance.
func (s *MatchService) FindNearby(ctx context.Context, q MatchQuery) ([]store.Profile, error) {
	if q.Availability == "" {
		return nil, validationError("Missing type")
	}
	if !q.Availability.Valid() {
		return nil, validationError("type must be one of lunch, after-office, unavailable")
	}

	candidates, err := s.dbStore.FindProfiles(ctx, store.ProfileFilter{
		Availability: q.Availability,
		Industry:     q.Industry,
	})
	if err != nil {
		return nil, fromStore("Failed to load profiles", "Profiles not found", err)
	}

	nearby := make([]store.Profile, 0, len(candidates))
	for _, p := range candidates {
		if q.ExcludeID != "" && strings.EqualFold(p.ID, q.ExcludeID) {
			continue
		}
		loc, ok := p.Location()
		if !ok {
			continue
		}
		if s.withinBox(q.Origin, loc) {
			nearby = append(nearby, p)
		}
	}
	return nearby, nil
}

func (s *MatchService) withinBox(origin, c utils.Coordinate) bool {
	return math.Abs(c.Lat-origin.Lat) < s.boxDegrees && math.Abs(c.Lng-origin.Lng) < s.boxDegrees
}
