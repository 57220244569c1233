package core

import (
	"context"
	"strings"

	log "github.com/sirupsen/logrus"

	"geomeet.io/geo-meet/internal/store"
)

type ProfileService struct {
	dbStore store.Store
}

func NewProfileService(db store.Store) *ProfileService {
	return &ProfileService{dbStore: db}
}

// Upsert writes p keyed by p.ID. Fields left nil keep their stored value, so
// callers should send a full snapshot when they mean to replace a profile.
func (s *ProfileService) Upsert(ctx context.Context, p store.Profile) ([]store.Profile, error) {
	p.ID = strings.TrimSpace(p.ID)
	if p.ID == "" {
		return nil, validationError("Missing id")
	}
	if p.Availability != "" && !p.Availability.Valid() {
		return nil, validationError("availability must be one of lunch, after-office, unavailable")
	}
	if p.Lat != nil && (*p.Lat < -90 || *p.Lat > 90) {
		return nil, validationError("lat must be between -90 and 90")
	}
	if p.Lng != nil && (*p.Lng < -180 || *p.Lng > 180) {
		return nil, validationError("lng must be between -180 and 180")
	}

	saved, err := s.dbStore.UpsertProfile(ctx, p)
	if err != nil {
		log.WithField("profile_id", p.ID).WithError(err).Error("profile upsert failed")
		return nil, fromStore("Failed to save profile", "Profile not found", err)
	}
	return []store.Profile{*saved}, nil
}

func (s *ProfileService) Get(ctx context.Context, id string) (*store.Profile, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, validationError("Missing id")
	}
	p, err := s.dbStore.GetProfile(ctx, id)
	if err != nil {
		return nil, fromStore("Failed to load profile", "Profile not found", err)
	}
	return p, nil
}
