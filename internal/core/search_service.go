package core

import (
	"context"
	"strings"

	"geomeet.io/geo-meet/internal/store"
)

const DefaultSearchLimit = 25

type SearchService struct {
	dbStore store.Store
	limit   int
}

func NewSearchService(db store.Store, limit int) *SearchService {
	if limit <= 0 {
		limit = DefaultSearchLimit
	}
	return &SearchService{dbStore: db, limit: limit}
}

// Search matches q as a case-insensitive substring of name, industry, role
// or id. A blank query returns no rows and does not touch the store.
func (s *SearchService) Search(ctx context.Context, q string) ([]store.Profile, error) {
	q = strings.TrimSpace(q)
	if q == "" {
		return []store.Profile{}, nil
	}
	profiles, err := s.dbStore.SearchProfiles(ctx, q, s.limit)
	if err != nil {
		return nil, fromStore("Failed to search profiles", "Profiles not found", err)
	}
	return profiles, nil
}
