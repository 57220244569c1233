package utils

import (
	"math"
	"sort"
)

// EarthRadiusMeters is the mean Earth radius used by DistanceMeters.
const EarthRadiusMeters = 6371000.0

type Coordinate struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Locatable is anything that may carry a coordinate.
type Locatable interface {
	Location() (Coordinate, bool)
}

// Ranked pairs an item with its distance from an origin. DistanceMeters is
// nil when no origin was given or the item has no coordinate.
type Ranked[T any] struct {
	Item           T
	DistanceMeters *float64
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}

// DistanceMeters returns the haversine great-circle distance between a and b.
func DistanceMeters(a, b Coordinate) float64 {
	dLat := toRadians(b.Lat - a.Lat)
	dLng := toRadians(b.Lng - a.Lng)
	lat1 := toRadians(a.Lat)
	lat2 := toRadians(b.Lat)

	sinDLat := math.Sin(dLat / 2)
	sinDLng := math.Sin(dLng / 2)
	h := sinDLat*sinDLat + math.Cos(lat1)*math.Cos(lat2)*sinDLng*sinDLng
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
	return EarthRadiusMeters * c
}

// SortByNearest annotates items with their distance from origin and orders
// them ascending. Items without a coordinate go last. With a nil origin the
// input order is kept and no distances are set.
func SortByNearest[T Locatable](origin *Coordinate, items []T) []Ranked[T] {
	ranked := make([]Ranked[T], len(items))
	for i, item := range items {
		ranked[i].Item = item
		if origin == nil {
			continue
		}
		if loc, ok := item.Location(); ok {
			d := DistanceMeters(*origin, loc)
			ranked[i].DistanceMeters = &d
		}
	}
	if origin == nil {
		return ranked
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return distanceOrInf(ranked[i].DistanceMeters) < distanceOrInf(ranked[j].DistanceMeters)
	})
	return ranked
}

func distanceOrInf(d *float64) float64 {
	if d == nil {
		return math.Inf(1)
	}
	return *d
}
