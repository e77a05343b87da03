package spot

import (
	"cmp"
	"slices"

	"github.com/parkfinder/service-parking/internal/domain/geo"
)

// DefaultResultCap is the number of ranked spots returned when no cap is given.
const DefaultResultCap = 30

// RankStatus tells the caller how to present a RankResult.
type RankStatus string

const (
	// StatusAwaitingLocation means no user position is known yet. It is not an error.
	StatusAwaitingLocation RankStatus = "awaiting-location"
	StatusRanked           RankStatus = "ranked"
)

// RankedSpot is a ParkingSpot annotated with its distance from the user.
type RankedSpot struct {
	ParkingSpot
	DistanceKm float64 `json:"distance_km"`
}

// Query holds the ranking parameters.
type Query struct {
	RadiusKm float64
	Cap      int
}

// RankResult is the outcome of ranking a catalog.
type RankResult struct {
	Status RankStatus
	// Spots is sorted by distance, then id, and holds at most Cap entries.
	Spots []RankedSpot
	// TotalFound is the match count before truncation.
	TotalFound int
	// Excluded lists spots skipped for invalid coordinates.
	Excluded []Rejection
}

// Rank filters the catalog to spots within q.RadiusKm of position (inclusive),
// orders them by ascending distance with ties broken by ascending id, and
// truncates to q.Cap (DefaultResultCap when q.Cap <= 0).
func Rank(catalog []ParkingSpot, position *geo.Position, q Query) RankResult {
	if position == nil {
		return RankResult{Status: StatusAwaitingLocation, Spots: []RankedSpot{}}
	}

	limit := q.Cap
	if limit <= 0 {
		limit = DefaultResultCap
	}

	origin := position.Point
	matches := make([]RankedSpot, 0)
	var excluded []Rejection

	for i, s := range catalog {
		p := s.Point()
		if !p.Valid() {
			excluded = append(excluded, Rejection{Index: i, ID: s.ID, Reason: "coordinates out of range"})
			continue
		}
		d := geo.Distance(origin, p)
		if d <= q.RadiusKm {
			matches = append(matches, RankedSpot{ParkingSpot: s, DistanceKm: d})
		}
	}

	slices.SortFunc(matches, func(a, b RankedSpot) int {
		if c := cmp.Compare(a.DistanceKm, b.DistanceKm); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})

	total := len(matches)
	if total > limit {
		matches = matches[:limit]
	}

	return RankResult{
		Status:     StatusRanked,
		Spots:      matches,
		TotalFound: total,
		Excluded:   excluded,
	}
}
