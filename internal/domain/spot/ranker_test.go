package spot

import (
	"fmt"
	"testing"

	"github.com/parkfinder/service-parking/internal/domain/geo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pune = geo.Position{Point: geo.Point{Lat: 18.5204, Lng: 73.8567}, Source: geo.ProvenanceGPS}

// spotAt places a spot roughly km kilometres due north of pune.
func spotAt(id string, km float64) ParkingSpot {
	return ParkingSpot{
		ID:        id,
		Name:      "Spot " + id,
		Latitude:  pune.Lat + km/111.195,
		Longitude: pune.Lng,
	}
}

func TestRank_AwaitingLocation(t *testing.T) {
	catalog := []ParkingSpot{spotAt("a", 1)}

	result := Rank(catalog, nil, Query{RadiusKm: 5, Cap: 30})

	assert.Equal(t, StatusAwaitingLocation, result.Status)
	assert.Empty(t, result.Spots)
	assert.NotNil(t, result.Spots)
	assert.Zero(t, result.TotalFound)
}

func TestRank_FiltersByRadiusInOrder(t *testing.T) {
	catalog := []ParkingSpot{spotAt("far", 6), spotAt("mid", 2), spotAt("near", 0.5)}

	result := Rank(catalog, &pune, Query{RadiusKm: 5, Cap: 30})

	require.Equal(t, StatusRanked, result.Status)
	require.Len(t, result.Spots, 2)
	assert.Equal(t, "near", result.Spots[0].ID)
	assert.Equal(t, "mid", result.Spots[1].ID)
	assert.InDelta(t, 0.5, result.Spots[0].DistanceKm, 0.01)
	assert.InDelta(t, 2.0, result.Spots[1].DistanceKm, 0.01)
	assert.Equal(t, 2, result.TotalFound)
}

func TestRank_InclusiveBoundary(t *testing.T) {
	s := spotAt("edge", 3)
	d := geo.Distance(pune.Point, s.Point())

	result := Rank([]ParkingSpot{s}, &pune, Query{RadiusKm: d})

	require.Len(t, result.Spots, 1)
	assert.Equal(t, d, result.Spots[0].DistanceKm)
}

func TestRank_TieBreakByID(t *testing.T) {
	// Same coordinates, shuffled ids.
	catalog := []ParkingSpot{spotAt("c", 1), spotAt("a", 1), spotAt("b", 1)}

	result := Rank(catalog, &pune, Query{RadiusKm: 5})

	require.Len(t, result.Spots, 3)
	assert.Equal(t, "a", result.Spots[0].ID)
	assert.Equal(t, "b", result.Spots[1].ID)
	assert.Equal(t, "c", result.Spots[2].ID)
}

func TestRank_OrderIndependentOfInput(t *testing.T) {
	forward := []ParkingSpot{spotAt("x", 1), spotAt("y", 1), spotAt("z", 0.2), spotAt("w", 3)}
	backward := []ParkingSpot{forward[3], forward[2], forward[1], forward[0]}

	a := Rank(forward, &pune, Query{RadiusKm: 10})
	b := Rank(backward, &pune, Query{RadiusKm: 10})

	assert.Equal(t, a.Spots, b.Spots)
}

func TestRank_CapAndTotalFound(t *testing.T) {
	catalog := make([]ParkingSpot, 0, 50)
	for i := 0; i < 50; i++ {
		catalog = append(catalog, spotAt(fmt.Sprintf("p%02d", i), float64(i)*0.05))
	}

	result := Rank(catalog, &pune, Query{RadiusKm: 100})
	assert.Len(t, result.Spots, DefaultResultCap)
	assert.Equal(t, 50, result.TotalFound)

	capped := Rank(catalog, &pune, Query{RadiusKm: 100, Cap: 5})
	assert.Len(t, capped.Spots, 5)
	assert.Equal(t, 50, capped.TotalFound)
}

func TestRank_EveryResultWithinRadiusAndSorted(t *testing.T) {
	catalog := make([]ParkingSpot, 0, 40)
	for i := 0; i < 40; i++ {
		s := spotAt(fmt.Sprintf("s%d", i), float64((i*7)%13))
		s.Longitude += float64(i%5) * 0.01
		catalog = append(catalog, s)
	}

	for _, radius := range []float64{0, 0.5, 2, 5, 8.5, 20} {
		result := Rank(catalog, &pune, Query{RadiusKm: radius, Cap: 100})
		for i, r := range result.Spots {
			assert.LessOrEqual(t, r.DistanceKm, radius)
			if i > 0 {
				prev := result.Spots[i-1]
				assert.True(t, prev.DistanceKm < r.DistanceKm ||
					(prev.DistanceKm == r.DistanceKm && prev.ID < r.ID))
			}
		}
	}
}

func TestRank_ExcludesInvalidCoordinates(t *testing.T) {
	bad := ParkingSpot{ID: "bad", Latitude: 123, Longitude: 73.85}
	catalog := []ParkingSpot{spotAt("good", 1), bad}

	result := Rank(catalog, &pune, Query{RadiusKm: 1000})

	require.Len(t, result.Spots, 1)
	assert.Equal(t, "good", result.Spots[0].ID)
	require.Len(t, result.Excluded, 1)
	assert.Equal(t, "bad", result.Excluded[0].ID)
}

func TestFindByID(t *testing.T) {
	catalog := []ParkingSpot{spotAt("a", 1), spotAt("b", 2)}

	s, ok := FindByID(catalog, "b")
	assert.True(t, ok)
	assert.Equal(t, "b", s.ID)

	_, ok = FindByID(catalog, "zzz")
	assert.False(t, ok)
}
