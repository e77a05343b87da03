package spot

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Scalar holds a JSON scalar that may arrive as a number or a string.
// Decoding never fails, so one bad record cannot poison a whole catalog;
// conversion errors surface from Float/Int instead.
type Scalar struct {
	raw     string
	present bool
}

// UnmarshalJSON implements json.Unmarshaler.
func (s *Scalar) UnmarshalJSON(b []byte) error {
	text := strings.TrimSpace(string(b))
	switch {
	case text == "null":
		*s = Scalar{}
	case strings.HasPrefix(text, `"`):
		var str string
		if err := json.Unmarshal(b, &str); err != nil {
			*s = Scalar{raw: text, present: true}
			return nil
		}
		str = strings.TrimSpace(str)
		*s = Scalar{raw: str, present: str != ""}
	default:
		*s = Scalar{raw: text, present: true}
	}
	return nil
}

// MarshalJSON implements json.Marshaler.
func (s Scalar) MarshalJSON() ([]byte, error) {
	if !s.present {
		return []byte("null"), nil
	}
	return json.Marshal(s.raw)
}

// NewScalar builds a present Scalar from text.
func NewScalar(text string) Scalar {
	text = strings.TrimSpace(text)
	return Scalar{raw: text, present: text != ""}
}

// Present reports whether a non-empty value was supplied.
func (s Scalar) Present() bool { return s.present }

// String returns the raw text.
func (s Scalar) String() string { return s.raw }

// Float parses the value as a finite float64.
func (s Scalar) Float() (float64, error) {
	f, err := strconv.ParseFloat(s.raw, 64)
	if err != nil {
		return 0, fmt.Errorf("not a number: %q", s.raw)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("not a finite number: %q", s.raw)
	}
	return f, nil
}

// Int parses the value as a whole number.
func (s Scalar) Int() (int, error) {
	f, err := s.Float()
	if err != nil {
		return 0, err
	}
	if f != math.Trunc(f) || math.Abs(f) > math.MaxInt32 {
		return 0, fmt.Errorf("not a whole number: %q", s.raw)
	}
	return int(f), nil
}

// RawSpot is a catalog record as delivered by the catalog source.
// Both the camelCase shape and the legacy PascalCase shape (ID, Location,
// Latitude, ...) decode into it, since encoding/json matches keys case-insensitively.
type RawSpot struct {
	ID             Scalar `json:"id"`
	Name           string `json:"name"`
	Location       string `json:"location"`
	Latitude       Scalar `json:"latitude"`
	Longitude      Scalar `json:"longitude"`
	Type           string `json:"type"`
	PricePerHour   Scalar `json:"pricePerHour"`
	TotalSlots     Scalar `json:"totalSlots"`
	AvailableSlots Scalar `json:"availableSlots"`
	Authority      string `json:"authority"`
	Owner          string `json:"owner"`
	Contact        string `json:"contact"`
}

// Rejection describes a catalog record excluded from use.
type Rejection struct {
	Index  int    `json:"index"`
	ID     string `json:"id"`
	Reason string `json:"reason"`
}

// ToSpot coerces a raw record into a ParkingSpot. Coordinate ranges are not
// checked here; the ranker excludes out-of-range spots.
func (r RawSpot) ToSpot() (ParkingSpot, error) {
	id := strings.TrimSpace(r.ID.String())
	if !r.ID.Present() || id == "" {
		return ParkingSpot{}, fmt.Errorf("missing id")
	}
	if !r.Latitude.Present() || !r.Longitude.Present() {
		return ParkingSpot{}, fmt.Errorf("missing coordinates")
	}
	lat, err := r.Latitude.Float()
	if err != nil {
		return ParkingSpot{}, fmt.Errorf("latitude: %w", err)
	}
	lng, err := r.Longitude.Float()
	if err != nil {
		return ParkingSpot{}, fmt.Errorf("longitude: %w", err)
	}

	name := strings.TrimSpace(r.Name)
	if name == "" {
		name = strings.TrimSpace(r.Location)
	}
	if name == "" {
		name = id
	}

	s := ParkingSpot{
		ID:        id,
		Name:      name,
		Latitude:  lat,
		Longitude: lng,
		Type:      strings.TrimSpace(r.Type),
		Authority: strings.TrimSpace(r.Authority),
		Owner:     strings.TrimSpace(r.Owner),
		Contact:   strings.TrimSpace(r.Contact),
	}

	if r.PricePerHour.Present() {
		price, err := r.PricePerHour.Float()
		if err != nil {
			return ParkingSpot{}, fmt.Errorf("pricePerHour: %w", err)
		}
		if price < 0 {
			return ParkingSpot{}, fmt.Errorf("pricePerHour is negative: %v", price)
		}
		s.PricePerHour = &price
	}
	if s.TotalSlots, err = optionalCount(r.TotalSlots, "totalSlots"); err != nil {
		return ParkingSpot{}, err
	}
	if s.AvailableSlots, err = optionalCount(r.AvailableSlots, "availableSlots"); err != nil {
		return ParkingSpot{}, err
	}
	return s, nil
}

func optionalCount(v Scalar, field string) (*int, error) {
	if !v.Present() {
		return nil, nil
	}
	n, err := v.Int()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", field, err)
	}
	if n < 0 {
		return nil, fmt.Errorf("%s is negative: %d", field, n)
	}
	return &n, nil
}

// Normalize coerces a raw catalog. Records that fail coercion, and records
// repeating an id already seen, are returned as rejections.
func Normalize(raw []RawSpot) ([]ParkingSpot, []Rejection) {
	spots := make([]ParkingSpot, 0, len(raw))
	var rejected []Rejection
	seen := make(map[string]struct{}, len(raw))

	for i, r := range raw {
		s, err := r.ToSpot()
		if err != nil {
			rejected = append(rejected, Rejection{Index: i, ID: r.ID.String(), Reason: err.Error()})
			continue
		}
		if _, dup := seen[s.ID]; dup {
			rejected = append(rejected, Rejection{Index: i, ID: s.ID, Reason: "duplicate id"})
			continue
		}
		seen[s.ID] = struct{}{}
		spots = append(spots, s)
	}
	return spots, rejected
}

// DecodeCatalog parses a JSON array of catalog records.
func DecodeCatalog(data []byte) ([]RawSpot, error) {
	var raw []RawSpot
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to decode catalog: %w", err)
	}
	return raw, nil
}
