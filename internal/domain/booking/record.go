package booking

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

// Record is a confirmed booking as stored in the ledger. It is immutable once created.
// The JSON shape is the persisted ledger format.
type Record struct {
	ID        string    `json:"id"`
	SpotName  string    `json:"locationName"`
	StartTime string    `json:"startTime"`
	EndTime   string    `json:"endTime"`
	Amount    string    `json:"amount"`
	CreatedAt time.Time `json:"date"`
}

// NewRecord snapshots a confirmed booking.
func NewRecord(id, spotName string, est Estimate, currencySymbol string, createdAt time.Time) (Record, error) {
	if strings.TrimSpace(id) == "" {
		return Record{}, fmt.Errorf("booking id is required")
	}
	if strings.TrimSpace(spotName) == "" {
		return Record{}, fmt.Errorf("spot name is required")
	}
	return Record{
		ID:        id,
		SpotName:  spotName,
		StartTime: est.Start.String(),
		EndTime:   est.End.String(),
		Amount:    est.Fare.Display(currencySymbol),
		CreatedAt: createdAt.UTC().Truncate(time.Millisecond),
	}, nil
}

// IDGenerator issues booking ids.
type IDGenerator interface {
	NextID() string
}

// ClockIDGenerator issues ids of the form "BK" + the last six digits of a
// millisecond timestamp. The timestamp never repeats or goes backwards within
// one generator, so ids are distinct until the six-digit suffix wraps.
type ClockIDGenerator struct {
	mu   sync.Mutex
	now  func() time.Time
	last int64
}

// NewClockIDGenerator creates a ClockIDGenerator. A nil clock uses time.Now.
func NewClockIDGenerator(now func() time.Time) *ClockIDGenerator {
	if now == nil {
		now = time.Now
	}
	return &ClockIDGenerator{now: now}
}

// NextID returns the next booking id.
func (g *ClockIDGenerator) NextID() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	ms := g.now().UnixMilli()
	if ms <= g.last {
		ms = g.last + 1
	}
	g.last = ms
	return fmt.Sprintf("BK%06d", ms%1_000_000)
}
