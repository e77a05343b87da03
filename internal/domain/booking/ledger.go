package booking

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"sync"

	"github.com/parkfinder/service-parking/internal/domain"
)

// DefaultLedgerKey is the storage key the ledger array lives under.
const DefaultLedgerKey = "park_bookings"

// Ledger is the append-only list of confirmed bookings. The whole list is
// read, modified and written back on each mutation; records are never edited.
type Ledger struct {
	store KVStore
	key   string
	mu    sync.Mutex
}

// NewLedger creates a Ledger over store. An empty key uses DefaultLedgerKey.
func NewLedger(store KVStore, key string) *Ledger {
	if key == "" {
		key = DefaultLedgerKey
	}
	return &Ledger{store: store, key: key}
}

// Key returns the storage key.
func (l *Ledger) Key() string { return l.key }

// Append adds a record to the end of the ledger. A record whose id is already
// present is rejected with a conflict error and nothing is written.
func (l *Ledger) Append(ctx context.Context, r Record) error {
	if r.ID == "" {
		return domain.NewValidationError("booking id is required")
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	records, err := l.load(ctx)
	if err != nil {
		return err
	}
	for _, existing := range records {
		if existing.ID == r.ID {
			return domain.NewConflictError(fmt.Sprintf("booking id %s already exists", r.ID))
		}
	}

	records = append(records, r)
	data, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("failed to encode booking ledger: %w", err)
	}
	if err := l.store.Set(ctx, l.key, string(data)); err != nil {
		return domain.NewUnavailableError("failed to persist booking", err)
	}
	return nil
}

// ListAll returns every record, most recently added first.
func (l *Ledger) ListAll(ctx context.Context) ([]Record, error) {
	l.mu.Lock()
	records, err := l.load(ctx)
	l.mu.Unlock()
	if err != nil {
		return nil, err
	}
	slices.Reverse(records)
	return records, nil
}

// Count returns the number of records.
func (l *Ledger) Count(ctx context.Context) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	records, err := l.load(ctx)
	if err != nil {
		return 0, err
	}
	return len(records), nil
}

// Clear removes the whole ledger.
func (l *Ledger) Clear(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.store.Remove(ctx, l.key); err != nil {
		return domain.NewUnavailableError("failed to clear booking ledger", err)
	}
	return nil
}

func (l *Ledger) load(ctx context.Context) ([]Record, error) {
	raw, found, err := l.store.Get(ctx, l.key)
	if err != nil {
		return nil, domain.NewUnavailableError("failed to read booking ledger", err)
	}
	records := make([]Record, 0)
	if !found || raw == "" {
		return records, nil
	}
	if err := json.Unmarshal([]byte(raw), &records); err != nil {
		// Refuse to write over a ledger that cannot be decoded.
		return nil, domain.NewUnavailableError("booking ledger is corrupt", err)
	}
	if records == nil {
		records = make([]Record, 0)
	}
	return records, nil
}
