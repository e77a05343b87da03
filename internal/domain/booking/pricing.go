package booking

import (
	"fmt"
	"math"
	"strconv"
)

// PriceUnknownLabel is shown in place of an amount when a spot has no hourly price.
const PriceUnknownLabel = "Contact owner"

// MinimumDurationHours is charged when the end time is not after the start time.
const MinimumDurationHours = 1

// Fare is either a non-negative amount or the "price unknown" sentinel.
type Fare struct {
	amount float64
	known  bool
}

// KnownFare returns a fare with the given amount.
func KnownFare(amount float64) Fare { return Fare{amount: amount, known: true} }

// UnknownFare returns the "price unknown" sentinel.
func UnknownFare() Fare { return Fare{} }

// IsKnown reports whether a numeric amount exists.
func (f Fare) IsKnown() bool { return f.known }

// Amount returns the amount and whether it is known.
func (f Fare) Amount() (float64, bool) { return f.amount, f.known }

// Display renders the fare for a person, e.g. "₹100" or "Contact owner".
func (f Fare) Display(currencySymbol string) string {
	if !f.known {
		return PriceUnknownLabel
	}
	rounded := math.Round(f.amount*100) / 100
	return currencySymbol + strconv.FormatFloat(rounded, 'f', -1, 64)
}

// Estimate is the outcome of fare estimation for a time range.
type Estimate struct {
	Start         TimeOfDay
	End           TimeOfDay
	DurationHours int
	Fare          Fare
	// Clamped is set when the range was not positive and the minimum duration applied.
	Clamped bool
}

// FareParams holds the inputs for fare estimation.
type FareParams struct {
	// PricePerHour is nil when the price is unknown.
	PricePerHour *float64
	StartTime    string
	EndTime      string
}

// FareEstimator defines the interface for estimating booking fares.
type FareEstimator interface {
	// Estimate returns the billed duration and fare for the given parameters.
	Estimate(params FareParams) (Estimate, error)
}

// HourlyFareEstimator bills whole hours at the spot's hourly price.
type HourlyFareEstimator struct{}

// NewHourlyFareEstimator creates a new HourlyFareEstimator.
func NewHourlyFareEstimator() *HourlyFareEstimator {
	return &HourlyFareEstimator{}
}

// Estimate computes the fare.
//
// Rules:
//   - duration is end - start on a single day, rounded up to whole hours
//   - an end time not strictly after the start time bills MinimumDurationHours
//   - without a price the fare is the unknown sentinel
func (e *HourlyFareEstimator) Estimate(params FareParams) (Estimate, error) {
	start, err := ParseTimeOfDay(params.StartTime)
	if err != nil {
		return Estimate{}, fmt.Errorf("start time: %w", err)
	}
	end, err := ParseTimeOfDay(params.EndTime)
	if err != nil {
		return Estimate{}, fmt.Errorf("end time: %w", err)
	}

	est := Estimate{Start: start, End: end}

	diff := end.Minutes() - start.Minutes()
	if diff <= 0 {
		est.DurationHours = MinimumDurationHours
		est.Clamped = true
	} else {
		est.DurationHours = max((diff+59)/60, MinimumDurationHours)
	}

	if params.PricePerHour == nil {
		est.Fare = UnknownFare()
		return est, nil
	}

	price := *params.PricePerHour
	if price < 0 || math.IsNaN(price) || math.IsInf(price, 0) {
		return Estimate{}, fmt.Errorf("price per hour must be a non-negative number, got %v", price)
	}
	est.Fare = KnownFare(price * float64(est.DurationHours))
	return est, nil
}
