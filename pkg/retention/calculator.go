package retention

import (
	"math"
	"time"

	"mercator-hq/custodian/pkg/records"
)

// DefaultPeriods is the built-in retention period, in days, for each
// category. Calculators copy it at construction.
var DefaultPeriods = map[Category]int{
	CategoryStandard:   1095,
	CategoryExtended:   2555,
	CategoryRegulatory: 3650,
	CategoryLegal:      IndefinitePeriod,
	CategoryPermanent:  IndefinitePeriod,
}

// Calculator computes retention start, expiry and countdown. It is safe for
// concurrent use; its period table never changes after construction.
type Calculator struct {
	defaults map[Category]int
	now      func() time.Time
}

// CalculatorOption configures a Calculator.
type CalculatorOption func(*Calculator)

// WithClock overrides the calculator's notion of now.
func WithClock(now func() time.Time) CalculatorOption {
	return func(c *Calculator) {
		c.now = now
	}
}

// WithDefaultPeriods overrides entries of the default period table.
func WithDefaultPeriods(periods map[Category]int) CalculatorOption {
	return func(c *Calculator) {
		for k, v := range periods {
			c.defaults[k] = v
		}
	}
}

// NewCalculator creates a Calculator seeded with DefaultPeriods.
func NewCalculator(opts ...CalculatorOption) *Calculator {
	c := &Calculator{
		defaults: make(map[Category]int, len(DefaultPeriods)),
		now:      time.Now,
	}
	for k, v := range DefaultPeriods {
		c.defaults[k] = v
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Now returns the calculator's current time.
func (c *Calculator) Now() time.Time {
	return c.now()
}

// DefaultPeriod returns the default period for a category.
func (c *Calculator) DefaultPeriod(category Category) (int, bool) {
	days, ok := c.defaults[category]
	return days, ok
}

// PeriodFor returns the effective period of p: its explicit period or the
// category default.
func (c *Calculator) PeriodFor(p *Policy) (int, bool) {
	if p.RetentionPeriodDays != nil {
		return *p.RetentionPeriodDays, true
	}
	return c.DefaultPeriod(p.RetentionCategory)
}

// ComputeStart returns the timestamp the retention period counts from,
// falling back to CreatedAt when the requested one is absent.
func (c *Calculator) ComputeStart(r *records.Record, event StartEvent) time.Time {
	var t *time.Time
	switch event {
	case StartPublished:
		t = r.PublishedAt
	case StartModified:
		t = r.ModifiedAt
	case StartArchived:
		t = r.ArchivedAt
	case StartAcknowledged:
		t = r.AcknowledgedAt
	}
	if t == nil || t.IsZero() {
		return r.CreatedAt
	}
	return *t
}

// ComputeExpiry returns start plus periodDays calendar days, or nil when the
// period is indefinite.
func (c *Calculator) ComputeExpiry(start time.Time, periodDays int) *time.Time {
	if periodDays == IndefinitePeriod {
		return nil
	}
	expiry := start.AddDate(0, 0, periodDays)
	return &expiry
}

// DaysUntil returns the whole days from now until expiry, rounded up.
func (c *Calculator) DaysUntil(expiry *time.Time) Countdown {
	if expiry == nil {
		return Countdown{Indefinite: true}
	}
	remaining := expiry.Sub(c.now())
	days := math.Ceil(remaining.Hours() / 24)
	return Countdown{Days: int(days)}
}
