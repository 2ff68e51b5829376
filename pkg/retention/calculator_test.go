package retention

import (
	"testing"
	"time"

	"mercator-hq/custodian/pkg/records"
)

func TestCalculator_ComputeStart(t *testing.T) {
	calc := NewCalculator()
	created := date(2020, 1, 1)
	published := date(2020, 2, 1)
	r := &records.Record{CreatedAt: created, PublishedAt: &published}

	tests := []struct {
		event StartEvent
		want  time.Time
	}{
		{StartCreated, created},
		{StartPublished, published},
		{StartModified, created},
		{StartArchived, created},
		{StartAcknowledged, created},
	}
	for _, tt := range tests {
		if got := calc.ComputeStart(r, tt.event); !got.Equal(tt.want) {
			t.Errorf("ComputeStart(%s) = %v, want %v", tt.event, got, tt.want)
		}
	}
}

// 2555 days from 2016-01-01 lands on 2022-12-30.
func TestCalculator_SevenYearExpiry(t *testing.T) {
	calc := NewCalculator(WithClock(fixedClock))

	expiry := calc.ComputeExpiry(date(2016, 1, 1), 2555)
	if expiry == nil {
		t.Fatal("ComputeExpiry() returned nil")
	}
	if want := date(2022, 12, 30); !expiry.Equal(want) {
		t.Errorf("ComputeExpiry() = %v, want %v", expiry, want)
	}
	if cd := calc.DaysUntil(expiry); !cd.Expired() {
		t.Errorf("DaysUntil() = %+v, want expired", cd)
	}
}

func TestCalculator_DaysUntil(t *testing.T) {
	calc := NewCalculator(WithClock(fixedClock))
	at := func(d time.Duration) *time.Time {
		v := testNow.Add(d)
		return &v
	}

	tests := []struct {
		name    string
		expiry  *time.Time
		want    Countdown
		expired bool
	}{
		{"indefinite", nil, Countdown{Indefinite: true}, false},
		{"partial day rounds up", at(36 * time.Hour), Countdown{Days: 2}, false},
		{"exactly one day", at(24 * time.Hour), Countdown{Days: 1}, false},
		{"now", at(0), Countdown{Days: 0}, true},
		{"an hour ago", at(-time.Hour), Countdown{Days: 0}, true},
		{"ten days ago", at(-10 * 24 * time.Hour), Countdown{Days: -10}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := calc.DaysUntil(tt.expiry)
			if got != tt.want {
				t.Errorf("DaysUntil() = %+v, want %+v", got, tt.want)
			}
			if got.Expired() != tt.expired {
				t.Errorf("Expired() = %v, want %v", got.Expired(), tt.expired)
			}
		})
	}
}

// Indefinite categories never get an expiry.
func TestCalculator_Indefinite(t *testing.T) {
	calc := NewCalculator(WithClock(fixedClock))

	for _, cat := range []Category{CategoryLegal, CategoryPermanent} {
		p := &Policy{ID: "p", RetentionCategory: cat, RetentionPeriodDays: intPtr(IndefinitePeriod), ActionOnExpiry: ActionDelete}
		period, ok := calc.PeriodFor(p)
		if !ok || period != IndefinitePeriod {
			t.Fatalf("PeriodFor(%s) = %d, %v", cat, period, ok)
		}
		expiry := calc.ComputeExpiry(date(2000, 1, 1), period)
		if expiry != nil {
			t.Errorf("ComputeExpiry(%s) = %v, want nil", cat, expiry)
		}
		cd := calc.DaysUntil(expiry)
		if cd.Reported() != IndefiniteDaysRemaining || cd.Expired() {
			t.Errorf("countdown = %+v", cd)
		}
		if got := Resolve(cd, false, p); got != LabelPermanent {
			t.Errorf("Resolve() = %q, want %q", got, LabelPermanent)
		}
	}
}

func TestCalculator_DefaultPeriods(t *testing.T) {
	calc := NewCalculator(WithDefaultPeriods(map[Category]int{CategoryStandard: 30}))

	if got, _ := calc.PeriodFor(&Policy{RetentionCategory: CategoryStandard}); got != 30 {
		t.Errorf("overridden Standard = %d, want 30", got)
	}
	if got, _ := calc.PeriodFor(&Policy{RetentionCategory: CategoryExtended}); got != 2555 {
		t.Errorf("Extended = %d, want 2555", got)
	}
	if DefaultPeriods[CategoryStandard] != 1095 {
		t.Error("WithDefaultPeriods mutated the package table")
	}
	if got, _ := calc.PeriodFor(&Policy{RetentionCategory: CategoryStandard, RetentionPeriodDays: intPtr(7)}); got != 7 {
		t.Errorf("explicit period = %d, want 7", got)
	}
}
