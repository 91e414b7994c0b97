package clock

import (
	"testing"
	"time"
)

func TestDate_DropsTimeOfDay(t *testing.T) {
	loc := time.FixedZone("UTC+9", 9*60*60)
	in := time.Date(2024, 1, 10, 23, 30, 0, 0, loc)

	got := Date(in)
	want := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("Date(%v) = %v, want %v", in, got, want)
	}
}

func TestFixed_And_Today(t *testing.T) {
	c := Fixed(time.Date(2024, 1, 8, 15, 4, 5, 0, time.UTC))
	if got := Today(c); !got.Equal(time.Date(2024, 1, 8, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("Today = %v", got)
	}
}

func TestFunc_Advances(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c := Func(func() time.Time { return now })
	now = now.Add(48 * time.Hour)
	if got := c.Now(); got.Day() != 3 {
		t.Fatalf("expected day 3, got %v", got)
	}
}
