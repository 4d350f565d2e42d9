package tickstore

import (
	"testing"
	"time"
)

func TestNewBiTimestamp_DefaultsToLatest(t *testing.T) {
	asAt := time.Date(2019, 10, 7, 15, 30, 0, 0, time.UTC)
	bt := NewBiTimestamp(asAt)

	want := time.Date(2019, 10, 7, 0, 0, 0, 0, time.UTC)
	if !bt.AsAt.Equal(want) {
		t.Errorf("AsAt = %v, want %v (truncated to date)", bt.AsAt, want)
	}
	if !bt.AsOf.Equal(LatestAsOf) {
		t.Errorf("AsOf = %v, want LatestAsOf", bt.AsOf)
	}
}

func TestBiTimestamp_WithAsOf(t *testing.T) {
	asOf := time.Date(2019, 10, 8, 0, 15, 0, 0, time.UTC)
	bt := NewBiTimestamp(time.Date(2019, 10, 7, 0, 0, 0, 0, time.UTC)).WithAsOf(asOf)

	if !bt.AsOf.Equal(asOf) {
		t.Errorf("AsOf = %v, want %v", bt.AsOf, asOf)
	}
}

func TestDateOf_ConvertsToUTC(t *testing.T) {
	est := time.FixedZone("EST", -5*3600)
	// 23:30 EST on Oct 7 is 04:30 UTC on Oct 8.
	local := time.Date(2019, 10, 7, 23, 30, 0, 0, est)

	got := DateOf(local)
	want := time.Date(2019, 10, 8, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("DateOf(%v) = %v, want %v", local, got, want)
	}
}

func TestBiTimestamp_String(t *testing.T) {
	bt := NewBiTimestamp(time.Date(2019, 10, 7, 0, 0, 0, 0, time.UTC))
	got := bt.String()
	if got == "" || got[0] != '(' {
		t.Errorf("String() = %q, want parenthesized pair", got)
	}
}
