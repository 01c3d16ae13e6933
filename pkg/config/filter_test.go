package config

import (
	"testing"
	"time"

	"github.com/zippowriter/bigquery-dashboard/internal/bqerr"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestNewFilterConfigValidation(t *testing.T) {
	cases := []struct {
		name    string
		days    int
		start   time.Time
		end     time.Time
		dataset string
		pattern string
		min     int64
		wantErr bool
	}{
		{name: "defaults", days: 0},
		{name: "explicit_days", days: 7},
		{name: "negative_days", days: -1, wantErr: true},
		{name: "negative_min", min: -1, wantErr: true},
		{name: "valid_range", start: date(2024, 1, 1), end: date(2024, 2, 1)},
		{name: "start_without_end", start: date(2024, 1, 1), wantErr: true},
		{name: "end_without_start", end: date(2024, 2, 1), wantErr: true},
		{name: "start_after_end", start: date(2024, 2, 1), end: date(2024, 1, 1), wantErr: true},
		{name: "start_equals_end", start: date(2024, 1, 1), end: date(2024, 1, 1), wantErr: true},
		{name: "valid_pattern", pattern: `^events_\d+$`},
		{name: "invalid_pattern", pattern: `events_[`, wantErr: true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			fc, err := NewFilterConfig(tc.days, tc.start, tc.end, tc.dataset, tc.pattern, tc.min)
			if tc.wantErr {
				if err == nil {
					t.Fatal("expected validation error")
				}
				if bqerr.KindOf(err) != bqerr.KindValidation {
					t.Errorf("expected validation kind, got %v", bqerr.KindOf(err))
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tc.days == 0 && !fc.HasExplicitRange() && fc.Days != DefaultDays {
				t.Errorf("expected default days %d, got %d", DefaultDays, fc.Days)
			}
		})
	}
}

func TestEffectiveRange(t *testing.T) {
	now := date(2024, 6, 1)

	fc, err := NewFilterConfig(7, time.Time{}, time.Time{}, "", "", 0)
	if err != nil {
		t.Fatal(err)
	}
	start, end := fc.EffectiveRange(now)
	if !end.Equal(now) || !start.Equal(now.AddDate(0, 0, -7)) {
		t.Errorf("relative range = [%v, %v)", start, end)
	}

	explicitStart, explicitEnd := date(2024, 1, 1), date(2024, 2, 1)
	fc, err = NewFilterConfig(0, explicitStart, explicitEnd, "", "", 0)
	if err != nil {
		t.Fatal(err)
	}
	start, end = fc.EffectiveRange(now)
	if !start.Equal(explicitStart) || !end.Equal(explicitEnd) {
		t.Errorf("explicit range = [%v, %v)", start, end)
	}
}

func TestExceedsRetention(t *testing.T) {
	now := date(2024, 6, 1)

	cases := []struct {
		name  string
		days  int
		start time.Time
		end   time.Time
		want  bool
	}{
		{name: "well_within", days: 30, want: false},
		{name: "at_boundary", days: InfoSchemaRetentionDays, want: false},
		{name: "beyond", days: InfoSchemaRetentionDays + 1, want: true},
		{name: "explicit_beyond", start: date(2023, 1, 1), end: date(2024, 1, 1), want: true},
		{name: "explicit_within", start: date(2024, 5, 1), end: date(2024, 6, 1), want: false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			fc, err := NewFilterConfig(tc.days, tc.start, tc.end, "", "", 0)
			if err != nil {
				t.Fatal(err)
			}
			if got := fc.ExceedsRetention(now); got != tc.want {
				t.Errorf("ExceedsRetention = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestMatchesDataset(t *testing.T) {
	cases := []struct {
		filter  string
		dataset string
		want    bool
	}{
		{filter: "", dataset: "anything", want: true},
		{filter: "analytics", dataset: "analytics", want: true},
		{filter: "analytics", dataset: "analytics_staging", want: true},
		{filter: "analytics", dataset: "ops", want: false},
		{filter: "analytics", dataset: "pre_analytics", want: false},
	}

	for _, tc := range cases {
		fc, err := NewFilterConfig(0, time.Time{}, time.Time{}, tc.filter, "", 0)
		if err != nil {
			t.Fatal(err)
		}
		if got := fc.MatchesDataset(tc.dataset); got != tc.want {
			t.Errorf("MatchesDataset(%q) with filter %q = %v, want %v",
				tc.dataset, tc.filter, got, tc.want)
		}
	}
}

func TestMatchesTable(t *testing.T) {
	cases := []struct {
		pattern string
		table   string
		want    bool
	}{
		{pattern: "", table: "anything", want: true},
		{pattern: "^events_", table: "events_20240601", want: true},
		{pattern: "^events_", table: "users", want: false},
		{pattern: "temp", table: "my_temp_table", want: true},
	}

	for _, tc := range cases {
		fc, err := NewFilterConfig(0, time.Time{}, time.Time{}, "", tc.pattern, 0)
		if err != nil {
			t.Fatal(err)
		}
		if got := fc.MatchesTable(tc.table); got != tc.want {
			t.Errorf("MatchesTable(%q) with pattern %q = %v, want %v",
				tc.table, tc.pattern, got, tc.want)
		}
	}
}
