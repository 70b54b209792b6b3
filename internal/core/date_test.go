package core

import (
	"testing"
)

func TestAddMonthsSafe_MonthRollover(t *testing.T) {
	tests := []struct {
		name string
		date Date
		n    int
		want Date
	}{
		{
			name: "jan 31 plus one month in a leap year clamps to feb 29",
			date: NewDate(2024, 1, 31),
			n:    1,
			want: NewDate(2024, 2, 29),
		},
		{
			name: "jan 31 plus one month in a common year clamps to feb 28",
			date: NewDate(2023, 1, 31),
			n:    1,
			want: NewDate(2023, 2, 28),
		},
		{
			name: "day 31 into a 30-day month clamps to 30",
			date: NewDate(2025, 3, 31),
			n:    1,
			want: NewDate(2025, 4, 30),
		},
		{
			name: "year carry",
			date: NewDate(2025, 11, 15),
			n:    3,
			want: NewDate(2026, 2, 15),
		},
		{
			name: "negative step",
			date: NewDate(2025, 3, 31),
			n:    -1,
			want: NewDate(2025, 2, 28),
		},
		{
			name: "negative step across year boundary",
			date: NewDate(2025, 1, 31),
			n:    -2,
			want: NewDate(2024, 11, 30),
		},
		{
			name: "zero step is identity",
			date: NewDate(2025, 6, 15),
			n:    0,
			want: NewDate(2025, 6, 15),
		},
		{
			name: "twelve months preserves the day",
			date: NewDate(2025, 2, 28),
			n:    12,
			want: NewDate(2026, 2, 28),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := AddMonthsSafe(tt.date, tt.n)
			if !SameDay(got, tt.want) {
				t.Errorf("AddMonthsSafe(%s, %d) = %s, want %s", tt.date.Input(), tt.n, got.Input(), tt.want.Input())
			}
		})
	}
}

// The result month must always be month(d)+n mod 12 with year carry, for
// every starting day including the ones that clamp.
func TestAddMonthsSafe_NeverOverflowsIntoNextMonth(t *testing.T) {
	for day := 28; day <= 31; day++ {
		start := NewDate(2024, 1, day)
		for n := -24; n <= 24; n++ {
			got := AddMonthsSafe(start, n)
			wantMonths := (start.Year()*12 + start.Month() - 1) + n
			wantYear := wantMonths / 12
			wantMonth := wantMonths%12 + 1
			if got.Year() != wantYear || got.Month() != wantMonth {
				t.Fatalf("AddMonthsSafe(%s, %d) landed in %04d-%02d, want %04d-%02d",
					start.Input(), n, got.Year(), got.Month(), wantYear, wantMonth)
			}
		}
	}
}

// Round-trip every day of a full leap-year cycle through format and parse.
func TestParseLocalDate_RoundTrip(t *testing.T) {
	d := NewDate(2024, 1, 1)
	end := NewDate(2028, 1, 1)
	for d.Before(end) {
		parsed, err := ParseLocalDate(d.Input())
		if err != nil {
			t.Fatalf("ParseLocalDate(%q) error: %v", d.Input(), err)
		}
		if !SameDay(parsed, d) {
			t.Fatalf("round trip drifted: %s -> %s", d.Input(), parsed.Input())
		}
		d = Date{Time: d.AddDate(0, 0, 1)}
	}
}

func TestParseLocalDate(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Date
		wantErr bool
	}{
		{
			name:  "plain date",
			input: "2025-01-15",
			want:  NewDate(2025, 1, 15),
		},
		{
			name:  "full timestamp keeps its own calendar day",
			input: "2025-01-15T22:30:00-03:00",
			want:  NewDate(2025, 1, 15),
		},
		{
			name:  "utc timestamp",
			input: "2025-06-01T00:00:00Z",
			want:  NewDate(2025, 6, 1),
		},
		{
			name:    "garbage",
			input:   "15/01/2025",
			wantErr: true,
		},
		{
			name:    "timestamp without offset",
			input:   "2025-01-15T10:00:00",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseLocalDate(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseLocalDate(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if !tt.wantErr && !SameDay(got, tt.want) {
				t.Errorf("ParseLocalDate(%q) = %s, want %s", tt.input, got.Input(), tt.want.Input())
			}
		})
	}
}

func TestParseLocalDate_EmptyIsToday(t *testing.T) {
	got, err := ParseLocalDate("")
	if err != nil {
		t.Fatalf("ParseLocalDate(\"\") error: %v", err)
	}
	if got.IsZero() {
		t.Error("ParseLocalDate(\"\") returned the zero date, want today")
	}
}

func TestMonthsBetween(t *testing.T) {
	tests := []struct {
		name string
		a, b Date
		want int
	}{
		{"same month ignores days", NewDate(2025, 1, 1), NewDate(2025, 1, 31), 0},
		{"adjacent months", NewDate(2025, 1, 31), NewDate(2025, 2, 1), 1},
		{"one year", NewDate(2024, 3, 15), NewDate(2025, 3, 15), 12},
		{"negative", NewDate(2025, 4, 10), NewDate(2025, 1, 20), -3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := MonthsBetween(tt.a, tt.b); got != tt.want {
				t.Errorf("MonthsBetween(%s, %s) = %d, want %d", tt.a.Input(), tt.b.Input(), got, tt.want)
			}
		})
	}
}

func TestSameDay(t *testing.T) {
	a := NewDate(2025, 5, 20)
	b, err := ParseLocalDate("2025-05-20T23:59:59Z")
	if err != nil {
		t.Fatalf("ParseLocalDate error: %v", err)
	}
	if !SameDay(a, b) {
		t.Errorf("SameDay(%s, %s) = false, want true", a.Input(), b.Input())
	}
	if SameDay(a, NewDate(2025, 5, 21)) {
		t.Error("SameDay across days = true, want false")
	}
}
