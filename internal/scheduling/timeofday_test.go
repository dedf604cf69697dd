package scheduling

import (
	"testing"
	"time"
)

func TestParseTimeOfDay(t *testing.T) {
	cases := []struct {
		in      string
		want    TimeOfDay
		wantErr bool
	}{
		{in: "00:00", want: 0},
		{in: "09:30", want: 9*60 + 30},
		{in: "9:30", want: 9*60 + 30},
		{in: "23:59", want: 23*60 + 59},
		{in: "24:00", wantErr: true},
		{in: "12:60", wantErr: true},
		{in: "12:5", wantErr: true},
		{in: "1200", wantErr: true},
		{in: "ab:cd", wantErr: true},
		{in: "12:00:00", wantErr: true},
		{in: "-1:00", wantErr: true},
		{in: "", wantErr: true},
	}

	for _, tc := range cases {
		got, err := ParseTimeOfDay(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Errorf("ParseTimeOfDay(%q): expected error, got %v", tc.in, got)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseTimeOfDay(%q): unexpected error: %v", tc.in, err)
			continue
		}
		if got != tc.want {
			t.Errorf("ParseTimeOfDay(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestTimeOfDayString(t *testing.T) {
	cases := []struct {
		in   TimeOfDay
		want string
	}{
		{0, "00:00"},
		{9*60 + 5, "09:05"},
		{17 * 60, "17:00"},
		{23*60 + 59, "23:59"},
	}
	for _, tc := range cases {
		if got := tc.in.String(); got != tc.want {
			t.Errorf("TimeOfDay(%d).String() = %q, want %q", int(tc.in), got, tc.want)
		}
	}
}

func TestTimeOfDayAt(t *testing.T) {
	date := time.Date(2026, time.March, 2, 15, 44, 3, 0, time.UTC)
	tod := TimeOfDay(9*60 + 30)

	got := tod.At(date)
	want := time.Date(2026, time.March, 2, 9, 30, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("At() = %v, want %v", got, want)
	}
}

func TestTimeOfDayAddAndCompare(t *testing.T) {
	start := TimeOfDay(9 * 60)
	end := start.Add(30)

	if end.String() != "09:30" {
		t.Errorf("Add(30) = %s, want 09:30", end)
	}
	if !start.Before(end) {
		t.Error("start.Before(end) = false, want true")
	}
	if !end.After(start) {
		t.Error("end.After(start) = false, want true")
	}
}

func TestParseWeekdays(t *testing.T) {
	days, err := ParseWeekdays([]string{"Monday", "wednesday", "monday", "FRIDAY"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []time.Weekday{time.Monday, time.Wednesday, time.Friday}
	if len(days) != len(want) {
		t.Fatalf("got %d weekdays, want %d", len(days), len(want))
	}
	for i := range want {
		if days[i] != want[i] {
			t.Errorf("weekday[%d] = %v, want %v", i, days[i], want[i])
		}
	}

	if _, err := ParseWeekdays([]string{"monday", "funday"}); err == nil {
		t.Error("expected error for invalid weekday name")
	}
}
