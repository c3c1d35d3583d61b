package numeric

import "testing"

func TestDivMod(t *testing.T) {
	tests := []struct {
		name    string
		a, b    int32
		wantQ   int32
		wantR   int32
		wantErr bool
	}{
		{"positive/positive", 7, 3, 2, 1, false},
		{"negative dividend", -7, 3, -3, 2, false},
		{"negative divisor", 7, -3, -2, 1, false},
		{"both negative", -7, -3, 3, 2, false},
		{"exact", 9, 3, 3, 0, false},
		{"zero dividend", 0, 5, 0, 0, false},
		{"division by zero", 5, 0, 0, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, r, err := DivMod(1, tt.a, tt.b)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected an error, got q=%d r=%d", q, r)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if q != tt.wantQ || r != tt.wantR {
				t.Errorf("DivMod(%d, %d) = (%d, %d), want (%d, %d)", tt.a, tt.b, q, r, tt.wantQ, tt.wantR)
			}
			if r < 0 || (tt.b > 0 && r >= tt.b) || (tt.b < 0 && r >= -tt.b) {
				t.Errorf("remainder %d violates 0 <= r < |b| for b=%d", r, tt.b)
			}
		})
	}
}

func TestCheckInt32Overflow(t *testing.T) {
	if _, err := AddInt(1, MaxInt32, 1); err == nil {
		t.Error("expected overflow error adding past MaxInt32")
	}
	if _, err := SubInt(1, MinInt32, 1); err == nil {
		t.Error("expected overflow error subtracting past MinInt32")
	}
	if _, err := MulInt(1, MaxInt32, 2); err == nil {
		t.Error("expected overflow error multiplying past MaxInt32")
	}
	if v, err := AddInt(1, 2, 3); err != nil || v != 5 {
		t.Errorf("AddInt(2, 3) = (%d, %v), want (5, nil)", v, err)
	}
}

func TestFormatReal(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{0, "0"},
		{20, "20"},
		{1.5, "1.5"},
		{-1.5, "-1.5"},
		{0.1, "0.1"},
		{1.0 / 3.0, "0.333333"},
		{2.0000005, "2.000001"},
		{-0.0000001, "0"},
	}
	for _, tt := range tests {
		if got := FormatReal(tt.in); got != tt.want {
			t.Errorf("FormatReal(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestDateDayNumberRoundTrip(t *testing.T) {
	dates := []Date{
		{Year: 1, Month: 1, Day: 1},
		{Year: 2024, Month: 2, Day: 29},
		{Year: 2000, Month: 1, Day: 1},
		{Year: 1999, Month: 12, Day: 31},
		{Year: 1900, Month: 3, Day: 1},
	}
	for _, d := range dates {
		n := d.DayNumber()
		got := DateFromDayNumber(n)
		if got != d {
			t.Errorf("round trip for %s: got %s (day number %d)", d, got, n)
		}
	}
}

func TestDateCompare(t *testing.T) {
	a := Date{Year: 2024, Month: 1, Day: 1}
	b := Date{Year: 2024, Month: 2, Day: 29}
	if a.Compare(b) >= 0 {
		t.Errorf("%s should compare before %s", a, b)
	}
	if b.Compare(a) <= 0 {
		t.Errorf("%s should compare after %s", b, a)
	}
	if a.Compare(a) != 0 {
		t.Errorf("%s should compare equal to itself", a)
	}
}

func TestParseDateRejectsInvalidCalendarDates(t *testing.T) {
	tests := []string{
		"2023-02-29", // not a leap year
		"2024-13-01", // month out of range
		"2024-00-10",
		"2024-01-32",
		"not-a-date",
	}
	for _, s := range tests {
		if _, err := ParseDate(1, s); err == nil {
			t.Errorf("ParseDate(%q) should have failed", s)
		}
	}
	if _, err := ParseDate(1, "2024-02-29"); err != nil {
		t.Errorf("ParseDate(2024-02-29) should succeed on a leap year: %v", err)
	}
}
