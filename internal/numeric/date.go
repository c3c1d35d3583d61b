package numeric

import (
	"fmt"
	"regexp"
	"strconv"

	perr "github.com/mkyuone/prescribe/internal/errors"
)

// Date is a Gregorian calendar date, day 0 being 0001-01-01 (the proleptic
// Gregorian calendar, extended backward past its historical adoption).
type Date struct {
	Year, Month, Day int
}

var dateLiteral = regexp.MustCompile(`^(-?\d{4,})-(\d{2})-(\d{2})$`)

// ParseDate validates a "YYYY-MM-DD" literal against the Gregorian calendar.
func ParseDate(line int, s string) (Date, error) {
	m := dateLiteral.FindStringSubmatch(s)
	if m == nil {
		return Date{}, perr.New(perr.RangeError, line, "invalid date literal %q", s)
	}
	y, _ := strconv.Atoi(m[1])
	mo, _ := strconv.Atoi(m[2])
	d, _ := strconv.Atoi(m[3])
	date := Date{Year: y, Month: mo, Day: d}
	if !date.valid() {
		return Date{}, perr.New(perr.RangeError, line, "invalid Gregorian date %q", s)
	}
	return date, nil
}

func isLeap(year int) bool {
	return year%4 == 0 && (year%100 != 0 || year%400 == 0)
}

func daysInMonth(year, month int) int {
	switch month {
	case 1, 3, 5, 7, 8, 10, 12:
		return 31
	case 4, 6, 9, 11:
		return 30
	case 2:
		if isLeap(year) {
			return 29
		}
		return 28
	}
	return 0
}

func (d Date) valid() bool {
	if d.Month < 1 || d.Month > 12 {
		return false
	}
	if d.Day < 1 || d.Day > daysInMonth(d.Year, d.Month) {
		return false
	}
	return true
}

// String renders the date as "YYYY-MM-DD".
func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, d.Month, d.Day)
}

// DayNumber converts the date to its proleptic-Gregorian day number, with
// day 0 defined as 0001-01-01. This is the encoding used by the random-file
// binary codec (§4.7 of the spec) and by date comparison/arithmetic.
func (d Date) DayNumber() int32 {
	y := d.Year
	// Shift to a year that starts in March so that the messy February leap
	// day falls at the end of the internal year, a standard trick for
	// proleptic Gregorian day-number arithmetic.
	a := (14 - d.Month) / 12
	y2 := y + 4800 - a
	m := d.Month + 12*a - 3
	jdn := d.Day + (153*m+2)/5 + 365*y2 + y2/4 - y2/100 + y2/400 - 32045
	// Julian Day Number of 0001-01-01 (proleptic Gregorian) is 1721426.
	return int32(jdn - 1721426)
}

// DateFromDayNumber is the inverse of DayNumber.
func DateFromDayNumber(n int32) Date {
	jdn := int64(n) + 1721426
	a := jdn + 32044
	b := (4*a + 3) / 146097
	c := a - (146097*b)/4
	d := (4*c + 3) / 1461
	e := c - (1461*d)/4
	m := (5*e + 2) / 153
	day := int(e - (153*m+2)/5 + 1)
	month := int(m + 3 - 12*(m/10))
	year := int(100*b + d - 4800 + m/10)
	return Date{Year: year, Month: month, Day: day}
}

// Compare returns -1, 0, or 1 for chronological ordering.
func (d Date) Compare(o Date) int {
	dn, on := d.DayNumber(), o.DayNumber()
	switch {
	case dn < on:
		return -1
	case dn > on:
		return 1
	default:
		return 0
	}
}

// Zero is the default date value (0001-01-01), used for uninitialized DATE
// variables per the spec's lifecycle rules.
var Zero = Date{Year: 1, Month: 1, Day: 1}
