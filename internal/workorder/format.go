package workorder

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
)

// numberDateGap separates the number from the date on the published line
const numberDateGap = "        "

// FormatNumber zero-pads the sequence part of "175/2025" to four digits.
// Values that are not "<int>/<year>" are returned trimmed.
func FormatNumber(number string) string {
	number = strings.TrimSpace(number)
	parts := strings.Split(number, "/")
	if len(parts) != 2 {
		return number
	}
	n, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil || n < 0 {
		return number
	}
	return fmt.Sprintf("%04d/%s", n, strings.TrimSpace(parts[1]))
}

// FormatDate normalizes a date cell to "DD.MM.YYYY.". It accepts
// "7.11.2025", "07,11,2025", "07-11-2025", ISO "2025-11-07" and Excel
// serial numbers. Anything else is returned as given, trimmed.
func FormatDate(raw string) string {
	s := strings.TrimSpace(raw)
	if s == "" {
		return ""
	}

	if serial, ok := excelSerial(s); ok {
		if t, err := excelize.ExcelDateToTime(serial, false); err == nil {
			return t.Format("02.01.2006.")
		}
	}

	s = strings.NewReplacer(",", ".", "-", ".").Replace(s)
	// Drop a trailing time, e.g. "2025.11.07 00:00:00"
	if i := strings.IndexByte(s, ' '); i > 0 && strings.Contains(s[i:], ":") {
		s = s[:i]
	}

	parts := strings.Split(strings.TrimRight(s, "."), ".")
	if len(parts) == 3 {
		if t, ok := parseDayMonthYear(parts); ok {
			return t.Format("02.01.2006.")
		}
		if len(strings.TrimSpace(parts[0])) == 4 {
			if t, ok := parseDayMonthYear([]string{parts[2], parts[1], parts[0]}); ok {
				return t.Format("02.01.2006.")
			}
		}
	}

	fields := strings.Fields(strings.ReplaceAll(s, ".", " "))
	if len(fields) >= 3 {
		return fmt.Sprintf("%s.%s.%s.", zfill(fields[0], 2), zfill(fields[1], 2), zfill(fields[2], 4))
	}
	return s
}

// excelSerial parses a date serial as stored by Excel, e.g. "45968" or
// "45968.5". Only five-digit day counts are accepted.
func excelSerial(s string) (float64, bool) {
	whole, frac, hasFrac := strings.Cut(s, ".")
	if len(whole) != 5 || (hasFrac && frac == "") {
		return 0, false
	}
	for _, r := range whole + frac {
		if r < '0' || r > '9' {
			return 0, false
		}
	}
	v, err := strconv.ParseFloat(s, 64)
	return v, err == nil
}

func parseDayMonthYear(parts []string) (time.Time, bool) {
	d, err1 := strconv.Atoi(strings.TrimSpace(parts[0]))
	m, err2 := strconv.Atoi(strings.TrimSpace(parts[1]))
	y, err3 := strconv.Atoi(strings.TrimSpace(parts[2]))
	if err1 != nil || err2 != nil || err3 != nil {
		return time.Time{}, false
	}
	if len(strings.TrimSpace(parts[2])) != 4 {
		return time.Time{}, false
	}
	t := time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
	if t.Day() != d || int(t.Month()) != m || t.Year() != y {
		return time.Time{}, false
	}
	return t, true
}

func zfill(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return strings.Repeat("0", width-len(s)) + s
}

// NumberLine builds the published data.txt line: number, eight spaces, date
func NumberLine(number, date string) string {
	return FormatNumber(number) + numberDateGap + FormatDate(date)
}

// SequenceNumber returns the integer before the "/" of a work order number
// or of a published number line.
func SequenceNumber(s string) (int, error) {
	s = strings.TrimSpace(s)
	if i := strings.IndexAny(s, "\r\n"); i >= 0 {
		s = s[:i]
	}
	head, _, _ := strings.Cut(s, "/")
	head = strings.TrimSpace(head)
	if head == "" {
		return 0, fmt.Errorf("no sequence number in %q", s)
	}
	n, err := strconv.Atoi(head)
	if err != nil {
		return 0, fmt.Errorf("no sequence number in %q: %w", s, err)
	}
	return n, nil
}
