package handlers

import (
	"fmt"
	"time"
)

// timeLayout returns the Go time layout for the given preference.
// timeFormat: "12" or "24". Default "24".
func timeLayout(timeFormat string) string {
	if timeFormat == "12" {
		return "3:04 PM"
	}
	return "15:04"
}

// dateLayout returns the Go time layout for the given preference.
// dateFormat: "dd-mm-yyyy", "mm-dd-yyyy", "yyyy-mm-dd". Default "dd-mm-yyyy".
func dateLayout(dateFormat string) string {
	switch dateFormat {
	case "mm-dd-yyyy":
		return "01-02-2006"
	case "yyyy-mm-dd":
		return "2006-01-02"
	default:
		return "02-01-2006" // dd-mm-yyyy
	}
}

// viewFormat holds the display preferences of one page render.
type viewFormat struct {
	date string
	time string
}

func (f viewFormat) Date(t *time.Time) string {
	if t == nil || t.IsZero() {
		return "never"
	}
	return t.Format(dateLayout(f.date))
}

func (f viewFormat) Day(t time.Time) string {
	return t.Format(dateLayout(f.date))
}

func (f viewFormat) DateTime(t *time.Time) string {
	if t == nil || t.IsZero() {
		return "never"
	}
	return t.Format(dateLayout(f.date) + " " + timeLayout(f.time))
}

// Hours renders hours with one decimal, e.g. "12.5 h".
func (viewFormat) Hours(h float64) string {
	return fmt.Sprintf("%.1f h", h)
}

// Duration renders an entry duration in seconds as "1h 05m". Running entries
// (negative durations) render as "running".
func (viewFormat) Duration(seconds int64) string {
	if seconds < 0 {
		return "running"
	}
	d := time.Duration(seconds) * time.Second
	return fmt.Sprintf("%dh %02dm", int(d.Hours()), int(d.Minutes())%60)
}

// Weeks renders an optional weeks-until-exhaustion estimate.
func (viewFormat) Weeks(w *float64) string {
	if w == nil {
		return "n/a"
	}
	return fmt.Sprintf("%.1f weeks", *w)
}
