package view

import (
	"fmt"
	"math"
	"time"
)

const day = 24 * time.Hour

// RelativeTime formats t relative to now the way the web client does, e.g.
// "a few seconds ago", "3 hours ago", "in 2 days"
func RelativeTime(t, now time.Time) string {
	if t.IsZero() {
		return ""
	}

	d := now.Sub(t)
	future := d < 0
	if future {
		d = -d
	}

	phrase := relativePhrase(d)
	if future {
		return "in " + phrase
	}
	return phrase + " ago"
}

func relativePhrase(d time.Duration) string {
	round := func(unit time.Duration) int {
		return int(math.Round(float64(d) / float64(unit)))
	}
	days := d.Hours() / 24

	switch {
	case d < 45*time.Second:
		return "a few seconds"
	case d < 90*time.Second:
		return "a minute"
	case d < 45*time.Minute:
		return fmt.Sprintf("%d minutes", round(time.Minute))
	case d < 90*time.Minute:
		return "an hour"
	case d < 22*time.Hour:
		return fmt.Sprintf("%d hours", round(time.Hour))
	case d < 36*time.Hour:
		return "a day"
	case days < 26:
		return fmt.Sprintf("%d days", round(day))
	case days < 46:
		return "a month"
	case days < 320:
		return fmt.Sprintf("%d months", max(2, int(math.Round(days/30.4))))
	case days < 548:
		return "a year"
	default:
		return fmt.Sprintf("%d years", max(2, int(math.Round(days/365.25))))
	}
}

// JoinedDate formats an account creation time as "Joined January 2006"
func JoinedDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return "Joined " + t.Format("January 2006")
}
