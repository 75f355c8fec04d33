// Package schedule handles the timed-release nature of gym reservations:
// slots open at a fixed wall-clock moment in Beijing time, the bot should
// be logged in and waiting just before that moment, and give up shortly
// after it.
package schedule

import (
	"context"
	"errors"
	"fmt"
	"time"
	_ "time/tzdata"
)

const (
	// Lead is how long before the release moment the flow should start.
	Lead = time.Minute
	// Grace bounds retries after the release moment.
	Grace = 10 * time.Minute

	layout = "2006-01-02 15:04:05"
)

// ErrPastBookingTime is returned for release moments already behind us.
var ErrPastBookingTime = errors.New("booking time is in the past")

var beijing = mustLoadBeijing()

func mustLoadBeijing() *time.Location {
	loc, err := time.LoadLocation("Asia/Shanghai")
	if err != nil {
		// time/tzdata is linked in, so this only fires on a corrupt build.
		panic(fmt.Sprintf("load Asia/Shanghai: %v", err))
	}
	return loc
}

// ParseBookingTime parses a "YYYY-MM-DD HH:MM:SS" Beijing wall-clock
// string and returns the moment in UTC.
func ParseBookingTime(s string) (time.Time, error) {
	t, err := time.ParseInLocation(layout, s, beijing)
	if err != nil {
		return time.Time{}, fmt.Errorf("booking time must be %q (Beijing time): %w", layout, err)
	}
	return t.UTC(), nil
}

// ValidateFuture rejects release moments at or before now.
func ValidateFuture(bookingTime, now time.Time) error {
	if !bookingTime.After(now) {
		return fmt.Errorf("%w: %s (now %s)", ErrPastBookingTime,
			FormatBeijing(bookingTime), FormatBeijing(now))
	}
	return nil
}

// StartTime returns when the flow should wake up for a release moment.
func StartTime(bookingTime time.Time) time.Time {
	return bookingTime.Add(-Lead)
}

// Deadline returns the moment after which retrying is pointless.
func Deadline(bookingTime time.Time) time.Time {
	return bookingTime.Add(Grace)
}

// FormatBeijing renders a moment as a Beijing wall-clock string.
func FormatBeijing(t time.Time) string {
	return t.In(beijing).Format(layout)
}

// Now returns the current moment in UTC.
func Now() time.Time {
	return time.Now().UTC()
}

// WaitUntil sleeps until t. It returns true when it actually waited and
// false when t had already passed. Cancelling the context aborts the wait.
func WaitUntil(ctx context.Context, t time.Time) (bool, error) {
	d := time.Until(t)
	if d <= 0 {
		return false, nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false, ctx.Err()
	case <-timer.C:
		return true, nil
	}
}
