package booking

import "errors"

var (
	// ErrCampusNotFound means the configured campus never appeared in
	// the campus list.
	ErrCampusNotFound = errors.New("campus not found")

	// ErrFacilityNotFound means the configured facility never appeared
	// after campus selection.
	ErrFacilityNotFound = errors.New("facility not found")

	// ErrSlotUnavailable means no bookable button survived filtering for
	// the configured time slot.
	ErrSlotUnavailable = errors.New("time slot unavailable")

	// ErrNoSuccessMarker means the confirmation dialog appeared without
	// the success text.
	ErrNoSuccessMarker = errors.New("no success marker in booking result")

	// ErrBookingWindowExpired means retries ran past the grace window
	// after the release moment.
	ErrBookingWindowExpired = errors.New("booking window expired")
)
