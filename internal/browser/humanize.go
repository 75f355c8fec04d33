package browser

import (
	"context"
	"math/rand"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
)

// Humanizer adds the timing and positional noise of a human operator to
// page interactions. The reservation site rejects sessions that click
// and type at machine speed.
type Humanizer struct {
	rng *rand.Rand
}

// NewHumanizer creates a humanizer with a time-seeded source.
func NewHumanizer() *Humanizer {
	return &Humanizer{rng: rand.New(rand.NewSource(time.Now().UnixNano()))}
}

// NewHumanizerWithRand creates a humanizer with a caller-owned source.
func NewHumanizerWithRand(rng *rand.Rand) *Humanizer {
	return &Humanizer{rng: rng}
}

// between returns a uniformly random duration in [min, max].
func (h *Humanizer) between(min, max time.Duration) time.Duration {
	if max <= min {
		return min
	}
	return min + time.Duration(h.rng.Int63n(int64(max-min)))
}

// Delay sleeps a random duration in [min, max], honoring ctx.
func (h *Humanizer) Delay(ctx context.Context, min, max time.Duration) error {
	timer := time.NewTimer(h.between(min, max))
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Click hovers the element, pauses, then clicks a random point inside
// the middle of its box. Falls back to a plain element click when the
// box cannot be resolved.
func (h *Humanizer) Click(ctx context.Context, page *rod.Page, el *rod.Element) error {
	if err := el.Hover(); err == nil {
		if err := h.Delay(ctx, 100*time.Millisecond, 300*time.Millisecond); err != nil {
			return err
		}
	}

	shape, err := el.Shape()
	if err == nil && shape != nil && len(shape.Quads) > 0 {
		quad := shape.Quads[0]
		x := quad[0] + (0.2+0.6*h.rng.Float64())*(quad[2]-quad[0])
		y := quad[1] + (0.2+0.6*h.rng.Float64())*(quad[5]-quad[1])
		if err := page.Mouse.MoveTo(proto.Point{X: x, Y: y}); err == nil {
			if err := page.Mouse.Click(proto.InputMouseButtonLeft, 1); err != nil {
				return err
			}
			return h.Delay(ctx, 200*time.Millisecond, 500*time.Millisecond)
		}
	}

	if err := el.Click(proto.InputMouseButtonLeft, 1); err != nil {
		return err
	}
	return h.Delay(ctx, 200*time.Millisecond, 500*time.Millisecond)
}

// Type clicks the field, then enters text one character at a time with
// typing jitter.
func (h *Humanizer) Type(ctx context.Context, el *rod.Element, text string) error {
	if err := el.Click(proto.InputMouseButtonLeft, 1); err != nil {
		return err
	}
	if err := h.Delay(ctx, 100*time.Millisecond, 300*time.Millisecond); err != nil {
		return err
	}

	for _, r := range text {
		if err := el.Input(string(r)); err != nil {
			return err
		}
		if err := h.Delay(ctx, 50*time.Millisecond, 150*time.Millisecond); err != nil {
			return err
		}
	}
	return nil
}
