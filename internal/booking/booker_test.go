package booking

import (
	"errors"
	"testing"
)

func TestContainsSuccess(t *testing.T) {
	cases := []struct {
		name string
		text string
		want bool
	}{
		{"confirmation dialog", "预约成功！请按时到场。", true},
		{"already booked", "您已经预约成功，请勿重复预约", true},
		{"embedded in page body", "...页面内容 预约成功 页面内容...", true},
		{"failure dialog", "该时段已被预约", false},
		{"empty", "", false},
		{"english only", "booking failed", false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ContainsSuccess(tc.text); got != tc.want {
				t.Errorf("ContainsSuccess(%q) = %v, want %v", tc.text, got, tc.want)
			}
		})
	}
}

func TestSentinelErrors(t *testing.T) {
	wrapped := errors.Join(ErrSlotUnavailable, errors.New("21:00-22:00"))
	if !errors.Is(wrapped, ErrSlotUnavailable) {
		t.Error("wrapped slot error should match sentinel")
	}
	if errors.Is(wrapped, ErrCampusNotFound) {
		t.Error("slot error should not match campus sentinel")
	}
}

func TestNewDefaults(t *testing.T) {
	b := New(Params{})
	if b.logger == nil {
		t.Error("nil logger should fall back to nop")
	}
	if b.rng == nil {
		t.Error("nil rand should fall back to a seeded source")
	}
	if b.Retries() != 0 {
		t.Errorf("fresh booker should have zero retries, got %d", b.Retries())
	}
}
