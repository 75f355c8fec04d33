package captcha

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNormalize(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"AB3d", "ab3d"},
		{"  ab 3d \n", "ab3d"},
		{`"Xy9Z"`, "xy9z"},
		{"code: `k2m8`", "codek2m8"},
		{"验证码abcd", "abcd"},
		{"", ""},
		{"!!??", ""},
	}
	for _, tc := range cases {
		if got := Normalize(tc.in); got != tc.want {
			t.Errorf("Normalize(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestManualSolver(t *testing.T) {
	dir := t.TempDir()
	imgPath := filepath.Join(dir, "captcha.png")

	var out strings.Builder
	s := &ManualSolver{
		In:        strings.NewReader("AB 3d\n"),
		Out:       &out,
		ImagePath: imgPath,
	}

	code, err := s.Solve(context.Background(), []byte("fake-png"))
	if err != nil {
		t.Fatalf("Solve failed: %v", err)
	}
	if code != "ab3d" {
		t.Errorf("unexpected code: %q", code)
	}

	if _, err := os.Stat(imgPath); err != nil {
		t.Errorf("captcha image not written: %v", err)
	}
	if !strings.Contains(out.String(), "enter captcha code") {
		t.Errorf("prompt missing from output: %q", out.String())
	}
}

func TestManualSolver_EmptyAnswer(t *testing.T) {
	s := &ManualSolver{In: strings.NewReader("\n"), Out: &strings.Builder{}}
	if _, err := s.Solve(context.Background(), nil); err == nil {
		t.Fatal("expected error for empty answer")
	}
}

func TestManualSolver_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// Reader that never produces a line.
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("pipe: %v", err)
	}
	defer r.Close()
	defer w.Close()

	s := &ManualSolver{In: r, Out: &strings.Builder{}}
	if _, err := s.Solve(ctx, nil); err == nil {
		t.Fatal("expected error for cancelled context")
	}
}
