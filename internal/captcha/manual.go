package captcha

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// ManualSolver asks the operator to read the captcha. Used in debug mode
// (browser window visible) or when no vision API key is configured. The
// image is also written to a file so headless operators can open it.
type ManualSolver struct {
	In        io.Reader
	Out       io.Writer
	ImagePath string
}

// NewManualSolver creates a solver prompting on the terminal.
func NewManualSolver(imagePath string) *ManualSolver {
	return &ManualSolver{In: os.Stdin, Out: os.Stdout, ImagePath: imagePath}
}

// Solve writes the image to disk, prompts, and reads one line.
func (s *ManualSolver) Solve(ctx context.Context, png []byte) (string, error) {
	if s.ImagePath != "" && len(png) > 0 {
		if err := os.MkdirAll(filepath.Dir(s.ImagePath), 0o755); err == nil {
			_ = os.WriteFile(s.ImagePath, png, 0o644)
			fmt.Fprintf(s.Out, "captcha image saved to %s\n", s.ImagePath)
		}
	}
	fmt.Fprint(s.Out, "enter captcha code: ")

	type result struct {
		code string
		err  error
	}
	ch := make(chan result, 1)
	go func() {
		scanner := bufio.NewScanner(s.In)
		if !scanner.Scan() {
			if err := scanner.Err(); err != nil {
				ch <- result{err: err}
				return
			}
			ch <- result{err: io.EOF}
			return
		}
		ch <- result{code: Normalize(scanner.Text())}
	}()

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case r := <-ch:
		if r.err != nil {
			return "", fmt.Errorf("read captcha answer: %w", r.err)
		}
		if r.code == "" {
			return "", fmt.Errorf("empty captcha answer")
		}
		return r.code, nil
	}
}

// Name identifies the solver in logs.
func (s *ManualSolver) Name() string {
	return "manual"
}
