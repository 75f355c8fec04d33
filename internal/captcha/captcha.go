// Package captcha solves the login captcha image. The CAS login page
// serves a short alphanumeric code; solvers receive the rendered PNG and
// return the code.
package captcha

import (
	"context"
	"strings"
	"unicode"
)

// Solver turns a captcha screenshot into the code to type.
type Solver interface {
	Solve(ctx context.Context, png []byte) (string, error)
	Name() string
}

// Normalize strips everything but ASCII letters and digits and
// lowercases the rest. Model output tends to arrive with quotes,
// spaces, or markup around the code.
func Normalize(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r < 128 && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
			b.WriteRune(unicode.ToLower(r))
		}
	}
	return b.String()
}
