package captcha

import (
	"context"
	"fmt"

	"google.golang.org/genai"
)

const solvePrompt = "This image is a login captcha containing a short " +
	"alphanumeric code. Reply with only the characters of the code, " +
	"nothing else."

// GeminiSolver reads captcha codes with the Gemini vision API.
type GeminiSolver struct {
	client *genai.Client
	model  string
}

// NewGeminiSolver creates a Gemini-backed solver.
func NewGeminiSolver(ctx context.Context, apiKey, model string) (*GeminiSolver, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}
	if model == "" {
		model = "gemini-2.0-flash"
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey: apiKey,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	return &GeminiSolver{client: client, model: model}, nil
}

// Solve sends the captcha PNG to the model and normalizes its answer.
func (s *GeminiSolver) Solve(ctx context.Context, png []byte) (string, error) {
	if len(png) == 0 {
		return "", fmt.Errorf("empty captcha image")
	}

	parts := []*genai.Part{
		genai.NewPartFromBytes(png, "image/png"),
		genai.NewPartFromText(solvePrompt),
	}
	contents := []*genai.Content{
		genai.NewContentFromParts(parts, genai.RoleUser),
	}

	res, err := s.client.Models.GenerateContent(ctx, s.model, contents, nil)
	if err != nil {
		return "", fmt.Errorf("gemini solve failed: %w", err)
	}

	answer := Normalize(res.Text())
	if answer == "" {
		return "", fmt.Errorf("gemini returned no usable code (raw %q)", res.Text())
	}
	return answer, nil
}

// Name identifies the solver in logs.
func (s *GeminiSolver) Name() string {
	return fmt.Sprintf("gemini:%s", s.model)
}
