package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	_ "embed"

	"go.uber.org/zap"

	"unifit/internal/evaluator"
	"unifit/internal/models"
	"unifit/internal/scoring"
)

//go:embed prompt.md
var promptTemplate string

const maxLogLength = 200

type contentGenerator interface {
	GenerateContent(ctx context.Context, prompt string) (string, error)
}

// Evaluator is the production FactorEvaluator: it prompts Gemini with the
// profile document and university record and parses the structured response.
type Evaluator struct {
	generator contentGenerator
	profiles  evaluator.ProfileSource
	logger    *zap.Logger
}

// NewEvaluator wires a content generator and profile source together.
func NewEvaluator(generator contentGenerator, profiles evaluator.ProfileSource, logger *zap.Logger) *Evaluator {
	return &Evaluator{
		generator: generator,
		profiles:  profiles,
		logger:    logger,
	}
}

// Evaluate implements evaluator.Evaluator.
func (e *Evaluator) Evaluate(ctx context.Context, profile *models.StudentProfile, university *models.University) (*evaluator.Result, error) {
	if profile == nil {
		return nil, errors.New("student profile is required")
	}
	if university == nil {
		return nil, errors.New("university is required")
	}

	document, err := e.profiles.ProfileDocument(ctx, profile.UserEmail)
	if err != nil {
		return nil, fmt.Errorf("fetch profile document: %w", err)
	}

	universityJSON, err := json.MarshalIndent(university, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal university payload: %w", err)
	}

	prompt := buildPrompt(string(document), string(universityJSON))

	e.logger.Debug("gemini evaluate request",
		zap.String("user_email", profile.UserEmail),
		zap.String("university_id", university.ID),
		zap.Int("prompt_length", utf8.RuneCountInString(prompt)),
		zap.String("prompt_preview", truncateForLog(prompt, maxLogLength)),
	)

	raw, err := e.generator.GenerateContent(ctx, prompt)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: %v", evaluator.ErrTimeout, err)
		}
		return nil, fmt.Errorf("%w: %v", evaluator.ErrUnavailable, err)
	}

	e.logger.Debug("gemini evaluate response",
		zap.String("user_email", profile.UserEmail),
		zap.String("university_id", university.ID),
		zap.Int("response_length", utf8.RuneCountInString(raw)),
		zap.String("response_preview", truncateForLog(raw, maxLogLength)),
	)

	result, err := parseResponse(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", evaluator.ErrUnavailable, err)
	}
	return result, nil
}

func buildPrompt(profileJSON, universityJSON string) string {
	prompt := strings.ReplaceAll(promptTemplate, "{{PROFILE_JSON}}", profileJSON)
	prompt = strings.ReplaceAll(prompt, "{{UNIVERSITY_JSON}}", universityJSON)
	return prompt
}

func parseResponse(raw string) (*evaluator.Result, error) {
	cleaned := extractJSON(raw)

	var data struct {
		Factors []struct {
			Name   string `json:"name"`
			Score  any    `json:"score"`
			Max    any    `json:"max"`
			Detail string `json:"detail"`
		} `json:"factors"`
		GapAnalysis         string   `json:"gap_analysis"`
		Recommendations     []string `json:"recommendations"`
		EssayAngles         []string `json:"essay_angles"`
		ScholarshipMatches  []string `json:"scholarship_matches"`
		ApplicationTimeline string   `json:"application_timeline"`
	}
	if err := json.Unmarshal([]byte(cleaned), &data); err != nil {
		return nil, fmt.Errorf("parse gemini response: %w", err)
	}
	if len(data.Factors) == 0 {
		return nil, errors.New("gemini response contains no factors")
	}

	result := &evaluator.Result{
		GapAnalysis:         data.GapAnalysis,
		Recommendations:     data.Recommendations,
		EssayAngles:         data.EssayAngles,
		ScholarshipMatches:  data.ScholarshipMatches,
		ApplicationTimeline: data.ApplicationTimeline,
	}

	for _, f := range data.Factors {
		factor := models.FitFactor{
			Name:   strings.TrimSpace(f.Name),
			Score:  coerceFloat(f.Score),
			Max:    coerceFloat(f.Max),
			Detail: f.Detail,
		}
		// The model sometimes omits max; fall back to the canonical ceiling.
		if factor.Max == 0 {
			factor.Max = scoring.FactorMax[factor.Name]
		}
		result.Factors = append(result.Factors, factor)
	}

	return result, nil
}

// extractJSON strips markdown code fences Gemini likes to wrap JSON in.
func extractJSON(raw string) string {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "```") {
		raw = strings.TrimPrefix(raw, "```json")
		raw = strings.TrimPrefix(raw, "```")
		raw = strings.TrimSpace(raw)
		if idx := strings.LastIndex(raw, "```"); idx != -1 {
			raw = raw[:idx]
		}
	}
	return strings.TrimSpace(strings.Trim(raw, "`"))
}

func coerceFloat(v any) float64 {
	switch val := v.(type) {
	case float64:
		return val
	case string:
		if f, err := strconv.ParseFloat(strings.TrimSpace(val), 64); err == nil {
			return f
		}
	}
	return 0
}

func truncateForLog(s string, limit int) string {
	s = strings.TrimSpace(s)
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit]) + "..."
}
