package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"go.uber.org/zap"

	"unifit/internal/evaluator"
	"unifit/internal/models"
)

const sampleResponse = `{
  "factors": [
    {"name": "GPA Match", "score": 22, "max": 25, "detail": "3.9 unweighted"},
    {"name": "Test Scores", "score": 16, "max": 20, "detail": "1480 SAT"},
    {"name": "Course Rigor", "score": 12, "max": 15, "detail": "6 AP courses"},
    {"name": "Major Fit", "score": 13, "max": 15, "detail": "strong CS alignment"},
    {"name": "Activities", "score": 9, "max": 15, "detail": "robotics captain"},
    {"name": "Early Action", "score": 10, "max": 10, "detail": "EA available"},
    {"name": "Selectivity Context", "score": 0, "max": 0, "detail": "4% acceptance rate"}
  ],
  "gap_analysis": "test scores trail the admitted median",
  "recommendations": ["retake the SAT"],
  "essay_angles": ["robotics leadership"],
  "scholarship_matches": ["merit award"],
  "application_timeline": "apply early action by November 1"
}`

type fakeGenerator struct {
	response string
	err      error
	prompt   string
}

func (f *fakeGenerator) GenerateContent(_ context.Context, prompt string) (string, error) {
	f.prompt = prompt
	if f.err != nil {
		return "", f.err
	}
	return f.response, nil
}

type fakeProfiles struct {
	document json.RawMessage
	err      error
}

func (f *fakeProfiles) ProfileDocument(_ context.Context, _ string) (json.RawMessage, error) {
	return f.document, f.err
}

func testProfile() *models.StudentProfile {
	return &models.StudentProfile{UserEmail: "student@example.com", ProfileVersion: 1}
}

func testUniversity() *models.University {
	return &models.University{ID: "mit", Name: "MIT", Rank: 1, State: "MA", AcceptanceRate: 0.04}
}

func TestEvaluate(t *testing.T) {
	generator := &fakeGenerator{response: sampleResponse}
	profiles := &fakeProfiles{document: json.RawMessage(`{"gpa": 3.9}`)}
	eval := NewEvaluator(generator, profiles, zap.NewNop())

	result, err := eval.Evaluate(context.Background(), testProfile(), testUniversity())
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}
	if len(result.Factors) != 7 {
		t.Fatalf("got %d factors, want 7", len(result.Factors))
	}
	if result.Factors[0].Name != "GPA Match" || result.Factors[0].Score != 22 {
		t.Errorf("first factor = %+v, want GPA Match 22", result.Factors[0])
	}
	if result.GapAnalysis == "" {
		t.Error("gap analysis should be populated")
	}

	if !strings.Contains(generator.prompt, `"gpa": 3.9`) {
		t.Error("prompt should embed the profile document")
	}
	if !strings.Contains(generator.prompt, `"mit"`) {
		t.Error("prompt should embed the university payload")
	}
	if strings.Contains(generator.prompt, "{{PROFILE_JSON}}") || strings.Contains(generator.prompt, "{{UNIVERSITY_JSON}}") {
		t.Error("prompt placeholders were not substituted")
	}
}

func TestEvaluateErrorMapping(t *testing.T) {
	tests := []struct {
		name    string
		genErr  error
		wantErr error
	}{
		{"generator failure maps to unavailable", errors.New("rpc error"), evaluator.ErrUnavailable},
		{"deadline maps to timeout", context.DeadlineExceeded, evaluator.ErrTimeout},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			generator := &fakeGenerator{err: tt.genErr}
			profiles := &fakeProfiles{document: json.RawMessage(`{}`)}
			eval := NewEvaluator(generator, profiles, zap.NewNop())

			_, err := eval.Evaluate(context.Background(), testProfile(), testUniversity())
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Evaluate() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestEvaluateProfileFetchFailure(t *testing.T) {
	generator := &fakeGenerator{response: sampleResponse}
	profiles := &fakeProfiles{err: errors.New("profile store down")}
	eval := NewEvaluator(generator, profiles, zap.NewNop())

	_, err := eval.Evaluate(context.Background(), testProfile(), testUniversity())
	if err == nil {
		t.Fatal("Evaluate() should fail when the profile document is unavailable")
	}
	if generator.prompt != "" {
		t.Error("generator should not be called without a profile document")
	}
}

func TestEvaluateMissingProfileKeepsSentinel(t *testing.T) {
	generator := &fakeGenerator{response: sampleResponse}
	profiles := &fakeProfiles{err: evaluator.ErrProfileNotFound}
	eval := NewEvaluator(generator, profiles, zap.NewNop())

	_, err := eval.Evaluate(context.Background(), testProfile(), testUniversity())
	if !errors.Is(err, evaluator.ErrProfileNotFound) {
		t.Fatalf("Evaluate() error = %v, want ErrProfileNotFound preserved", err)
	}
}

func TestParseResponse(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		wantErr bool
		check   func(t *testing.T, result *evaluator.Result)
	}{
		{
			name: "plain json",
			raw:  sampleResponse,
			check: func(t *testing.T, result *evaluator.Result) {
				if len(result.Factors) != 7 {
					t.Errorf("got %d factors, want 7", len(result.Factors))
				}
			},
		},
		{
			name: "fenced json",
			raw:  "```json\n" + sampleResponse + "\n```",
			check: func(t *testing.T, result *evaluator.Result) {
				if len(result.Factors) != 7 {
					t.Errorf("got %d factors, want 7", len(result.Factors))
				}
			},
		},
		{
			name: "string scores are coerced",
			raw:  `{"factors": [{"name": "GPA Match", "score": "21.5", "max": "25"}]}`,
			check: func(t *testing.T, result *evaluator.Result) {
				if result.Factors[0].Score != 21.5 {
					t.Errorf("score = %v, want 21.5", result.Factors[0].Score)
				}
				if result.Factors[0].Max != 25 {
					t.Errorf("max = %v, want 25", result.Factors[0].Max)
				}
			},
		},
		{
			name: "missing max falls back to canonical ceiling",
			raw:  `{"factors": [{"name": "Test Scores", "score": 12}]}`,
			check: func(t *testing.T, result *evaluator.Result) {
				if result.Factors[0].Max != 20 {
					t.Errorf("max = %v, want 20", result.Factors[0].Max)
				}
			},
		},
		{
			name: "negative scores survive",
			raw:  `{"factors": [{"name": "Activities", "score": -5, "max": 15}]}`,
			check: func(t *testing.T, result *evaluator.Result) {
				if result.Factors[0].Score != -5 {
					t.Errorf("score = %v, want -5", result.Factors[0].Score)
				}
			},
		},
		{
			name:    "prose is rejected",
			raw:     "I could not evaluate this profile.",
			wantErr: true,
		},
		{
			name:    "empty factors are rejected",
			raw:     `{"factors": []}`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := parseResponse(tt.raw)
			if tt.wantErr {
				if err == nil {
					t.Fatal("parseResponse() expected an error")
				}
				return
			}
			if err != nil {
				t.Fatalf("parseResponse() error = %v", err)
			}
			if tt.check != nil {
				tt.check(t, result)
			}
		})
	}
}

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"bare", `{"a": 1}`, `{"a": 1}`},
		{"fenced with language", "```json\n{\"a\": 1}\n```", `{"a": 1}`},
		{"fenced without language", "```\n{\"a\": 1}\n```", `{"a": 1}`},
		{"surrounding whitespace", "  \n{\"a\": 1}\n  ", `{"a": 1}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := extractJSON(tt.raw); got != tt.want {
				t.Errorf("extractJSON() = %q, want %q", got, tt.want)
			}
		})
	}
}
