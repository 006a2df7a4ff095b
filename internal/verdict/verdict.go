// Package verdict turns a raw classification response into the immutable
// result shown to the user.
package verdict

import (
	"math"

	"github.com/anvishah1/ForReal/internal/classifier"
)

// Verdict banners shown above the analyzed image.
const (
	VerdictAuthentic   = "AUTHENTIC IMAGE"
	VerdictAIGenerated = "AI-GENERATED"
)

// Result is a classification outcome ready for display. Percentages are
// rounded to one decimal independently, so ProbAIPercent and ProbRealPercent
// may not add up to exactly 100.
type Result struct {
	Label             classifier.Label `json:"label"`
	IsReal            bool             `json:"is_real"`
	ConfidencePercent float64          `json:"confidence_percent"`
	ProbAIPercent     float64          `json:"prob_ai_percent"`
	ProbRealPercent   float64          `json:"prob_real_percent"`
}

// FromResponse validates resp against the classification contract and
// derives the display values. Contract violations are reported as
// classifier.ErrMalformedResponse.
func FromResponse(resp *classifier.Response) (Result, error) {
	if resp == nil {
		return Result{}, classifier.Malformed("empty response")
	}

	label, ok := classifier.ParseLabel(string(resp.Label))
	if !ok {
		return Result{}, classifier.Malformed("unknown label %q", resp.Label)
	}
	if math.IsNaN(resp.Confidence) || resp.Confidence < 0 || resp.Confidence > 100 {
		return Result{}, classifier.Malformed("confidence %v outside [0,100]", resp.Confidence)
	}
	if len(resp.Probabilities) != 2 {
		return Result{}, classifier.Malformed("expected 2 probabilities, got %d", len(resp.Probabilities))
	}
	for i, p := range resp.Probabilities {
		if math.IsNaN(p) || p < 0 || p > 1 {
			return Result{}, classifier.Malformed("probability %d = %v outside [0,1]", i, p)
		}
	}

	return Result{
		Label:             label,
		IsReal:            label == classifier.LabelReal,
		ConfidencePercent: round1(resp.Confidence),
		ProbAIPercent:     round1(resp.Probabilities[0] * 100),
		ProbRealPercent:   round1(resp.Probabilities[1] * 100),
	}, nil
}

// Verdict returns the banner shown above the analyzed image.
func (r Result) Verdict() string {
	if r.IsReal {
		return VerdictAuthentic
	}
	return VerdictAIGenerated
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
