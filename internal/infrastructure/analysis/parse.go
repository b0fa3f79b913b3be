package analysis

import (
	"strconv"
	"strings"

	"newspulse/internal/domain"
)

const (
	parsedDefaultImpact = 50
	parsedSummaryChars  = 250
)

// Line prefixes the model is instructed to produce.
const (
	prefixSummary   = "SUMMARY:"
	prefixImpact    = "IMPACT:"
	prefixSentiment = "SENTIMENT:"
	prefixCategory  = "CATEGORY:"
)

// parseAnalysis extracts the four labeled fields from free-text model output.
// Returns false when none of the expected prefixes is present, which routes
// the caller to the fallback heuristics.
func parseAnalysis(text, content string) (domain.Analysis, bool) {
	result := domain.Analysis{
		ImpactScore: parsedDefaultImpact,
		Sentiment:   domain.SentimentNeutral,
		Category:    domain.CategoryGeneral,
	}

	found := false
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(line, prefixSummary):
			result.Summary = strings.TrimSpace(strings.TrimPrefix(line, prefixSummary))
			found = true
		case strings.HasPrefix(line, prefixImpact):
			if score, ok := parseImpact(line); ok {
				result.ImpactScore = score
			}
			found = true
		case strings.HasPrefix(line, prefixSentiment):
			result.Sentiment = parseSentiment(strings.TrimPrefix(line, prefixSentiment))
			found = true
		case strings.HasPrefix(line, prefixCategory):
			if category := strings.TrimSpace(strings.TrimPrefix(line, prefixCategory)); category != "" {
				result.Category = category
			}
			found = true
		}
	}

	if !found {
		return domain.Analysis{}, false
	}

	if result.Summary == "" {
		result.Summary = snippet(content, parsedSummaryChars)
	}

	return result, true
}

// parseImpact strips every non-digit character from the line and clamps the
// remainder to [0,100]. A reported "-30" therefore reads as 30, matching the
// digits-only contract; anything unparsable keeps the default.
func parseImpact(line string) (int, bool) {
	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, strings.TrimPrefix(line, prefixImpact))

	if digits == "" {
		return 0, false
	}

	score, err := strconv.Atoi(digits)
	if err != nil {
		return 0, false
	}

	return clampImpact(score), true
}

func clampImpact(score int) int {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

func parseSentiment(raw string) domain.Sentiment {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "positive":
		return domain.SentimentPositive
	case "negative":
		return domain.SentimentNegative
	default:
		return domain.SentimentNeutral
	}
}
