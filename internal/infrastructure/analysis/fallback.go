package analysis

import (
	"strings"

	"newspulse/internal/domain"
)

const (
	fallbackBaseImpact   = 40
	fallbackSummaryChars = 300
)

var (
	highImpactWords   = []string{"breakthrough", "major", "significant"}
	policyImpactWords = []string{"policy", "law", "regulation"}

	positiveWords = []string{"success", "advance", "improve"}
	negativeWords = []string{"risk", "problem", "concern"}

	// Ordered: first matching family wins.
	categoryRules = []struct {
		name  string
		words []string
	}{
		{domain.CategoryResearch, []string{"paper", "research", "arxiv"}},
		{domain.CategoryProduct, []string{"launch", "product", "release"}},
		{domain.CategoryBusiness, []string{"funding", "startup", "market"}},
		{domain.CategoryPolicy, []string{"policy", "law", "government"}},
	}
)

// Fallback derives a deterministic analysis from keyword heuristics. It is
// the result whenever the remote capability is disabled, unreachable, or
// returns something unparsable.
func Fallback(title, content string) domain.Analysis {
	text := strings.ToLower(title + " " + content)

	impact := fallbackBaseImpact
	if containsAny(text, highImpactWords) {
		impact += 25
	}
	if containsAny(text, policyImpactWords) {
		impact += 15
	}
	if impact > 100 {
		impact = 100
	}

	sentiment := domain.SentimentNeutral
	if containsAny(text, positiveWords) {
		sentiment = domain.SentimentPositive
	} else if containsAny(text, negativeWords) {
		sentiment = domain.SentimentNegative
	}

	category := domain.CategoryGeneral
	for _, rule := range categoryRules {
		if containsAny(text, rule.words) {
			category = rule.name
			break
		}
	}

	return domain.Analysis{
		Summary:     snippet(content, fallbackSummaryChars),
		ImpactScore: impact,
		Sentiment:   sentiment,
		Category:    category,
	}
}

func containsAny(text string, words []string) bool {
	for _, word := range words {
		if strings.Contains(text, word) {
			return true
		}
	}
	return false
}

func snippet(text string, max int) string {
	if len(text) <= max {
		return text
	}
	return text[:max] + "..."
}
