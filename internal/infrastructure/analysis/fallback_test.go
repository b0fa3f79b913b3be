package analysis

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"newspulse/internal/domain"
)

func TestFallbackImpactScoring(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		content string
		want    int
	}{
		{"plain text", "a quiet day in the lab", 40},
		{"high impact keyword", "a major breakthrough was announced", 65},
		{"policy keyword", "new regulation takes effect", 55},
		{"both keyword families", "significant new law and regulation", 80},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			result := Fallback("title", tt.content)
			assert.Equal(t, tt.want, result.ImpactScore)
			assert.GreaterOrEqual(t, result.ImpactScore, 0)
			assert.LessOrEqual(t, result.ImpactScore, 100)
		})
	}
}

func TestFallbackSentiment(t *testing.T) {
	t.Parallel()

	assert.Equal(t, domain.SentimentPositive, Fallback("", "a big success for the team").Sentiment)
	assert.Equal(t, domain.SentimentNegative, Fallback("", "a serious risk was identified").Sentiment)
	assert.Equal(t, domain.SentimentNeutral, Fallback("", "the weather was mild").Sentiment)
}

func TestFallbackCategoryPrecedence(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"research wins over product", "new research paper about a product launch", domain.CategoryResearch},
		{"product", "the company will release a new product", domain.CategoryProduct},
		{"business", "startup closes funding round", domain.CategoryBusiness},
		{"policy", "government proposes a law", domain.CategoryPolicy},
		{"none", "nothing notable happened", domain.CategoryGeneral},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, Fallback("", tt.content).Category)
		})
	}
}

func TestFallbackSummaryTruncation(t *testing.T) {
	t.Parallel()

	long := strings.Repeat("x", 500)
	result := Fallback("", long)
	assert.Len(t, result.Summary, fallbackSummaryChars+3)
	assert.True(t, strings.HasSuffix(result.Summary, "..."))

	short := "short text"
	assert.Equal(t, short, Fallback("", short).Summary)
}

func TestFallbackUsesTitleKeywords(t *testing.T) {
	t.Parallel()

	result := Fallback("Major policy shift", "nothing in the body")
	assert.Equal(t, 80, result.ImpactScore)
	assert.Equal(t, domain.CategoryPolicy, result.Category)
}
