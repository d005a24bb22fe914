package transcript

import (
	"regexp"
	"strings"
)

var (
	positiveWords = regexp.MustCompile(`\b(growth|increase|profit|positive|strong|success|exceed|better|opportunity|confident|improvement|improved|gain|advantage|optimistic|innovation|efficient|leadership|momentum)\b`)
	negativeWords = regexp.MustCompile(`\b(decline|decrease|loss|negative|weak|challenge|difficult|below|risk|concern|disappoint|miss|issue|problem|down|unexpected|disappointing|uncertainty|cautious)\b`)
)

// KeywordSentiment scores text in [-1, 1] as (positive - negative) / total
// keyword hits. Text without any keyword scores 0.
func KeywordSentiment(text string) float64 {
	lower := strings.ToLower(text)
	pos := len(positiveWords.FindAllStringIndex(lower, -1))
	neg := len(negativeWords.FindAllStringIndex(lower, -1))
	if pos+neg == 0 {
		return 0
	}
	return float64(pos-neg) / float64(pos+neg)
}
