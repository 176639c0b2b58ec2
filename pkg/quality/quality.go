// Package quality scores finished content with shape heuristics. Scoring is
// pure: the same text and keyword always produce the same Report.
package quality

import (
	"math"
	"regexp"
	"strings"
	"unicode"
)

// Dimension weights for the overall score.
const (
	weightReadability  = 0.25
	weightStructure    = 0.20
	weightEngagement   = 0.25
	weightSEO          = 0.15
	weightCompleteness = 0.15
)

// Recommendation thresholds and messages.
const (
	recommendThreshold = 70

	RecommendShorterSentences = "Use shorter sentences."
	RecommendMoreHeaders      = "Add more headers."
	RecommendNone             = "Content looks great!"
)

var (
	sentenceEnd = regexp.MustCompile(`[.!?]+`)
	ctaPhrases  = []string{"learn more", "get started", "try", "discover"}
)

// Scores holds the per-dimension scores, each in [0, 100].
type Scores struct {
	Readability  float64 `json:"readability"`
	Structure    float64 `json:"structure"`
	Engagement   float64 `json:"engagement"`
	SEO          float64 `json:"seo"`
	Completeness float64 `json:"completeness"`
}

// Report is the outcome of scoring a piece of content.
type Report struct {
	Overall         float64  `json:"overall_score"`
	Scores          Scores   `json:"scores"`
	Grade           string   `json:"grade"`
	Recommendations []string `json:"recommendations"`
}

// Score rates text across readability, structure, engagement, SEO and
// completeness. SEO is 0 when keyword is empty.
func Score(text, keyword string) Report {
	words := len(strings.Fields(text))
	scores := Scores{
		Readability:  readability(text, words),
		Structure:    structure(text),
		Engagement:   engagement(text),
		SEO:          seo(text, keyword, words),
		Completeness: completeness(words),
	}

	overall := scores.Readability*weightReadability +
		scores.Structure*weightStructure +
		scores.Engagement*weightEngagement +
		scores.SEO*weightSEO +
		scores.Completeness*weightCompleteness

	return Report{
		Overall:         math.Round(overall*10) / 10,
		Scores:          scores,
		Grade:           Grade(overall),
		Recommendations: recommendations(scores),
	}
}

// Grade maps an overall score to a letter grade.
func Grade(score float64) string {
	switch {
	case score >= 90:
		return "A"
	case score >= 80:
		return "B"
	case score >= 70:
		return "C"
	case score >= 60:
		return "D"
	default:
		return "F"
	}
}

func readability(text string, words int) float64 {
	sentences := len(sentenceEnd.FindAllStringIndex(text, -1))
	if sentences == 0 || words == 0 {
		return 0
	}
	avg := float64(words) / float64(sentences)
	switch {
	case avg <= 15:
		return 100
	case avg <= 20:
		return 80
	case avg <= 25:
		return 60
	default:
		return 40
	}
}

// structure counts markdown headers by exact level, one per line.
func structure(text string) float64 {
	var h1, h2, h3 int
	for _, line := range strings.Split(text, "\n") {
		switch headerLevel(line) {
		case 1:
			h1++
		case 2:
			h2++
		case 3:
			h3++
		}
	}

	score := 0.0
	if h1 == 1 {
		score += 20
	}
	if h2 >= 3 {
		score += 30
	}
	if h3 >= 2 {
		score += 20
	}
	if strings.Contains(text, "- ") || strings.Contains(text, "1. ") {
		score += 15
	}
	return math.Min(score, 100)
}

// headerLevel returns the ATX header level of line, or 0.
func headerLevel(line string) int {
	level := 0
	for level < len(line) && line[level] == '#' {
		level++
	}
	if level == 0 || level >= len(line) || line[level] != ' ' {
		return 0
	}
	return level
}

func engagement(text string) float64 {
	lower := strings.ToLower(text)
	score := 0.0
	if strings.Contains(text, "?") {
		score += 20
	}
	if strings.Contains(lower, "example") {
		score += 20
	}
	if strings.IndexFunc(text, unicode.IsDigit) >= 0 {
		score += 20
	}
	if strings.Contains(text, `"`) {
		score += 15
	}
	for _, phrase := range ctaPhrases {
		if strings.Contains(lower, phrase) {
			score += 25
			break
		}
	}
	return math.Min(score, 100)
}

func seo(text, keyword string, words int) float64 {
	if keyword == "" {
		return 0
	}
	score := 0.0
	if strings.Contains(strings.ToLower(text), strings.ToLower(keyword)) {
		score += 50
	}
	if words >= 1000 {
		score += 50
	}
	return math.Min(score, 100)
}

func completeness(words int) float64 {
	switch {
	case words >= 1500:
		return 100
	case words >= 1000:
		return 80
	case words >= 500:
		return 60
	default:
		return 40
	}
}

func recommendations(s Scores) []string {
	var out []string
	if s.Readability < recommendThreshold {
		out = append(out, RecommendShorterSentences)
	}
	if s.Structure < recommendThreshold {
		out = append(out, RecommendMoreHeaders)
	}
	if len(out) == 0 {
		out = append(out, RecommendNone)
	}
	return out
}
