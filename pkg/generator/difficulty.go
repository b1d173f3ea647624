package generator

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/Amr-9/omnivanity/pkg/kernel"
)

// Difficulty returns the expected number of keys to test before a match.
//
// Prefix and suffix patterns cost alphabet^len. Contains patterns divide
// that by the number of positions the pattern can occupy. A
// case-insensitive search on a two-case alphabet halves the cost for each
// letter that exists in both cases.
func Difficulty(l Layout, pattern string, mode kernel.MatchMode, caseInsensitive bool) float64 {
	pattern = l.TrimPattern(pattern)
	n := len(pattern)
	if n == 0 {
		return 1
	}

	d := math.Pow(float64(len(l.Alphabet)), float64(n))
	if mode == kernel.MatchContains {
		d /= math.Max(1, float64(l.Searchable-n+1))
	}
	if caseInsensitive && !l.CaseFree {
		for _, c := range pattern {
			lower, upper := strings.ToLower(string(c)), strings.ToUpper(string(c))
			if lower != upper && strings.Contains(l.Alphabet, lower) && strings.Contains(l.Alphabet, upper) {
				d /= 2
			}
		}
	}
	return math.Max(1, d)
}

// Difficulty returns the expected attempts for the configured search.
func (c *Config) Difficulty() float64 {
	return Difficulty(c.Layout(), c.Pattern, c.Mode, c.CaseInsensitive)
}

// FormatDifficulty renders d with a K, M, G, T or P suffix.
func FormatDifficulty(d float64) string {
	switch {
	case d >= 1e15:
		return fmt.Sprintf("%.2fP", d/1e15)
	case d >= 1e12:
		return fmt.Sprintf("%.2fT", d/1e12)
	case d >= 1e9:
		return fmt.Sprintf("%.2fG", d/1e9)
	case d >= 1e6:
		return fmt.Sprintf("%.2fM", d/1e6)
	case d >= 1e3:
		return fmt.Sprintf("%.2fK", d/1e3)
	default:
		return fmt.Sprintf("%.0f", d)
	}
}

// EstimateTime50 returns the time after which a search at rate keys per
// second has a 50% chance of having found a match.
func EstimateTime50(difficulty, rate float64) time.Duration {
	if rate <= 0 {
		return 0
	}
	secs := difficulty * math.Ln2 / rate
	if secs >= math.MaxInt64/float64(time.Second) {
		return time.Duration(math.MaxInt64)
	}
	return time.Duration(secs * float64(time.Second))
}

// Probability returns the chance of at least one match after attempts keys.
func Probability(difficulty float64, attempts uint64) float64 {
	if difficulty <= 1 {
		return 1
	}
	return 1 - math.Exp(-float64(attempts)/difficulty)
}
