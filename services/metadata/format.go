package metadata

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Display scales for vote_average.
const (
	scaleTen  = 10.0
	scaleFive = 5.0
)

var yearPattern = regexp.MustCompile(`\b(\d{4})\b`)

func stringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func intPtr(v int) *int {
	return &v
}

// parseDateYear returns the year of an ISO date ("2024-05-01") or nil.
func parseDateYear(date string) *int {
	date = strings.TrimSpace(date)
	if len(date) < 4 {
		return nil
	}
	year, err := strconv.Atoi(date[:4])
	if err != nil || year <= 0 {
		return nil
	}
	return intPtr(year)
}

// parseLooseYear finds the first four-digit year anywhere in s, which covers
// OpenLibrary dates like "March 3, 1998" or "c1998".
func parseLooseYear(s string) *int {
	m := yearPattern.FindStringSubmatch(s)
	if len(m) < 2 {
		return nil
	}
	year, err := strconv.Atoi(m[1])
	if err != nil || year <= 0 {
		return nil
	}
	return intPtr(year)
}

func unixYear(ts flexInt) (*int, string) {
	if !ts.Valid {
		return nil, ""
	}
	t := time.Unix(ts.Value, 0).UTC()
	return intPtr(t.Year()), t.Format("2006-01-02")
}

// formatVote renders a vote with one decimal, or "" when absent.
func formatVote(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', 1, 64)
}

func vote(f flexFloat, divisor float64) *float64 {
	if !f.Valid || math.IsNaN(f.Value) || math.IsInf(f.Value, 0) {
		return nil
	}
	v := f.Value
	if divisor != 1 {
		v = v / divisor
	}
	return &v
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
