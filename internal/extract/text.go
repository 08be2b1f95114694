package extract

import (
	"strconv"
	"strings"
)

var digitWords = [10]string{"ZERO", "ONE", "TWO", "THREE", "FOUR", "FIVE", "SIX", "SEVEN", "EIGHT", "NINE"}

// collapse folds runs of whitespace into single spaces and trims the ends.
func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// clean returns the collapsed text, or nil when nothing is left.
func clean(s string) *string {
	c := collapse(s)
	if c == "" {
		return nil
	}
	return &c
}

// DigitsToWords spells n one digit at a time: 69 becomes "SIX NINE".
func DigitsToWords(n int) string {
	digits := strconv.Itoa(n)
	words := make([]string, 0, len(digits))
	for _, d := range digits {
		if d >= '0' && d <= '9' {
			words = append(words, digitWords[d-'0'])
		}
	}
	return strings.Join(words, " ")
}

// GradeFromPoint maps a ten point grade point to its letter grade.
func GradeFromPoint(gp float64) string {
	switch {
	case gp >= 9.5:
		return "O"
	case gp >= 8.5:
		return "A+"
	case gp >= 7.5:
		return "A"
	case gp >= 6.5:
		return "B+"
	case gp >= 5.5:
		return "B"
	case gp >= 4.5:
		return "C"
	case gp >= 4.0:
		return "P"
	default:
		return "F"
	}
}

var romanValues = map[rune]int{'I': 1, 'V': 5, 'X': 10, 'L': 50, 'C': 100, 'D': 500, 'M': 1000}

// ParseRoman converts an upper or lower case roman numeral.
func ParseRoman(s string) (int, bool) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "" {
		return 0, false
	}
	total, prev := 0, 0
	for i := len(s) - 1; i >= 0; i-- {
		v, ok := romanValues[rune(s[i])]
		if !ok {
			return 0, false
		}
		if v < prev {
			total -= v
		} else {
			total += v
			prev = v
		}
	}
	return total, true
}

// ParseSemester reads a semester written in arabic or roman numerals.
func ParseSemester(s string) (int, bool) {
	s = strings.TrimSpace(s)
	if n, err := strconv.Atoi(s); err == nil {
		return n, n > 0
	}
	return ParseRoman(s)
}

// SameSemester compares two semester labels case-insensitively, treating
// "IV" and "4" as equal.
func SameSemester(a, b string) bool {
	if strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b)) {
		return true
	}
	x, ok1 := ParseSemester(a)
	y, ok2 := ParseSemester(b)
	return ok1 && ok2 && x == y
}
