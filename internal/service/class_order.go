package service

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/pbessa/diario-turma-api/internal/models"
)

var (
	arabicPattern = regexp.MustCompile(`\d+`)
	romanPattern  = regexp.MustCompile(`\b[IVX]+\b`)
)

var romanValues = map[string]int{
	"I": 1, "II": 2, "III": 3, "IV": 4, "V": 5,
	"VI": 6, "VII": 7, "VIII": 8, "IX": 9, "X": 10,
	"XI": 11, "XII": 12, "XIII": 13, "XIV": 14, "XV": 15,
}

// classNameLess orders class names the way teachers read them: "Turma 2"
// before "Turma 10", "Turma I" before "Turma II". Arabic numerals compare
// numerically among themselves, roman numerals among themselves, and every
// other pair falls back to case-insensitive lexical order on the full name.
func classNameLess(a, b string) bool {
	aNum, aOK := firstArabic(a)
	bNum, bOK := firstArabic(b)
	if aOK && bOK && aNum != bNum {
		return aNum < bNum
	}
	if !aOK && !bOK {
		aRoman, aRomanOK := firstRoman(a)
		bRoman, bRomanOK := firstRoman(b)
		if aRomanOK && bRomanOK && aRoman != bRoman {
			return aRoman < bRoman
		}
	}
	return strings.ToLower(a) < strings.ToLower(b)
}

func firstArabic(name string) (int, bool) {
	match := arabicPattern.FindString(name)
	if match == "" {
		return 0, false
	}
	n, err := strconv.Atoi(match)
	if err != nil {
		return 0, false
	}
	return n, true
}

func firstRoman(name string) (int, bool) {
	match := romanPattern.FindString(strings.ToUpper(name))
	if match == "" {
		return 0, false
	}
	value, ok := romanValues[match]
	return value, ok
}

func sortComparisonRows(rows []models.ComparisonRow) {
	sort.SliceStable(rows, func(i, j int) bool {
		return classNameLess(rows[i].ClassName, rows[j].ClassName)
	})
}

func sortClassSummaries(summaries []models.ClassSummary) {
	sort.SliceStable(summaries, func(i, j int) bool {
		return classNameLess(summaries[i].Name, summaries[j].Name)
	})
}
