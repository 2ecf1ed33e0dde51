package score

import (
	"cmp"
	"slices"
	"strconv"
	"strings"
)

// Answer is one of the two literal answer tokens used by the questionnaire.
type Answer string

const (
	Yes Answer = "Evet"
	No  Answer = "Hayır"
)

var answerAliases = map[string]Answer{
	"evet":  Yes,
	"e":     Yes,
	"yes":   Yes,
	"y":     Yes,
	"true":  Yes,
	"1":     Yes,
	"hayır": No,
	"hayir": No,
	"h":     No,
	"no":    No,
	"n":     No,
	"false": No,
	"0":     No,
}

// Valid reports whether a is one of the two answer tokens.
func (a Answer) Valid() bool {
	return a == Yes || a == No
}

// ParseAnswer maps common spellings of yes/no onto the canonical tokens.
func ParseAnswer(s string) (Answer, bool) {
	v := strings.ToLower(strings.TrimSpace(s))
	a, ok := answerAliases[v]
	return a, ok
}

// Answers maps question ID to the respondent's answer.
type Answers map[string]Answer

// CompareQuestionIDs orders IDs like Q2 before Q10. IDs without a numeric
// suffix sort lexically after the numbered ones.
func CompareQuestionIDs(a, b string) int {
	na, oka := questionNumber(a)
	nb, okb := questionNumber(b)
	switch {
	case oka && okb:
		if c := cmp.Compare(na, nb); c != 0 {
			return c
		}
		return strings.Compare(a, b)
	case oka:
		return -1
	case okb:
		return 1
	default:
		return strings.Compare(a, b)
	}
}

// SortQuestionIDs sorts ids in place using CompareQuestionIDs.
func SortQuestionIDs(ids []string) {
	slices.SortFunc(ids, CompareQuestionIDs)
}

func questionNumber(id string) (int, bool) {
	i := strings.LastIndexFunc(id, func(r rune) bool { return r < '0' || r > '9' })
	if i == len(id)-1 {
		return 0, false
	}
	n, err := strconv.Atoi(id[i+1:])
	if err != nil {
		return 0, false
	}
	return n, true
}
