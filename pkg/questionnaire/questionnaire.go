package questionnaire

import (
	"encoding/json"
	"io"
	"math/rand/v2"
	"slices"
	"strings"

	"github.com/mchmarny/nsctl/pkg/score"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

const (
	FormatJSON = "json"
	FormatYAML = "yaml"
)

var (
	// ErrInvalidAnswer is returned for answer values that are not yes/no.
	ErrInvalidAnswer = errors.New("invalid answer")

	// ErrUnknownQuestion is returned for answers to questions outside the
	// known question universe.
	ErrUnknownQuestion = errors.New("unknown question")
)

// form is the fixed set of questions presented to respondents.
var form = []string{
	"Q2", "Q4", "Q8", "Q9", "Q13", "Q14", "Q16", "Q18", "Q19", "Q20", "Q21", "Q25", "Q26", "Q28", "Q29",
	"Q33", "Q34", "Q35", "Q40", "Q44", "Q45", "Q47", "Q51", "Q52", "Q53", "Q54", "Q60", "Q62", "Q67",
	"Q71", "Q77", "Q81", "Q82", "Q86", "Q89", "Q93", "Q95", "Q96", "Q105", "Q108", "Q115", "Q116",
	"Q117", "Q119", "Q125", "Q126", "Q127", "Q128", "Q129", "Q130", "Q133", "Q138", "Q139", "Q140",
	"Q144", "Q151", "Q158", "Q159", "Q163", "Q166", "Q174", "Q179", "Q184", "Q185", "Q187", "Q192",
	"Q197", "Q202", "Q203", "Q204", "Q205", "Q210", "Q212", "Q215", "Q219", "Q221", "Q222", "Q224",
	"Q226", "Q227", "Q229", "Q230", "Q231", "Q232", "Q233", "Q234", "Q235", "Q236", "Q239", "Q241",
	"Q242", "Q243", "Q249", "Q252", "Q253",
}

// Form returns the question ids of the questionnaire in display order.
func Form() []string {
	return slices.Clone(form)
}

// InForm reports whether id is part of the questionnaire.
func InForm(id string) bool {
	return slices.Contains(form, id)
}

// ParseAnswers decodes a question → answer map in JSON or YAML and
// normalizes the answer spellings.
func ParseAnswers(r io.Reader, format string) (score.Answers, error) {
	raw := make(map[string]string)
	switch strings.ToLower(format) {
	case FormatJSON:
		if err := json.NewDecoder(r).Decode(&raw); err != nil {
			return nil, errors.Wrap(err, "error decoding JSON answers")
		}
	case FormatYAML, "yml":
		b, err := io.ReadAll(r)
		if err != nil {
			return nil, errors.Wrap(err, "error reading answers")
		}
		if err := yaml.Unmarshal(b, &raw); err != nil {
			return nil, errors.Wrap(err, "error decoding YAML answers")
		}
	default:
		return nil, errors.Errorf("unsupported answers format: %s", format)
	}
	return Normalize(raw)
}

// Normalize converts raw answer strings into answer tokens.
func Normalize(raw map[string]string) (score.Answers, error) {
	out := make(score.Answers, len(raw))
	for q, v := range raw {
		a, ok := score.ParseAnswer(v)
		if !ok {
			return nil, errors.Wrapf(ErrInvalidAnswer, "%s: %q", q, v)
		}
		out[strings.TrimSpace(q)] = a
	}
	return out, nil
}

// Validate checks that every answered question is known. A nil known func
// checks against the questionnaire form.
func Validate(a score.Answers, known func(string) bool) error {
	if known == nil {
		known = InForm
	}
	var unknown []string
	for q, v := range a {
		if !v.Valid() {
			return errors.Wrapf(ErrInvalidAnswer, "%s: %q", q, v)
		}
		if !known(q) {
			unknown = append(unknown, q)
		}
	}
	if len(unknown) > 0 {
		score.SortQuestionIDs(unknown)
		return errors.Wrapf(ErrUnknownQuestion, "%s", strings.Join(unknown, ", "))
	}
	return nil
}

// RandomFill answers every question in ids at random.
func RandomFill(rng *rand.Rand, ids []string) score.Answers {
	a := make(score.Answers, len(ids))
	for _, q := range ids {
		if rng.IntN(2) == 0 {
			a[q] = score.Yes
		} else {
			a[q] = score.No
		}
	}
	return a
}
