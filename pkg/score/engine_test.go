package score

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errTestShape = errors.New("shape mismatch")

// stubClassifier returns a fixed probability and optionally enforces the
// input length. calls counts invocations.
type stubClassifier struct {
	p     float64
	size  int
	calls *int
}

func (s stubClassifier) PositiveProbability(x []float64) (float64, error) {
	if s.calls != nil {
		*s.calls++
	}
	if s.size >= 0 && len(x) != s.size {
		return 0, errTestShape
	}
	return s.p, nil
}

func anySize(p float64) stubClassifier {
	return stubClassifier{p: p, size: -1}
}

func TestScore_WeightedSosyalScenario(t *testing.T) {
	tables := &Tables{
		Classifiers: map[string]Classifier{
			"Risk_Sosyal": anySize(0.9),
			"Safe_Sosyal": anySize(0.2),
		},
		Features: map[string][]string{
			"Risk_Sosyal": {"Q1", "Q2"},
			"Safe_Sosyal": {"Q2", "Q3"},
		},
		Weights: map[string]float64{
			"Risk_Sosyal": 0.8,
			"Safe_Sosyal": 0.6,
		},
	}

	report := NewEngine(tables).Score(Answers{"Q1": Yes})
	res := report["Sosyal"]
	require.NotNil(t, res)

	assert.InDelta(t, 0.8, res.RiskWeightSum, 1e-9)
	assert.InDelta(t, 0.6, res.NonRiskWeightSum, 1e-9)
	assert.InDelta(t, 57.1, res.RiskPercentage, 0.05)
	assert.Equal(t, Positive, res.FinalPrediction)
	assert.Equal(t, 2, res.TotalModels)
	assert.Equal(t, 1, res.TotalPositive)
	assert.Equal(t, 3, res.TotalQuestions)
}

func TestScore_TieIsNegative(t *testing.T) {
	tables := &Tables{
		Classifiers: map[string]Classifier{
			"A_Motor": anySize(0.5),
			"B_Motor": anySize(0.49),
		},
		Features: map[string][]string{
			"A_Motor": {"Q1"},
			"B_Motor": {"Q1"},
		},
	}

	res := NewEngine(tables).Score(Answers{})["Motor"]
	require.NotNil(t, res)
	assert.Equal(t, 1.0, res.RiskWeightSum)
	assert.Equal(t, 1.0, res.NonRiskWeightSum)
	assert.Equal(t, 50.0, res.RiskPercentage)
	assert.Equal(t, Negative, res.FinalPrediction)
}

func TestScore_EmptyCategory(t *testing.T) {
	report := NewEngine(&Tables{}).Score(Answers{"Q1": Yes})
	require.Len(t, report, len(DefaultCategories))

	for _, c := range DefaultCategories {
		res := report[c.Label]
		require.NotNil(t, res, c.Label)
		assert.Equal(t, 0, res.TotalModels)
		assert.Equal(t, 0, res.TotalPositive)
		assert.Equal(t, 0.0, res.RiskPercentage)
		assert.Equal(t, Negative, res.FinalPrediction)
		assert.Empty(t, res.Discrepancies)
	}
}

func TestScore_NilTables(t *testing.T) {
	report := NewEngine(nil).Score(nil)
	assert.Len(t, report, len(DefaultCategories))
}

func TestScore_DiscrepancyReported(t *testing.T) {
	tables := &Tables{
		Classifiers: map[string]Classifier{"M_Duyusal": anySize(0.1)},
		Features:    map[string][]string{"M_Duyusal": {"Q5", "Q6", "Q7", "Q8"}},
		Expected: map[string]Answer{
			"Q5": No,
			"Q6": Yes,
			"Q7": No,
		},
	}
	answers := Answers{
		"Q5": Yes, // differs
		"Q6": Yes, // matches
		"Q8": Yes, // no expected answer
	}

	res := NewEngine(tables).Score(answers)["Duyusal"]
	require.NotNil(t, res)
	require.Len(t, res.Discrepancies, 1)
	assert.Equal(t, Discrepancy{Question: "Q5", Expected: No, Given: Yes}, res.Discrepancies[0])
	assert.Equal(t, 1, res.IncorrectCount)
	assert.Equal(t, 4, res.TotalQuestions)
}

func TestScore_MissingFinalPool(t *testing.T) {
	calls := 0
	tables := &Tables{
		Classifiers: map[string]Classifier{
			"Model_Otizm": stubClassifier{p: 0.9, size: 3, calls: &calls},
		},
		Features: map[string][]string{"Model_Otizm": {"Q1", "Q2", "Q3"}},
		Expected: map[string]Answer{"Q1": No},
	}

	res := NewEngine(tables).Score(Answers{"Q1": Yes})["Otizm"]
	require.NotNil(t, res)

	assert.Positive(t, calls, "inference should be attempted")
	assert.Equal(t, 1, res.TotalModels)
	assert.Equal(t, 0, res.TotalPositive)
	assert.Equal(t, 0, res.TotalQuestions)
	assert.Empty(t, res.Discrepancies)
	assert.Equal(t, 0.0, res.RiskPercentage)
	assert.Equal(t, Negative, res.FinalPrediction)
}

func TestScore_DisorderUsesFinalPool(t *testing.T) {
	tables := &Tables{
		Classifiers: map[string]Classifier{
			"RF_DEHB": stubClassifier{p: 0.7, size: 3},
		},
		Features:  map[string][]string{"RF_DEHB": {"Q1"}},
		Expected:  map[string]Answer{"Q1": No, "Q10": No, "Q11": No},
		FinalPool: []string{"Q10", "Q11", "Q10"},
	}

	res := NewEngine(tables).Score(Answers{"Q1": Yes, "Q10": Yes, "Q11": No})["DEHB"]
	require.NotNil(t, res)

	assert.Equal(t, 1, res.TotalPositive)
	assert.Equal(t, Positive, res.FinalPrediction)
	assert.Equal(t, 2, res.TotalQuestions)
	require.Len(t, res.Discrepancies, 1)
	assert.Equal(t, "Q10", res.Discrepancies[0].Question)
}

func TestScore_SkipsClassifierWithoutVector(t *testing.T) {
	tables := &Tables{
		Classifiers: map[string]Classifier{
			"A_Dil": anySize(0.9),
			"B_Dil": anySize(0.1),
		},
		Features: map[string][]string{"B_Dil": {"Q1"}},
		Weights:  map[string]float64{"A_Dil": 5},
	}

	res := NewEngine(tables).Score(Answers{})["Dil"]
	require.NotNil(t, res)
	assert.Equal(t, 2, res.TotalModels)
	assert.Equal(t, 0, res.TotalPositive)
	assert.Equal(t, 0.0, res.RiskWeightSum)
	assert.Equal(t, 1.0, res.NonRiskWeightSum)
	assert.Equal(t, Negative, res.FinalPrediction)
}

func TestScore_ShapeMismatchSkipped(t *testing.T) {
	tables := &Tables{
		Classifiers: map[string]Classifier{"M_Motor": stubClassifier{p: 0.9, size: 4}},
		Features:    map[string][]string{"M_Motor": {"Q1", "Q2"}},
	}

	res := NewEngine(tables).Score(Answers{})["Motor"]
	require.NotNil(t, res)
	assert.Equal(t, 1, res.TotalModels)
	assert.Equal(t, 0, res.TotalPositive)
	assert.Equal(t, 0.0, res.RiskPercentage)
}

func TestScore_NaNSkipped(t *testing.T) {
	nan := 0.0
	tables := &Tables{
		Classifiers: map[string]Classifier{"M_Motor": anySize(nan / nan)},
		Features:    map[string][]string{"M_Motor": {"Q1"}},
	}
	res := NewEngine(tables).Score(Answers{})["Motor"]
	assert.Equal(t, 0.0, res.RiskWeightSum+res.NonRiskWeightSum)
}

func TestScore_FlaggedQuestionsFromPositiveModels(t *testing.T) {
	tables := &Tables{
		Classifiers: map[string]Classifier{
			"Pos_Sosyal": anySize(0.8),
			"Neg_Sosyal": anySize(0.2),
		},
		Features: map[string][]string{
			"Pos_Sosyal": {"Q10", "Q2", "Q3"},
			"Neg_Sosyal": {"Q4"},
		},
		Expected: map[string]Answer{"Q2": No, "Q3": Yes, "Q4": No, "Q10": No},
	}
	answers := Answers{"Q2": Yes, "Q3": Yes, "Q4": Yes}

	res := NewEngine(tables).Score(answers)["Sosyal"]
	require.NotNil(t, res)
	// Q10 is unanswered and still differs from its expected answer.
	assert.Equal(t, []string{"Q2", "Q10"}, res.FlaggedQuestions)
}

func TestScore_NoFlaggedQuestionsIsEmptyList(t *testing.T) {
	tables := &Tables{
		Classifiers: map[string]Classifier{"Neg_Sosyal": anySize(0.2)},
		Features:    map[string][]string{"Neg_Sosyal": {"Q1"}},
		Expected:    map[string]Answer{"Q1": No},
	}

	res := NewEngine(tables).Score(Answers{"Q1": Yes})["Sosyal"]
	require.NotNil(t, res)
	assert.NotNil(t, res.FlaggedQuestions)
	assert.Empty(t, res.FlaggedQuestions)

	b, err := json.Marshal(res)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"flagged_questions":[]`)
}

func TestWithLogger(t *testing.T) {
	var buf bytes.Buffer
	l := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	tables := &Tables{
		Classifiers: map[string]Classifier{"M_Motor": stubClassifier{p: 0.9, size: 4}},
		Features:    map[string][]string{"M_Motor": {"Q1"}},
	}

	NewEngine(tables, WithLogger(l)).Score(Answers{})
	assert.Contains(t, buf.String(), "classifier skipped")
	assert.Contains(t, buf.String(), "classifier=M_Motor")

	// nil keeps the default logger
	e := NewEngine(tables, WithLogger(nil))
	assert.NotNil(t, e.logger)
}

func TestScore_DoubleCountAcrossSuffixes(t *testing.T) {
	cats := []Category{{Label: "Motor"}, {Label: "ceMotor"}}
	tables := &Tables{
		Classifiers: map[string]Classifier{"Model_IceMotor": anySize(0.9)},
		Features:    map[string][]string{"Model_IceMotor": {"Q1"}},
	}

	report := NewEngine(tables, WithCategories(cats)).Score(Answers{})
	require.Len(t, report, 2)
	assert.Equal(t, 1, report["Motor"].TotalPositive)
	assert.Equal(t, 1, report["ceMotor"].TotalPositive)
}

func TestScore_Idempotent(t *testing.T) {
	tables := randomTables(rand.New(rand.NewPCG(1, 2)))
	answers := randomAnswers(rand.New(rand.NewPCG(3, 4)))
	e := NewEngine(tables)

	assert.Equal(t, e.Score(answers), e.Score(answers))
}

func TestScore_Properties(t *testing.T) {
	rng := rand.New(rand.NewPCG(42, 7))
	for i := range 50 {
		t.Run(fmt.Sprintf("seed-%d", i), func(t *testing.T) {
			tables := randomTables(rng)
			answers := randomAnswers(rng)
			e := NewEngine(tables)

			for _, g := range Partition(e.Categories(), keys(tables.Classifiers)) {
				res := e.Score(answers)[g.Category.Label]
				require.NotNil(t, res)

				assert.GreaterOrEqual(t, res.RiskPercentage, 0.0)
				assert.LessOrEqual(t, res.RiskPercentage, 100.0)
				if res.RiskWeightSum > res.NonRiskWeightSum {
					assert.Equal(t, Positive, res.FinalPrediction)
				} else {
					assert.Equal(t, Negative, res.FinalPrediction)
				}

				pool := e.usedQuestions(g)
				for _, d := range res.Discrepancies {
					assert.Contains(t, pool, d.Question)
					assert.NotEqual(t, d.Expected, d.Given)
				}
				assert.Equal(t, len(res.Discrepancies), res.IncorrectCount)
			}
		})
	}
}

func TestReport_Ordered(t *testing.T) {
	report := NewEngine(&Tables{}).Score(Answers{})
	ordered := report.Ordered(DefaultCategories)
	require.Len(t, ordered, len(DefaultCategories))
	for i, c := range DefaultCategories {
		assert.Equal(t, c.Label, ordered[i].Category)
	}
}

func TestRiskPercentage(t *testing.T) {
	tests := []struct {
		name     string
		risk     float64
		nonRisk  float64
		expected float64
	}{
		{"no classifiers", 0, 0, 0},
		{"all positive", 2, 0, 100},
		{"all negative", 0, 3, 0},
		{"mixed", 1, 3, 25},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, riskPercentage(tt.risk, tt.nonRisk), 1e-9)
		})
	}
}

func keys[V any](m map[string]V) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}

func randomTables(rng *rand.Rand) *Tables {
	t := &Tables{
		Classifiers: map[string]Classifier{},
		Features:    map[string][]string{},
		Weights:     map[string]float64{},
		Expected:    map[string]Answer{},
	}
	for q := 1; q <= 30; q++ {
		id := fmt.Sprintf("Q%d", q)
		if rng.IntN(4) == 0 {
			continue
		}
		if rng.IntN(2) == 0 {
			t.Expected[id] = Yes
		} else {
			t.Expected[id] = No
		}
	}
	for i := 1; i <= 10; i++ {
		t.FinalPool = append(t.FinalPool, fmt.Sprintf("Q%d", rng.IntN(30)+1))
	}
	for _, c := range DefaultCategories {
		n := rng.IntN(4)
		for j := range n {
			id := fmt.Sprintf("M%d_%s", j, c.Label)
			size := rng.IntN(5) + 1
			qs := make([]string, size)
			for k := range qs {
				qs[k] = fmt.Sprintf("Q%d", rng.IntN(30)+1)
			}
			if rng.IntN(5) > 0 {
				t.Features[id] = qs
			}
			if rng.IntN(3) > 0 {
				t.Weights[id] = rng.Float64()
			}
			t.Classifiers[id] = anySize(rng.Float64())
		}
	}
	return t
}

func randomAnswers(rng *rand.Rand) Answers {
	a := Answers{}
	for q := 1; q <= 30; q++ {
		switch rng.IntN(3) {
		case 0:
			a[fmt.Sprintf("Q%d", q)] = Yes
		case 1:
			a[fmt.Sprintf("Q%d", q)] = No
		}
	}
	return a
}
