package score

import (
	"log/slog"
	"maps"
	"math"
	"slices"
)

// Engine scores answer sets against a fixed set of tables. It holds no
// mutable state, so one Engine can serve concurrent callers.
type Engine struct {
	tables     *Tables
	categories []Category
	logger     *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithCategories replaces DefaultCategories.
func WithCategories(c []Category) Option {
	return func(e *Engine) {
		e.categories = c
	}
}

// WithLogger sets the logger used for skipped-classifier diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// NewEngine creates an engine over t. A nil t behaves like empty tables.
func NewEngine(t *Tables, opts ...Option) *Engine {
	if t == nil {
		t = &Tables{}
	}
	e := &Engine{
		tables:     t,
		categories: DefaultCategories,
		logger:     slog.Default(),
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Categories returns the categories the engine reports on.
func (e *Engine) Categories() []Category {
	return slices.Clone(e.categories)
}

// Vectorize returns the per-classifier feature vectors for answers.
func (e *Engine) Vectorize(answers Answers) map[string][]float64 {
	return Vectorize(answers, e.tables.Features, e.tables.FinalPool)
}

// Score produces one Result per category. It never fails: classifiers that
// cannot be evaluated are left out and empty categories score 0% negative.
func (e *Engine) Score(answers Answers) Report {
	vectors := e.Vectorize(answers)
	ids := slices.Collect(maps.Keys(e.tables.Classifiers))

	report := make(Report, len(e.categories))
	for _, g := range Partition(e.categories, ids) {
		report[g.Category.Label] = e.scoreGroup(g, answers, vectors)
	}
	return report
}

func (e *Engine) scoreGroup(g Group, answers Answers, vectors map[string][]float64) *Result {
	var riskSum, nonRiskSum float64
	flagged := make(map[string]bool)

	for _, id := range g.Members {
		p, ok := e.predict(id, vectors)
		if !ok {
			continue
		}
		w := e.tables.weight(id)
		if p >= Threshold {
			riskSum += w
			for _, q := range e.tables.Features[id] {
				if exp, ok := e.tables.expected(q); ok && answers[q] != exp {
					flagged[q] = true
				}
			}
		} else {
			nonRiskSum += w
		}
	}

	pool := e.usedQuestions(g)
	diffs := discrepancies(pool, answers, e.tables.Expected)

	flaggedList := make([]string, 0, len(flagged))
	for q := range flagged {
		flaggedList = append(flaggedList, q)
	}
	SortQuestionIDs(flaggedList)

	return &Result{
		Category:         g.Category.Label,
		RiskWeightSum:    riskSum,
		NonRiskWeightSum: nonRiskSum,
		RiskPercentage:   riskPercentage(riskSum, nonRiskSum),
		FinalPrediction:  decide(riskSum, nonRiskSum),
		FlaggedQuestions: flaggedList,
		TotalModels:      len(g.Members),
		TotalPositive:    e.countPositive(g.Members, vectors),
		Discrepancies:    diffs,
		TotalQuestions:   len(pool),
		IncorrectCount:   len(diffs),
	}
}

// predict returns the positive probability for id, or false when the
// classifier has no vector, is missing, or rejects its input.
func (e *Engine) predict(id string, vectors map[string][]float64) (float64, bool) {
	x, ok := vectors[id]
	if !ok {
		e.logger.Debug("classifier skipped", "classifier", id, "reason", "no input vector")
		return 0, false
	}
	c := e.tables.Classifiers[id]
	if c == nil {
		e.logger.Debug("classifier skipped", "classifier", id, "reason", "no model")
		return 0, false
	}
	p, err := c.PositiveProbability(x)
	if err != nil {
		e.logger.Debug("classifier skipped", "classifier", id, "error", err)
		return 0, false
	}
	if math.IsNaN(p) {
		e.logger.Debug("classifier skipped", "classifier", id, "reason", "NaN probability")
		return 0, false
	}
	return p, true
}

// countPositive re-runs inference for each member. Its result is what gets
// reported as total_positive.
func (e *Engine) countPositive(members []string, vectors map[string][]float64) int {
	n := 0
	for _, id := range members {
		if p, ok := e.predict(id, vectors); ok && p >= Threshold {
			n++
		}
	}
	return n
}

// usedQuestions is the question pool a category is explained against.
func (e *Engine) usedQuestions(g Group) []string {
	if g.Category.Disorder {
		return dedup(e.tables.FinalPool)
	}
	var all []string
	for _, id := range g.Members {
		all = append(all, e.tables.Features[id]...)
	}
	return dedup(all)
}

func discrepancies(pool []string, answers Answers, expected map[string]Answer) []Discrepancy {
	out := []Discrepancy{}
	for _, q := range pool {
		given, ok := answers[q]
		if !ok {
			continue
		}
		exp, ok := expected[q]
		if !ok {
			continue
		}
		if given != exp {
			out = append(out, Discrepancy{Question: q, Expected: exp, Given: given})
		}
	}
	return out
}

func riskPercentage(risk, nonRisk float64) float64 {
	total := risk + nonRisk
	if total <= 0 {
		return 0
	}
	return min(max(risk/total*hundredPercent, 0), hundredPercent)
}

func decide(risk, nonRisk float64) Prediction {
	if risk > nonRisk {
		return Positive
	}
	return Negative
}

func dedup(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
