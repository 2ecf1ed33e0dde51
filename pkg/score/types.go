package score

const (
	// Threshold is the probability at or above which a classifier votes positive.
	Threshold = 0.5

	// DefaultWeight applies to classifiers without a configured weight.
	DefaultWeight = 1.0

	hundredPercent = 100
)

// Classifier is a pre-trained binary model.
type Classifier interface {
	// PositiveProbability returns P(positive | x) in [0, 1]. It errors when x
	// does not have the shape the model was trained on.
	PositiveProbability(x []float64) (float64, error)
}

// Prediction is the binary outcome of a category.
type Prediction int

const (
	Negative Prediction = 0
	Positive Prediction = 1
)

// Tables are the read-only inputs shared by every scoring run.
type Tables struct {
	Classifiers map[string]Classifier
	Features    map[string][]string
	Weights     map[string]float64
	Expected    map[string]Answer
	FinalPool   []string
}

func (t *Tables) weight(id string) float64 {
	if w, ok := t.Weights[id]; ok {
		return w
	}
	return DefaultWeight
}

func (t *Tables) expected(q string) (Answer, bool) {
	a, ok := t.Expected[q]
	return a, ok
}

// Discrepancy is an answered question whose answer differs from the expected one.
type Discrepancy struct {
	Question string `json:"question" yaml:"question"`
	Expected Answer `json:"expected" yaml:"expected"`
	Given    Answer `json:"given" yaml:"given"`
}

// Result summarizes one category for a single scoring run.
type Result struct {
	Category         string        `json:"category" yaml:"category"`
	RiskWeightSum    float64       `json:"risk_weight_sum" yaml:"risk_weight_sum"`
	NonRiskWeightSum float64       `json:"nonrisk_weight_sum" yaml:"nonrisk_weight_sum"`
	RiskPercentage   float64       `json:"risk_percentage" yaml:"risk_percentage"`
	FinalPrediction  Prediction    `json:"final_prediction" yaml:"final_prediction"`
	FlaggedQuestions []string      `json:"flagged_questions" yaml:"flagged_questions"`
	TotalModels      int           `json:"total_models" yaml:"total_models"`
	TotalPositive    int           `json:"total_positive" yaml:"total_positive"`
	Discrepancies    []Discrepancy `json:"incorrect_answers_detailed" yaml:"incorrect_answers_detailed"`
	TotalQuestions   int           `json:"total_question_count" yaml:"total_question_count"`
	IncorrectCount   int           `json:"incorrect_count" yaml:"incorrect_count"`
}

// Report maps category label to its result.
type Report map[string]*Result

// Ordered returns the results following the order of categories, skipping
// labels not present in r.
func (r Report) Ordered(categories []Category) []*Result {
	out := make([]*Result, 0, len(r))
	for _, c := range categories {
		if res, ok := r[c.Label]; ok {
			out = append(out, res)
		}
	}
	return out
}
