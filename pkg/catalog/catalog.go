package catalog

import (
	"github.com/mchmarny/nsctl/pkg/score"
	"github.com/pkg/errors"
)

const (
	// Default file names as produced by the model training pipeline.
	FeaturesFileName    = "selected_features.xlsx"
	PerformanceFileName = "model_performance.xlsx"
	QuestionsFileName   = "SorularFull.csv"
	FinalPoolFileName   = "final_question_pool.txt"
)

// Question is one item of the question sheet.
type Question struct {
	ID       string       `json:"id" yaml:"id"`
	Text     string       `json:"text,omitempty" yaml:"text,omitempty"`
	Expected score.Answer `json:"expected,omitempty" yaml:"expected,omitempty"`
}

// Catalog holds every table the scoring engine needs except the models.
type Catalog struct {
	Questions []*Question         `json:"questions" yaml:"questions"`
	Features  map[string][]string `json:"features" yaml:"features"`
	Weights   map[string]float64  `json:"weights" yaml:"weights"`
	FinalPool []string            `json:"final_pool" yaml:"final_pool"`
}

// Sources are the paths of the catalog input files.
type Sources struct {
	Features    string `json:"features" yaml:"features"`
	Performance string `json:"performance" yaml:"performance"`
	Questions   string `json:"questions" yaml:"questions"`
	FinalPool   string `json:"final_pool" yaml:"final_pool"`
}

// Load reads all catalog files. A missing final pool file is not an error.
func Load(src Sources) (*Catalog, error) {
	features, err := LoadFeatures(src.Features)
	if err != nil {
		return nil, errors.Wrap(err, "error loading feature lists")
	}
	weights, err := LoadPerformance(src.Performance)
	if err != nil {
		return nil, errors.Wrap(err, "error loading model performance")
	}
	questions, err := LoadQuestions(src.Questions)
	if err != nil {
		return nil, errors.Wrap(err, "error loading questions")
	}
	pool, err := LoadFinalPool(src.FinalPool)
	if err != nil {
		return nil, errors.Wrap(err, "error loading final question pool")
	}
	return &Catalog{
		Questions: questions,
		Features:  features,
		Weights:   weights,
		FinalPool: pool,
	}, nil
}

// Expected returns the expected answer per question. Questions without an
// expected answer are left out.
func (c *Catalog) Expected() map[string]score.Answer {
	m := make(map[string]score.Answer, len(c.Questions))
	for _, q := range c.Questions {
		if q.Expected != "" {
			m[q.ID] = q.Expected
		}
	}
	return m
}

// Texts returns the display text per question.
func (c *Catalog) Texts() map[string]string {
	m := make(map[string]string, len(c.Questions))
	for _, q := range c.Questions {
		m[q.ID] = q.Text
	}
	return m
}

// Has reports whether the question sheet contains id.
func (c *Catalog) Has(id string) bool {
	for _, q := range c.Questions {
		if q.ID == id {
			return true
		}
	}
	return false
}

// Tables combines the catalog with loaded classifiers.
func (c *Catalog) Tables(classifiers map[string]score.Classifier) *score.Tables {
	return &score.Tables{
		Classifiers: classifiers,
		Features:    c.Features,
		Weights:     c.Weights,
		Expected:    c.Expected(),
		FinalPool:   c.FinalPool,
	}
}
