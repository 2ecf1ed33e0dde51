package cli

import (
	"context"
	"math/rand/v2"

	"github.com/mchmarny/nsctl/pkg/catalog"
	"github.com/mchmarny/nsctl/pkg/questionnaire"
	"github.com/mchmarny/nsctl/pkg/score"
	"github.com/pkg/errors"
	urfave "github.com/urfave/cli/v3"
)

const (
	randomFlag = "random"
	seedFlag   = "seed"
)

func newQuestionsCmd() *urfave.Command {
	return &urfave.Command{
		Name:    "questions",
		Aliases: []string{"q"},
		Usage:   "List the questionnaire with question texts and expected answers",
		UsageText: `nsctl questions
   nsctl questions --random --seed 7 > answers.json`,
		Action: cmdQuestions,
		Flags: []urfave.Flag{
			&urfave.BoolFlag{
				Name:  randomFlag,
				Usage: "Print a randomly filled answer set instead of the questions",
			},
			&urfave.IntFlag{
				Name:  seedFlag,
				Usage: "Seed for --random (default: random)",
			},
		},
	}
}

// QuestionItem is one questionnaire entry as presented to respondents.
type QuestionItem struct {
	ID       string       `json:"id" yaml:"id"`
	Text     string       `json:"text,omitempty" yaml:"text,omitempty"`
	Expected score.Answer `json:"expected,omitempty" yaml:"expected,omitempty"`
}

func cmdQuestions(ctx context.Context, cmd *urfave.Command) error {
	cfg := getConfig(cmd)

	if cmd.Bool(randomFlag) {
		return cfg.encode(questionnaire.RandomFill(newRand(uint64(cmd.Int(seedFlag))), questionnaire.Form()))
	}

	cat, err := loadCatalog(ctx, cfg)
	if err != nil {
		return errors.Wrap(err, "error loading questions")
	}
	return cfg.encode(questionItems(cat))
}

// questionItems joins the questionnaire form with the catalog question texts.
func questionItems(cat *catalog.Catalog) []*QuestionItem {
	texts := cat.Texts()
	expected := cat.Expected()
	form := questionnaire.Form()
	list := make([]*QuestionItem, 0, len(form))
	for _, id := range form {
		list = append(list, &QuestionItem{
			ID:       id,
			Text:     texts[id],
			Expected: expected[id],
		})
	}
	return list
}

// newRand returns a seeded generator, or a randomly seeded one for seed 0.
func newRand(seed uint64) *rand.Rand {
	if seed == 0 {
		return rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return rand.New(rand.NewPCG(seed, seed))
}
