package cli

import (
	"context"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mchmarny/nsctl/pkg/catalog"
	"github.com/mchmarny/nsctl/pkg/config"
	"github.com/mchmarny/nsctl/pkg/data"
	"github.com/mchmarny/nsctl/pkg/model"
	"github.com/mchmarny/nsctl/pkg/questionnaire"
	"github.com/mchmarny/nsctl/pkg/score"
	"github.com/pkg/errors"
	urfave "github.com/urfave/cli/v3"
)

const (
	answersFlag       = "answers"
	answersFormatFlag = "answers-format"
	modelsDirFlag     = "models"
)

func modelsDirOption() urfave.Flag {
	return &urfave.StringFlag{
		Name:  modelsDirFlag,
		Usage: "Directory with exported model files (default: models_dir from config)",
	}
}

func newScoreCmd() *urfave.Command {
	return &urfave.Command{
		Name:    "score",
		Aliases: []string{"s"},
		Usage:   "Score questionnaire answers against the trained models",
		UsageText: `nsctl score --answers answers.json
   nsctl score --answers answers.yaml --format yaml
   cat answers.json | nsctl score --answers - --answers-format json`,
		Action: cmdScore,
		Flags: []urfave.Flag{
			&urfave.StringFlag{
				Name:     answersFlag,
				Aliases:  []string{"a"},
				Usage:    "Path to the answers file (JSON or YAML map of question to Evet/Hayır, - for stdin)",
				Required: true,
			},
			&urfave.StringFlag{
				Name:  answersFormatFlag,
				Usage: "Answers file format [json, yaml] (default: from file extension)",
			},
			modelsDirOption(),
		},
	}
}

// ScoreResult is a single scoring run.
type ScoreResult struct {
	ID       string          `json:"id" yaml:"id"`
	ScoredAt time.Time       `json:"scored_at" yaml:"scored_at"`
	Answered int             `json:"answered" yaml:"answered"`
	Results  []*score.Result `json:"results" yaml:"results"`
}

// scorer holds the engine and the catalog it was built from.
type scorer struct {
	engine  *score.Engine
	catalog *catalog.Catalog
}

// newScorer loads the catalog from the store, falling back to the configured
// input files when nothing was imported, and the classifiers from modelsDir.
func newScorer(ctx context.Context, cfg *appConfig, modelsDir string) (*scorer, error) {
	cat, err := loadCatalog(ctx, cfg)
	if err != nil {
		return nil, err
	}

	if modelsDir == "" {
		modelsDir = config.Resolve(cfg.HomeDir, cfg.Config.ModelsDir)
	}

	classifiers, err := model.LoadDir(ctx, modelsDir)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, errors.Wrap(err, "error loading models")
		}
		slog.Warn("models directory not found, all categories will score negative", "dir", modelsDir)
		classifiers = map[string]score.Classifier{}
	}

	slog.Debug("scorer ready",
		"questions", len(cat.Questions),
		"models", len(classifiers),
		"final_pool", len(cat.FinalPool))

	return &scorer{
		engine:  score.NewEngine(cat.Tables(classifiers), score.WithLogger(slog.Default().With("component", "score"))),
		catalog: cat,
	}, nil
}

func loadCatalog(ctx context.Context, cfg *appConfig) (*catalog.Catalog, error) {
	empty, err := data.IsEmpty(cfg.DB)
	if err != nil {
		return nil, errors.Wrap(err, "error checking data state")
	}
	if !empty {
		return data.LoadCatalog(cfg.DB)
	}

	slog.Debug("store empty, reading catalog from input files", "dir", cfg.HomeDir)
	src, cleanup, err := fetchSources(ctx, cfg.Config.Sources(cfg.HomeDir), os.Getenv(tokenEnvVar))
	if err != nil {
		return nil, errors.Wrap(err, "error fetching catalog files")
	}
	defer cleanup()

	cat, err := catalog.Load(src)
	if err != nil {
		return nil, errors.Wrap(err, "no catalog imported and input files not readable, run import first")
	}
	return cat, nil
}

// known reports whether q is a questionnaire or catalog question.
func (s *scorer) known(q string) bool {
	return questionnaire.InForm(q) || s.catalog.Has(q)
}

func (s *scorer) score(answers score.Answers) (*ScoreResult, error) {
	if err := questionnaire.Validate(answers, s.known); err != nil {
		return nil, err
	}
	report := s.engine.Score(answers)
	return &ScoreResult{
		ID:       uuid.NewString(),
		ScoredAt: time.Now().UTC(),
		Answered: len(answers),
		Results:  report.Ordered(s.engine.Categories()),
	}, nil
}

func cmdScore(ctx context.Context, cmd *urfave.Command) error {
	cfg := getConfig(cmd)

	answers, err := readAnswers(cmd.String(answersFlag), cmd.String(answersFormatFlag))
	if err != nil {
		return err
	}

	s, err := newScorer(ctx, cfg, cmd.String(modelsDirFlag))
	if err != nil {
		return err
	}

	res, err := s.score(answers)
	if err != nil {
		return errors.Wrap(err, "error scoring answers")
	}

	slog.Debug("answers scored", "id", res.ID, "answered", res.Answered)
	return cfg.encode(res)
}

func readAnswers(path, format string) (score.Answers, error) {
	if format == "" {
		format = strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	}
	if format == "" {
		format = questionnaire.FormatJSON
	}

	var r io.Reader
	if path == "-" {
		r = os.Stdin
	} else {
		f, err := os.Open(path)
		if err != nil {
			return nil, errors.Wrapf(err, "error opening answers file: %s", path)
		}
		defer f.Close()
		r = f
	}

	answers, err := questionnaire.ParseAnswers(r, format)
	if err != nil {
		return nil, errors.Wrapf(err, "error parsing answers: %s", path)
	}
	return answers, nil
}
