package cli

import (
	"context"
	"log/slog"
	"time"

	"github.com/mchmarny/nsctl/pkg/catalog"
	"github.com/mchmarny/nsctl/pkg/data"
	"github.com/pkg/errors"
	urfave "github.com/urfave/cli/v3"
)

const (
	featuresFileFlag    = "features"
	performanceFileFlag = "performance"
	questionsFileFlag   = "questions"
	finalPoolFileFlag   = "final-pool"
	tokenFlag           = "token"
)

func newImportCmd() *urfave.Command {
	return &urfave.Command{
		Name:    "import",
		Aliases: []string{"i"},
		Usage:   "Import feature lists, model weights, questions and the final pool into the store",
		UsageText: `nsctl import                                   # import files named in config.yaml
   nsctl import --features f.xlsx --questions q.csv   # override individual files
   nsctl import --questions https://host/SorularFull.csv   # fetch a remote sheet`,
		Action: cmdImport,
		Flags: []urfave.Flag{
			&urfave.StringFlag{
				Name:  featuresFileFlag,
				Usage: "Selected features sheet, .xlsx or .csv (default: features_file from config)",
			},
			&urfave.StringFlag{
				Name:  performanceFileFlag,
				Usage: "Model performance sheet, .xlsx or .csv (default: performance_file from config)",
			},
			&urfave.StringFlag{
				Name:  questionsFileFlag,
				Usage: "Semicolon separated question sheet (default: questions_file from config)",
			},
			&urfave.StringFlag{
				Name:  finalPoolFileFlag,
				Usage: "Final question pool, one id per line (default: final_pool_file from config)",
			},
			&urfave.StringFlag{
				Name:    tokenFlag,
				Usage:   "Bearer token for http(s) sources",
				Sources: urfave.EnvVars(tokenEnvVar),
			},
		},
	}
}

type ImportResult struct {
	Sources  catalog.Sources     `json:"sources" yaml:"sources"`
	Imported *data.ImportSummary `json:"imported" yaml:"imported"`
	State    map[string]int64    `json:"state" yaml:"state"`
	Duration string              `json:"duration" yaml:"duration"`
}

func cmdImport(ctx context.Context, cmd *urfave.Command) error {
	start := time.Now()
	cfg := getConfig(cmd)

	src := importSources(cfg, cmd)
	slog.Debug("importing catalog",
		"features", src.Features,
		"performance", src.Performance,
		"questions", src.Questions,
		"final_pool", src.FinalPool)

	local, cleanup, err := fetchSources(ctx, src, cmd.String(tokenFlag))
	if err != nil {
		return errors.Wrap(err, "error fetching catalog files")
	}
	defer cleanup()

	cat, err := catalog.Load(local)
	if err != nil {
		return errors.Wrap(err, "error loading catalog files")
	}

	sum, err := data.SaveCatalog(cfg.DB, cat)
	if err != nil {
		return errors.Wrap(err, "error saving catalog")
	}

	state, err := data.GetDataState(cfg.DB)
	if err != nil {
		return errors.Wrap(err, "error getting data state")
	}

	return cfg.encode(&ImportResult{
		Sources:  src,
		Imported: sum,
		State:    state,
		Duration: time.Since(start).String(),
	})
}

func importSources(cfg *appConfig, cmd *urfave.Command) catalog.Sources {
	src := cfg.Config.Sources(cfg.HomeDir)
	if v := cmd.String(featuresFileFlag); v != "" {
		src.Features = v
	}
	if v := cmd.String(performanceFileFlag); v != "" {
		src.Performance = v
	}
	if v := cmd.String(questionsFileFlag); v != "" {
		src.Questions = v
	}
	if v := cmd.String(finalPoolFileFlag); v != "" {
		src.FinalPool = v
	}
	return src
}
