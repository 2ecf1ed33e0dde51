package cli

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/mchmarny/nsctl/pkg/config"
	"github.com/mchmarny/nsctl/pkg/data"
	"github.com/mchmarny/nsctl/pkg/logging"
	"github.com/pkg/errors"
	urfave "github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"
)

const (
	appName      = "nsctl"
	appConfigKey = "app-config"

	debugFlag     = "debug"
	dbFlag        = "db"
	formatFlag    = "format"
	configDirFlag = "config-dir"
	logFormatFlag = "log-format"

	formatJSON = "json"
	formatYAML = "yaml"
)

var (
	version = "v0.0.1-default"
	commit  = ""
	date    = ""
)

// Execute creates and runs the CLI application.
func Execute() {
	logging.SetDefaultLogger("info", logging.FormatText)

	app := newApp()
	if err := app.Run(context.Background(), os.Args); err != nil {
		slog.Error("fatal error", "error", err)
		os.Exit(1)
	}
}

type appConfig struct {
	HomeDir string
	Config  *config.Config
	DBPath  string
	DB      *sql.DB
	Format  string
	Out     io.Writer
}

func getConfig(cmd *urfave.Command) *appConfig {
	return cmd.Root().Metadata[appConfigKey].(*appConfig)
}

func newApp() *urfave.Command {
	return &urfave.Command{
		Name:                  appName,
		Version:               fmt.Sprintf("%s (%s - %s)", version, commit, date),
		EnableShellCompletion: true,
		HideHelpCommand:       true,
		Usage:                 "Screen questionnaire answers for neurodevelopmental disorder risk",
		Metadata:              map[string]any{},
		Flags: []urfave.Flag{
			&urfave.BoolFlag{
				Name:  debugFlag,
				Usage: "Prints verbose logs (optional, default: false)",
			},
			&urfave.StringFlag{
				Name:    dbFlag,
				Usage:   "Path to the Sqlite database file or a postgres:// DSN",
				Sources: urfave.EnvVars("NSCTL_DB"),
			},
			&urfave.StringFlag{
				Name:  formatFlag,
				Usage: "Output format [json, yaml]",
				Value: formatJSON,
			},
			&urfave.StringFlag{
				Name:    configDirFlag,
				Usage:   "Directory with config.yaml and default input files (default: $HOME/.nsctl)",
				Sources: urfave.EnvVars("NSCTL_HOME"),
			},
			&urfave.StringFlag{
				Name:  logFormatFlag,
				Usage: "Log format [text, json]",
				Value: logging.FormatText,
			},
		},
		Commands: []*urfave.Command{
			newImportCmd(),
			newScoreCmd(),
			newQuestionsCmd(),
			newServerCmd(),
			newResetCmd(),
		},
		Before: before,
		After: func(_ context.Context, cmd *urfave.Command) error {
			if cfg, ok := cmd.Root().Metadata[appConfigKey].(*appConfig); ok && cfg.DB != nil {
				cfg.DB.Close()
			}
			return nil
		},
	}
}

func before(ctx context.Context, cmd *urfave.Command) (context.Context, error) {
	level := "info"
	if cmd.Bool(debugFlag) {
		level = "debug"
	}
	logging.SetDefaultLogger(level, cmd.String(logFormatFlag))

	format := formatJSON
	if f := strings.ToLower(cmd.String(formatFlag)); f == formatYAML || f == "yml" {
		format = formatYAML
	}

	home := cmd.String(configDirFlag)
	if home == "" {
		home = getHomeDir()
	}

	c, err := config.ReadOrCreate(home)
	if err != nil {
		return ctx, errors.Wrap(err, "error reading config")
	}

	dbPath := cmd.String(dbFlag)
	if dbPath == "" {
		dbPath = config.Resolve(home, c.DBPath)
	}
	if dbPath == "" {
		dbPath = filepath.Join(home, data.DataFileName)
	}

	if err := data.Init(dbPath); err != nil {
		return ctx, errors.Wrap(err, "error initializing database")
	}

	db, err := data.GetDB(dbPath)
	if err != nil {
		return ctx, errors.Wrap(err, "error opening database")
	}

	cmd.Root().Metadata[appConfigKey] = &appConfig{
		HomeDir: home,
		Config:  c,
		DBPath:  dbPath,
		DB:      db,
		Format:  format,
		Out:     cmd.Root().Writer,
	}
	return ctx, nil
}

func getHomeDir() string {
	dir, _, err := config.GetOrCreateHomeDir(appName)
	if err != nil {
		slog.Debug("error getting home dir, using current dir instead", "error", err)
		return "."
	}
	return dir
}

func (c *appConfig) encode(v any) error {
	out := c.Out
	if out == nil {
		out = os.Stdout
	}
	return encode(out, c.Format, v)
}

func encode(w io.Writer, format string, v any) error {
	if format == formatYAML {
		e := yaml.NewEncoder(w)
		defer e.Close()
		return e.Encode(v)
	}
	e := json.NewEncoder(w)
	e.SetIndent("", "  ")
	return e.Encode(v)
}
