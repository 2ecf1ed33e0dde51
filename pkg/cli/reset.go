package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/mchmarny/nsctl/pkg/data"
	"github.com/pkg/errors"
	urfave "github.com/urfave/cli/v3"
)

const yesFlag = "yes"

func newResetCmd() *urfave.Command {
	return &urfave.Command{
		Name:            "reset",
		Usage:           "Delete all imported data and start fresh",
		HideHelpCommand: true,
		Action:          cmdReset,
		Flags: []urfave.Flag{
			&urfave.BoolFlag{
				Name:    yesFlag,
				Aliases: []string{"y"},
				Usage:   "Skip the confirmation prompt",
			},
		},
	}
}

func cmdReset(_ context.Context, cmd *urfave.Command) error {
	cfg := getConfig(cmd)
	out := cfg.Out
	if out == nil {
		out = os.Stdout
	}

	if !cmd.Bool(yesFlag) {
		ok, err := confirm(cmd.Root().Reader, out, cfg.DBPath)
		if err != nil {
			return err
		}
		if !ok {
			fmt.Fprintln(out, "Aborted.")
			return nil
		}
	}

	if err := resetStore(cfg); err != nil {
		return err
	}

	fmt.Fprintln(out, "Reset complete.")
	return nil
}

func confirm(in io.Reader, out io.Writer, target string) (bool, error) {
	if in == nil {
		in = os.Stdin
	}
	fmt.Fprintf(out, "This will permanently delete all data in %s\n", target)
	fmt.Fprint(out, "Are you sure? [y/N]: ")

	answer, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return false, errors.Wrap(err, "error reading input")
	}
	return strings.ToLower(strings.TrimSpace(answer)) == "y", nil
}

// resetStore deletes the Sqlite file and re-creates it. Postgres stores are
// emptied in place.
func resetStore(cfg *appConfig) error {
	if data.IsPostgres(cfg.DBPath) {
		if err := data.Clear(cfg.DB); err != nil {
			return errors.Wrap(err, "error clearing database")
		}
		slog.Info("database cleared")
		return nil
	}

	// close the DB before deleting the file
	if cfg.DB != nil {
		cfg.DB.Close()
		cfg.DB = nil
	}

	if err := os.Remove(cfg.DBPath); err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "error deleting database")
	}
	slog.Info("database deleted", "path", cfg.DBPath)

	if err := data.Init(cfg.DBPath); err != nil {
		return errors.Wrap(err, "error re-initializing database")
	}

	db, err := data.GetDB(cfg.DBPath)
	if err != nil {
		return errors.Wrap(err, "error opening database")
	}
	cfg.DB = db

	slog.Info("database re-initialized", "path", cfg.DBPath)
	return nil
}
