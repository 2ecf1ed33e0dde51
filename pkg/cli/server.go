package cli

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/errors"
	urfave "github.com/urfave/cli/v3"
)

const (
	serverShutdownWaitSeconds = 5
	serverTimeoutSeconds      = 300
	serverMaxHeaderBytes      = 20
)

const (
	portFlag    = "port"
	addressFlag = "address"
)

func newServerCmd() *urfave.Command {
	return &urfave.Command{
		Name:    "server",
		Aliases: []string{"serve"},
		Usage:   "Start local HTTP scoring API",
		Action:  cmdStartServer,
		Flags: []urfave.Flag{
			&urfave.IntFlag{
				Name:  portFlag,
				Usage: "Port on which the server will listen (default: server.port from config)",
			},
			&urfave.StringFlag{
				Name:  addressFlag,
				Usage: "Interface on which the server will listen",
				Value: "127.0.0.1",
			},
			modelsDirOption(),
		},
	}
}

func cmdStartServer(ctx context.Context, cmd *urfave.Command) error {
	cfg := getConfig(cmd)

	s, err := newScorer(ctx, cfg, cmd.String(modelsDirFlag))
	if err != nil {
		return err
	}

	port := int(cmd.Int(portFlag))
	if port <= 0 {
		port = cfg.Config.Server.Port
	}
	address := fmt.Sprintf("%s:%d", cmd.String(addressFlag), port)

	srv := &http.Server{
		Addr:           address,
		Handler:        makeRouter(s),
		ReadTimeout:    serverTimeoutSeconds * time.Second,
		WriteTimeout:   serverTimeoutSeconds * time.Second,
		MaxHeaderBytes: 1 << serverMaxHeaderBytes,
	}

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	slog.Info("server started", "address", fmt.Sprintf("http://%s", address))

	select {
	case <-done:
	case <-ctx.Done():
	case err := <-errCh:
		return errors.Wrap(err, "error starting server")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), serverShutdownWaitSeconds*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("error shutting down server", "error", err)
	}
	slog.Info("server stopped")
	return nil
}

func makeRouter(s *scorer) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", healthAPIHandler())

	mux.HandleFunc("GET /api/questions", questionsAPIHandler(s))
	mux.HandleFunc("GET /api/questions/random", randomAnswersAPIHandler())
	mux.HandleFunc("POST /api/score", scoreAPIHandler(s))

	return mux
}
