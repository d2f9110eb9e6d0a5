package commands

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/quantfold/momo/internal/api"
)

var apiPort string

var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "Start the read-only API server",
	Long: `Starts the HTTP API.

Endpoints:
  GET /health
  GET /api/rankings/{cohort}    - latest (or ?period=YYYY-MM-DD) snapshots
  GET /api/ledger/stocks        - full stock ledger
  GET /api/ledger/options       - full option ledger
  GET /api/performance          - aggregate metrics`,
	RunE: runAPIServer,
}

func init() {
	rootCmd.AddCommand(apiCmd)
	apiCmd.Flags().StringVar(&apiPort, "port", "", "listen port (default from config)")
}

func runAPIServer(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	if apiPort != "" {
		a.cfg.Port = apiPort
	}

	handler := api.NewHandler(a.rankRepo, a.ledgerRepo, a.log)
	server := api.New(a.cfg, a.log, api.NewRouter(handler, a.log))

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case <-quit:
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(ctx)
}
