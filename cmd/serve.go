package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/josephgoksu/concierge/internal/server"
	"github.com/josephgoksu/concierge/internal/ui"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the task backend",
	Long: `Run the HTTP task backend over the local SQLite store.

New tasks appear in the task list only after storage.listingLag, the way the
production list endpoint trails task creation.

Examples:
  concierge serve
  concierge serve --addr 0.0.0.0:8086`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().String("addr", "", "listen address (default server.addr)")
	_ = viper.BindPFlag("server.addr", serveCmd.Flags().Lookup("addr"))
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	a := current
	out := cmd.OutOrStdout()

	store, err := openLocalStore(a)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()
	cat, err := openCatalog(ctx, a)
	if err != nil {
		return err
	}
	defer cat.Stop()

	srv := server.New(server.Config{
		Addr:           a.cfg.Server.Addr,
		AllowedOrigins: a.cfg.Server.AllowedOrigins,
		Version:        GetVersion(),
	}, store, cat, a.log)

	ui.RenderPageHeader(out, "Concierge task backend", "")
	fmt.Fprintf(out, "  API:     http://%s/api\n", a.cfg.Server.Addr)
	fmt.Fprintf(out, "  Storage: %s\n\n", store.Path())

	var wg sync.WaitGroup
	errChan := make(chan error, 1)
	srv.Start(&wg, errChan)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	var runErr error
	select {
	case sig := <-sigChan:
		fmt.Fprintf(out, "\nReceived %v, shutting down...\n", sig)
	case runErr = <-errChan:
	case <-ctx.Done():
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.log.Warn("server shutdown", "error", err)
	}
	wg.Wait()
	return runErr
}
