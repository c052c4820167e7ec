package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/go-weft/weft/cmd/weft/internal/config"
	"github.com/go-weft/weft/cmd/weft/internal/devserver"
	"github.com/go-weft/weft/cmd/weft/internal/watch"
	"github.com/go-weft/weft/pkg/logging"
)

var (
	devHost string
	devPort int
)

var devCmd = &cobra.Command{
	Use:   "dev",
	Short: "Watch, rebuild, and live-reload the project",
	Long: `Run the development loop from inside a weft project.

The loop watches Go sources for changes, runs the configured build
command after each quiet period, and pushes the outcome to browsers
connected to the reload websocket. Settings come from weft.yaml and
can be overridden with flags.`,
	Args: cobra.NoArgs,
	RunE: runDev,
}

func init() {
	rootCmd.AddCommand(devCmd)
	devCmd.Flags().StringVar(&devHost, "host", "", "bind address (default from weft.yaml)")
	devCmd.Flags().IntVar(&devPort, "port", 0, "listen port (default from weft.yaml)")
}

func runDev(cmd *cobra.Command, args []string) error {
	root, err := config.FindProjectRoot()
	if err != nil {
		return err
	}
	cfg, err := config.Resolve(root)
	if err != nil {
		return err
	}
	if devHost != "" {
		cfg.Host = devHost
	}
	if devPort != 0 {
		cfg.Port = devPort
	}

	log := logging.Logger("cli.dev")
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := devserver.New(cfg.AppName)
	addr := net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))
	httpSrv := &http.Server{Addr: addr, Handler: srv.Handler()}
	serveErr := make(chan error, 1)
	go func() {
		if err := httpSrv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	watcher, err := watch.New(cfg.Debounce, watch.GoFiles)
	if err != nil {
		return err
	}
	defer watcher.Close()
	if err := watcher.AddRecursive(root); err != nil {
		return err
	}
	go watcher.Run(ctx)

	fmt.Printf("weft dev for %s\n", cfg.AppName)
	fmt.Printf("  serving   http://%s\n", addr)
	fmt.Printf("  watching  %s\n", root)
	fmt.Printf("  build     %s\n", strings.Join(cfg.Build, " "))

	// Build once up front so the loop starts from a known state.
	runBuild(ctx, srv, cfg, log, nil)

	for {
		select {
		case <-ctx.Done():
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
			defer cancel()
			return httpSrv.Shutdown(shutdownCtx)
		case err := <-serveErr:
			return fmt.Errorf("dev server: %w", err)
		case paths := <-watcher.Batches():
			runBuild(ctx, srv, cfg, log, paths)
		}
	}
}

func runBuild(ctx context.Context, srv *devserver.Server, cfg *config.Resolved, log *slog.Logger, paths []string) {
	if ctx.Err() != nil {
		return
	}
	if len(paths) > 0 {
		log.Info("changes detected", "files", len(paths))
	}

	start := time.Now()
	build := exec.CommandContext(ctx, cfg.Build[0], cfg.Build[1:]...)
	build.Dir = cfg.Root
	out, err := build.CombinedOutput()
	if err != nil {
		log.Error("build failed", "error", err)
		if len(out) > 0 {
			fmt.Print(string(out))
		}
		srv.Broadcast(ctx, devserver.Event{Kind: "error", Detail: string(out)})
		return
	}

	log.Info("build succeeded", "elapsed", time.Since(start).Round(time.Millisecond))
	srv.Broadcast(ctx, devserver.Event{Kind: "reload"})
}
