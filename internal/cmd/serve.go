package cmd

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/vanpelt/catnip-pty/internal/config"
	"github.com/vanpelt/catnip-pty/internal/handlers"
	"github.com/vanpelt/catnip-pty/internal/logger"
	"github.com/vanpelt/catnip-pty/internal/services"
)

var (
	configPath string
	listenAddr string
	devMode    bool
	accessLog  bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "🚀 Run the PTY host",
	Long: `# 🚀 Run the PTY Host

**Starts the HTTP and WebSocket server that owns the shell sessions.**

## 🔌 Endpoints

- **POST /v1/pty** - create a session
- **POST /v1/pty/:id/write** - send input
- **POST /v1/pty/:id/resize** - change the window size
- **DELETE /v1/pty/:id** - close a session
- **GET /v1/pty/:id/stream** - WebSocket output stream
- **GET /v1/events** - lifecycle events (SSE)
- **GET /health**, **GET /metrics**

## 🔧 Configuration

Settings are read from **$XDG_CONFIG_HOME/catnip-pty/config.yaml** and
**CATNIP_PTY_*** environment variables. The log level and coalesce window
are reloaded when the file changes.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVarP(&configPath, "config", "c", "", "path to config file")
	serveCmd.Flags().StringVar(&listenAddr, "addr", "", "listen address (overrides config)")
	serveCmd.Flags().BoolVar(&devMode, "dev", false, "human-readable logs")
	serveCmd.Flags().BoolVar(&accessLog, "access-log", false, "log HTTP requests to stdout")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	path := configPath
	if path == "" {
		path = config.DefaultConfigPath()
	}

	cfg, err := config.Load(path)
	if err != nil {
		return err
	}
	if listenAddr != "" {
		cfg.Server.Addr = listenAddr
	}
	if devMode {
		cfg.Logging.Dev = true
	}

	logger.Configure(logger.ParseLevel(cfg.Logging.Level), cfg.Logging.Dev)

	launcher := services.NewShellLauncher(cfg.PTY.DefaultShell, cfg.PTY.TermProgram)
	launcher.ExtraDenylist = cfg.PTY.ExtraDenylist
	launcher.ExtraDenyPrefixes = cfg.PTY.ExtraDenyPrefixes

	svc := services.NewPTYService(launcher, services.OptionsFromConfig(cfg.PTY))

	var access io.Writer
	if accessLog || cfg.Logging.Dev {
		access = os.Stdout
	}
	app := handlers.NewApp(handlers.AppConfig{
		Service:      svc,
		StreamBuffer: cfg.Server.StreamBuffer,
		AuthToken:    cfg.Server.AuthToken,
		AccessLog:    access,
	})

	if path != "" {
		watcher, err := config.NewWatcher(path, cfg, func(next *config.Config) {
			logger.SetLevel(logger.ParseLevel(next.Logging.Level))
			svc.SetCoalesceWindow(next.PTY.CoalesceWindow)
		})
		if err != nil {
			logger.Debugf("Config watching disabled for %s: %v", path, err)
		} else {
			defer watcher.Close()
		}
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	errCh := make(chan error, 1)
	go func() {
		errCh <- app.Listen(cfg.Server.Addr)
	}()

	logger.Infof("🐱 catnip-pty %s listening on %s", GetVersion(), cfg.Server.Addr)
	if cfg.Server.AuthToken == "" {
		logger.Warn("⚠️ No auth token configured, /v1 is open to anyone who can reach " + cfg.Server.Addr)
	}

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("failed to listen on %s: %w", cfg.Server.Addr, err)
		}
		return nil
	case sig := <-sigChan:
		logger.Infof("🛑 Received %s, shutting down", sig)
	}

	if err := shutdownHost(app, svc, 2*cfg.PTY.KillGrace); err != nil {
		logger.Errorf("❌ Server shutdown: %v", err)
	}
	return nil
}

// shutdownHost releases output streams first so coalescers blocked on an
// unread stream can finish, then closes every session and the server.
func shutdownHost(app *handlers.App, svc *services.PTYService, sessionTimeout time.Duration) error {
	app.PTY.Shutdown()
	svc.Shutdown(sessionTimeout)
	app.Close()
	return app.ShutdownWithTimeout(5 * time.Second)
}
