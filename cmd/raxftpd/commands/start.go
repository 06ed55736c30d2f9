package commands

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/rakshithvk19/rax-ftp-server/internal/ftp"
	"github.com/rakshithvk19/rax-ftp-server/internal/ftp/channel"
	"github.com/rakshithvk19/rax-ftp-server/internal/logger"
	"github.com/rakshithvk19/rax-ftp-server/pkg/config"
	"github.com/rakshithvk19/rax-ftp-server/pkg/identity"
	"github.com/rakshithvk19/rax-ftp-server/pkg/metrics"
	promftp "github.com/rakshithvk19/rax-ftp-server/pkg/metrics/prometheus"
	"github.com/rakshithvk19/rax-ftp-server/pkg/server"
	"github.com/rakshithvk19/rax-ftp-server/pkg/storage"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the FTP server",
	Long: `Start the FTP server with the specified configuration.

Use --config to specify a custom configuration file, or it will use the
default location at $XDG_CONFIG_HOME/raxftp/config.yaml.

Examples:
  # Start with default config location
  raxftpd start

  # Start with custom config
  raxftpd start --config /etc/raxftp/config.yaml

  # Use environment variables to override config
  RAXFTP_LOGGING_LEVEL=DEBUG raxftpd start`,
	RunE: runStart,
}

func runStart(cmd *cobra.Command, args []string) error {
	cfg, err := config.MustLoad(GetConfigFile())
	if err != nil {
		return err
	}

	loggerCfg := logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	}
	if err := logger.Init(loggerCfg); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	logger.Info("Configuration loaded",
		"control_port", cfg.ControlPort,
		"data_ports", fmt.Sprintf("%d-%d", cfg.DataPortMin, cfg.DataPortMax),
		"server_root", cfg.ServerRoot,
		"max_clients", cfg.MaxClients)

	var ftpMetrics metrics.FTPMetrics
	if cfg.Metrics.Enabled {
		metrics.InitRegistry()
		ftpMetrics = promftp.NewFTPMetrics()

		metricsServer := metrics.NewHTTPServer(cfg.Metrics.Port)
		go func() {
			logger.Info("Metrics endpoint listening", "port", cfg.Metrics.Port)
			if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error("Metrics server failed", logger.KeyError, err)
			}
		}()
		defer metricsServer.Close()
	}

	users := make([]identity.User, 0, len(cfg.Users))
	for _, u := range cfg.Users {
		users = append(users, identity.User{
			Username:     u.Username,
			PasswordHash: u.PasswordHash,
			Password:     u.Password,
		})
	}
	store, err := identity.NewStore(users)
	if err != nil {
		return fmt.Errorf("loading users: %w", err)
	}

	root, err := storage.NewRoot(cfg.ServerRoot)
	if err != nil {
		return err
	}

	registry := channel.NewRegistry(cfg.BindAddress, cfg.DataPortMin, cfg.DataPortMax, ftpMetrics)

	handler := &ftp.Handler{
		Checker: store,
		Engine: &ftp.Engine{
			Root:        root,
			MaxFileSize: cfg.MaxFileSize.Bytes(),
			Metrics:     ftpMetrics,
		},
		Registry:      registry,
		MinClientPort: cfg.MinClientPort,
		DataTimeout:   cfg.ConnectionTimeout,
		Metrics:       ftpMetrics,
	}

	srv := server.New(server.Config{
		BindAddress:     cfg.BindAddress,
		Port:            cfg.ControlPort,
		MaxClients:      cfg.MaxClients,
		ShutdownTimeout: cfg.ConnectionTimeout,
		OnReject:        ftp.RejectBusy,
	}, handler, ftpMetrics)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("Shutdown signal received", "signal", sig.String())
		cancel()
	}()

	return srv.Serve(ctx)
}
