package cmd

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/kardianos/service"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"camtrap-cli/internal/client"
	"camtrap-cli/internal/config"
	"camtrap-cli/internal/exporter"
	"camtrap-cli/internal/render"
)

// Variables to hold flag values
var (
	expHost       string
	expPort       string
	serviceAction string // "install", "uninstall", "start", "stop"
)

// --- SERVICE WRAPPER ---

// program implements the kardianos/service interface
type program struct {
	server *http.Server
	api    *client.CamtrapClient
	logger *slog.Logger
}

func (p *program) Start(s service.Service) error {
	// Start should not block. Do the actual work async.
	go p.run()
	return nil
}

func (p *program) run() {
	registry := prometheus.NewRegistry()
	registry.MustRegister(exporter.NewCollector(p.api, render.SpeciesLabel, p.logger))

	handler := promhttp.HandlerFor(registry, promhttp.HandlerOpts{
		ErrorLog: slog.NewLogLogger(p.logger.Handler(), slog.LevelError),
	})

	mux := http.NewServeMux()
	mux.Handle("/metrics", handler)

	addr := fmt.Sprintf(":%s", expPort)
	p.server = &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	p.logger.Info("camtrap exporter listening", "addr", addr, "server", p.api.Config.BaseURL)

	// Blocking call to listen
	if err := p.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		p.logger.Error("HTTP server error", "error", err)
	}
}

func (p *program) Stop(s service.Service) error {
	// Stop shuts the HTTP server down, which ends run.
	p.logger.Info("stopping service")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if p.server != nil {
		if err := p.server.Shutdown(ctx); err != nil {
			p.logger.Warn("server forced to shutdown", "error", err)
		}
	}
	return nil
}

// --- COMMAND ---

var exporterCmd = &cobra.Command{
	Use:   "exporter",
	Short: "Start Prometheus Exporter service",
	Long: `Starts a long-running HTTP server that exposes the monitoring server's
KPIs and per-species counts. Can be installed as a system service.`,
	Run: func(cmd *cobra.Command, args []string) {
		// 1. Resolve the server: flag first, then the saved connection
		settings, err := config.Load()
		if expHost != "" {
			settings.BaseURL = strings.TrimRight(expHost, "/")
		} else if err != nil {
			log.Fatalf("Error: %v", err)
		}
		logger := newLogger(settings)

		// 2. Define Service Configuration
		svcConfig := &service.Config{
			Name:        "camtrap-exporter",
			DisplayName: "Camera Trap Prometheus Exporter",
			Description: "Exposes camera-trap detection metrics to Prometheus",
			// Arguments passed to the binary when run as a service
			Arguments: []string{
				"exporter",
				"--host", settings.BaseURL,
				"--port", expPort,
			},
		}

		prg := &program{
			api:    client.New(client.ClientConfig{BaseURL: settings.BaseURL, Timeout: settings.Timeout}),
			logger: logger,
		}

		s, err := service.New(prg, svcConfig)
		if err != nil {
			log.Fatal(err)
		}

		// 3. Handle Service Control Actions (Install, Start, Stop, Uninstall)
		if serviceAction != "" {
			if serviceAction == "install" && settings.BaseURL == "" {
				log.Fatal("Error: You must provide --host or run 'camtrap-cli connect' before installing the service.")
			}

			err = service.Control(s, serviceAction)
			if err != nil {
				log.Fatalf("Failed to %s service: %v", serviceAction, err)
			}
			fmt.Printf("Service action '%s' completed successfully.\n", serviceAction)
			return
		}

		// 4. Run the Service (Blocking)
		// This happens when the Service Manager starts the binary, OR when run interactively without flags
		svcLogger, err := s.Logger(nil)
		if err != nil {
			log.Fatal(err)
		}
		if err = s.Run(); err != nil {
			_ = svcLogger.Error(err)
		}
	},
}

func init() {
	rootCmd.AddCommand(exporterCmd)
	exporterCmd.Flags().StringVar(&expHost, "host", "", "Server base URL (default: the connected server)")
	exporterCmd.Flags().StringVar(&expPort, "port", "9100", "Port to listen on")
	exporterCmd.Flags().StringVar(&serviceAction, "service", "", "Service action: install, uninstall, start, stop")
}
