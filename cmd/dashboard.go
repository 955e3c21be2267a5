package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"camtrap-cli/internal/client"
	"camtrap-cli/internal/config"
	"camtrap-cli/internal/mqttlive"
	"camtrap-cli/internal/render"
	"camtrap-cli/internal/viewsync"
)

var (
	dashLive        bool
	dashTicker      time.Duration
	dashMetricsAddr string
)

var dashboardCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Show the monitoring dashboard",
	Long: `Draws the KPIs, map, charts, detection table and latest-records ticker.

Without --live or --ticker the dashboard is drawn once. With --live every
server notification redraws it; with --ticker the latest records are polled on
that interval. Both keep running until interrupted.`,
	Example: `  camtrap-cli dashboard --species jaguar
  camtrap-cli dashboard --live --ticker 10s`,
	Run: func(cmd *cobra.Command, args []string) {
		api, settings := setupClient()
		logger := newLogger(settings)

		filter, err := buildFilter()
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		// Live dashboards poll the latest records too unless told otherwise
		if dashLive && !cmd.Flags().Changed("ticker") {
			dashTicker = settings.TickerInterval
		}

		screen := render.NewScreen(settings.TickerSize)
		follow := dashLive || dashTicker > 0

		// Views may change from several goroutines; draw one frame at a time
		var drawMu sync.Mutex
		redraw := func() {
			drawMu.Lock()
			defer drawMu.Unlock()
			if err := screen.Draw(os.Stdout, true); err != nil {
				logger.Error("failed to draw dashboard", "error", err)
			}
		}

		opts := viewsync.Options{
			Renderers: []viewsync.Renderer{screen.KPI, screen.Map, screen.Charts, screen.Table},
			Ticker:    screen.Ticker,
			Banner:    screen.Banner,
			Reconnect: viewsync.ReconnectPolicy{
				InitialInterval: time.Second,
				MaxInterval:     settings.LiveMaxBackoff,
				MaxElapsed:      settings.LiveMaxElapsed,
			},
			Logger: logger,
		}
		if follow {
			opts.OnChange = redraw
		}
		if dashLive {
			opts.Subscriber, err = liveSubscriber(api, settings)
			if err != nil {
				fail("configuring live updates", err)
			}
		}
		if dashMetricsAddr != "" {
			registry := prometheus.NewRegistry()
			opts.Registerer = registry
			serveMetrics(ctx, dashMetricsAddr, registry, logger)
		}

		syncer, err := viewsync.New(api, opts)
		if err != nil {
			fail("starting dashboard", err)
		}
		defer syncer.Close()

		if _, err := syncer.Refresh(ctx, filter); err != nil && !follow {
			// The banner already carries the message for followers
			fail("loading dashboard", err)
		}

		if !follow {
			if err := screen.Draw(os.Stdout, false); err != nil {
				fail("drawing dashboard", err)
			}
			return
		}

		if dashTicker > 0 {
			if _, err := syncer.PollLastN(ctx, dashTicker); err != nil {
				fail("starting ticker", err)
			}
		}
		if dashLive {
			if err := syncer.SetLive(ctx, true); err != nil {
				// Keep polling and manual redraws; the banner shows why live is off
				logger.Warn("live updates unavailable", "error", err)
			}
		}
		redraw()

		<-ctx.Done()
		fmt.Println("\nStopping dashboard...")
	},
}

// liveSubscriber picks the notification transport from live.transport.
func liveSubscriber(api *client.CamtrapClient, settings config.Settings) (viewsync.Subscriber, error) {
	switch settings.LiveTransport {
	case "mqtt":
		sub, err := mqttlive.New(mqttlive.Config{
			Broker:   settings.MQTTBroker,
			Topic:    settings.MQTTTopic,
			ClientID: settings.MQTTClientID,
			Username: settings.MQTTUsername,
			Password: settings.MQTTPassword,
		})
		if err != nil {
			return nil, err
		}
		return viewsync.SubscriberFunc(func(ctx context.Context) (viewsync.Subscription, error) {
			s, err := sub.Subscribe(ctx)
			if err != nil {
				return nil, err
			}
			return s, nil
		}), nil
	default:
		return viewsync.SubscriberFunc(func(ctx context.Context) (viewsync.Subscription, error) {
			s, err := api.Subscribe(ctx)
			if err != nil {
				return nil, err
			}
			return s, nil
		}), nil
	}
}

// serveMetrics exposes the synchronizer's metrics until ctx is done.
func serveMetrics(ctx context.Context, addr string, registry *prometheus.Registry, logger *slog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	server := &http.Server{Addr: addr, Handler: mux}

	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", "addr", addr, "error", err)
		}
	}()
	context.AfterFunc(ctx, func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	})
}

func init() {
	rootCmd.AddCommand(dashboardCmd)

	dashboardCmd.Flags().StringVar(&filterStart, "start", "", "First day, YYYY-MM-DD")
	dashboardCmd.Flags().StringVar(&filterEnd, "end", "", "Last day, YYYY-MM-DD")
	dashboardCmd.Flags().StringVar(&filterSince, "since", "", "Only the last duration (e.g. 24h), overrides --start")
	dashboardCmd.Flags().StringVar(&filterSpecies, "species", "", "Species id (e.g. jaguar)")
	dashboardCmd.Flags().BoolVar(&dashLive, "live", false, "Redraw on every server notification")
	dashboardCmd.Flags().DurationVar(&dashTicker, "ticker", 0, "Poll the latest records on this interval (default ticker.interval with --live)")
	dashboardCmd.Flags().StringVar(&dashMetricsAddr, "metrics-addr", "", "Expose refresh metrics on this address (e.g. :9101)")
}
