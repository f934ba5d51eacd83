package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"syscall"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/ehr/clinic/internal/config"
	"github.com/ehr/clinic/internal/domain/clinic"
	"github.com/ehr/clinic/internal/platform/fhir"
	"github.com/ehr/clinic/internal/platform/metrics"
	"github.com/ehr/clinic/internal/platform/middleware"
	"github.com/ehr/clinic/internal/platform/seed"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "clinic-server",
		Short:        "Clinic records registry API server",
		SilenceUsage: true,
	}
	root.AddCommand(serveCmd())
	root.AddCommand(seedCmd())
	return root
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the clinic API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func seedCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Roster file tools",
	}

	checkCmd := &cobra.Command{
		Use:   "check",
		Short: "Load a roster into an empty registry and report what it holds",
		RunE: func(cmd *cobra.Command, args []string) error {
			file, _ := cmd.Flags().GetString("file")
			return checkRoster(cmd.OutOrStdout(), file)
		},
	}
	checkCmd.Flags().String("file", "", "path to the roster YAML file")
	_ = checkCmd.MarkFlagRequired("file")

	cmd.AddCommand(checkCmd)
	return cmd
}

func newLogger(cfg *config.Config) zerolog.Logger {
	var out io.Writer = os.Stdout
	if cfg.IsDev() {
		out = zerolog.ConsoleWriter{Out: os.Stdout}
	}
	return zerolog.New(out).Level(cfg.Level()).With().Timestamp().Logger()
}

func runServer() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	logger := newLogger(cfg)

	promReg := prometheus.NewRegistry()
	promReg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	opts := []clinic.Option{clinic.WithLogger(logger.With().Str("component", "registry").Logger())}
	if cfg.MetricsEnabled {
		opts = append(opts, clinic.WithMetrics(metrics.New(promReg)))
	}
	reg := clinic.NewRegistry(opts...)

	if cfg.SeedFile != "" {
		summary, err := seed.LoadInto(reg, cfg.SeedFile)
		if err != nil {
			return fmt.Errorf("seed %s: %w", cfg.SeedFile, err)
		}
		logger.Info().
			Str("file", cfg.SeedFile).
			Int("patients", summary.Patients).
			Int("doctors", summary.Doctors).
			Int("appointments", summary.Appointments).
			Msg("roster loaded")
	}

	e := newServer(cfg, logger, reg, promReg)

	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Msg("starting server")
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	logger.Info().Msg("server stopped")
	return nil
}

// newServer wires middleware and routes around reg. The /metrics endpoint is
// only mounted when metrics are enabled.
func newServer(cfg *config.Config, logger zerolog.Logger, reg *clinic.Registry, promReg *prometheus.Registry) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = fhir.ErrorHandler(logger)

	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(middleware.NoStore())
	e.Use(echomw.BodyLimit(cfg.BodyLimit))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete},
		AllowHeaders: []string{"Content-Type", middleware.RequestIDHeader},
	}))

	h := clinic.NewHandler(reg)
	h.RegisterRoutes(e.Group("/api/v1"), e.Group("/fhir"))
	e.GET("/health", h.Health)

	if cfg.MetricsEnabled {
		e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(promReg, promhttp.HandlerOpts{})))
	}

	return e
}

func checkRoster(out io.Writer, file string) error {
	reg := clinic.NewRegistry()
	if _, err := seed.LoadInto(reg, file); err != nil {
		return err
	}

	stats := reg.Stats()
	fmt.Fprintf(out, "patients:     %d\n", stats.Patients)
	fmt.Fprintf(out, "doctors:      %d\n", stats.Doctors)
	statuses := make([]string, 0, len(stats.Appointments))
	for s := range stats.Appointments {
		statuses = append(statuses, s)
	}
	sort.Strings(statuses)
	total := 0
	for _, s := range statuses {
		total += stats.Appointments[s]
	}
	fmt.Fprintf(out, "appointments: %d\n", total)
	for _, s := range statuses {
		fmt.Fprintf(out, "  %-10s %d\n", s, stats.Appointments[s])
	}
	return nil
}
