package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"banksim/internal/config"
	"banksim/internal/controller"
	"banksim/internal/metrics"
)

const (
	ExitSuccess = 0
	ExitError   = 2
)

func main() {
	configPath := flag.String("config", "", "path to YAML config file (optional)")
	envFile := flag.String("env-file", ".env", "dotenv file with BANKSIM_* overrides (ignored if missing)")
	banks := flag.Int("banks", 0, "number of banks")
	workers := flag.Int("workers", 0, "number of workers")
	spenders := flag.Int("spenders", 0, "number of spenders")
	duration := flag.Duration("duration", 0, "working day duration")
	seed := flag.Int64("seed", 0, "random seed for amounts and bank assignment")
	reportInterval := flag.Duration("report-interval", 0, "print live progress every interval (0 = off)")
	output := flag.String("output", "text", "output format: text, json")
	metricsAddr := flag.String("metrics-addr", "", "serve Prometheus metrics on this address")
	logLevel := flag.String("log-level", "", "log level: debug, info, warn, error")
	flag.Parse()

	if *output != "text" && *output != "json" {
		fmt.Fprintf(os.Stderr, "error: --output must be 'text' or 'json', got %q\n", *output)
		os.Exit(ExitError)
	}

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.LoadConfig(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(ExitError)
		}
		cfg = loaded
	}
	if err := config.LoadDotEnv(*envFile); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(ExitError)
	}
	if err := config.ApplyEnv(&cfg, os.LookupEnv); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(ExitError)
	}

	// CLI flags override file and environment, but only when given
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "banks":
			cfg.Banks = *banks
		case "workers":
			cfg.Workers = *workers
		case "spenders":
			cfg.Spenders = *spenders
		case "duration":
			cfg.WorkingDuration = *duration
		case "seed":
			cfg.Seed = *seed
		case "report-interval":
			cfg.ReportInterval = *reportInterval
		case "metrics-addr":
			cfg.MetricsAddr = *metricsAddr
		case "log-level":
			cfg.LogLevel = *logLevel
		}
	})

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(ExitError)
	}

	log := newLogger(cfg.LogLevel)
	recorder := metrics.NewRecorder()
	if cfg.MetricsAddr != "" {
		srv := serveMetrics(cfg.MetricsAddr, recorder, log)
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			_ = srv.Shutdown(ctx)
		}()
	}

	opts := []controller.Option{
		controller.WithLogger(log),
		controller.WithMetrics(recorder),
	}
	if *output == "text" {
		opts = append(opts, controller.WithOutput(os.Stdout))
	}
	ctrl := controller.New(cfg, opts...)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Fprintln(os.Stderr, "\nReceived interrupt signal, ending the working day...")
		cancel()
	}()

	log.WithFields(logrus.Fields{
		"banks":    cfg.Banks,
		"workers":  cfg.Workers,
		"spenders": cfg.Spenders,
		"duration": cfg.WorkingDuration,
		"seed":     cfg.Seed,
	}).Info("banksim starting")

	if err := ctrl.Run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(ExitError)
	}

	for _, b := range ctrl.Directory().Banks() {
		log.WithFields(logrus.Fields{"bank": b.Name(), "id": b.ID(), "balance": b.Balance().String()}).
			Debug("closing balance")
	}
	entry := log.WithFields(logrus.Fields{"run": ctrl.RunID(), "phase": ctrl.Phase().String()})
	if ctrl.Interrupted() {
		entry.Warn("working day was cut short, report is best-effort")
	} else {
		entry.Info("working day complete")
	}

	if *output == "json" {
		if err := ctrl.Media().PrintJSON(os.Stdout); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(ExitError)
		}
	}
}

func newLogger(level string) *logrus.Logger {
	log := logrus.New()
	log.SetOutput(os.Stderr)
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	log.SetLevel(lvl)
	return log
}

func serveMetrics(addr string, recorder *metrics.Recorder, log logrus.FieldLogger) *http.Server {
	srv := &http.Server{
		Addr:              addr,
		Handler:           recorder.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Error("metrics listener failed")
		}
	}()
	log.WithField("addr", addr).Info("serving metrics")
	return srv
}
