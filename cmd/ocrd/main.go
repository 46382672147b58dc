package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"ocrd/internal/common/fsutil"
	"ocrd/internal/config"
	"ocrd/internal/engine"
	"ocrd/internal/httpapi"
	"ocrd/internal/manager"
)

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

type serveOptions struct {
	addr            string
	configPath      string
	modelName       string
	cacheDir        string
	outputDir       string
	logLevel        string
	monitorInterval time.Duration
}

func main() {
	opts := &serveOptions{}

	root := &cobra.Command{
		Use:           "ocrd",
		Short:         "OCR model serving daemon",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(opts)
		},
	}
	root.Flags().StringVar(&opts.addr, "addr", envOr("OCRD_ADDR", ":5000"), "HTTP listen address, e.g. :5000")
	root.Flags().StringVar(&opts.configPath, "config", envOr("OCRD_CONFIG", ""), "Optional config file (yaml/json/toml)")
	root.Flags().StringVar(&opts.modelName, "model", envOr("OCRD_MODEL", "deepseek-ai/DeepSeek-OCR"), "Model identifier reported by the API")
	root.Flags().StringVar(&opts.cacheDir, "cache-dir", envOr("OCRD_CACHE_DIR", "~/.cache/ocrd/models"), "Directory model files are downloaded into")
	root.Flags().StringVar(&opts.outputDir, "output-dir", envOr("OCRD_OUTPUT_DIR", "~/.cache/ocrd/outputs"), "Directory inference results are written to")
	root.Flags().StringVar(&opts.logLevel, "log-level", envOr("OCRD_LOG_LEVEL", "info"), "Log level: debug|info|warn|error")

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "ocrd: %v\n", err)
		os.Exit(1)
	}
}

func runServe(opts *serveOptions) error {
	// File values fill in anything the flags left at defaults.
	if opts.configPath != "" {
		fileCfg, err := config.Load(opts.configPath)
		if err != nil {
			return fmt.Errorf("load config %s: %w", opts.configPath, err)
		}
		if fileCfg.Addr != "" {
			opts.addr = fileCfg.Addr
		}
		if fileCfg.ModelName != "" {
			opts.modelName = fileCfg.ModelName
		}
		if fileCfg.CacheDir != "" {
			opts.cacheDir = fileCfg.CacheDir
		}
		if fileCfg.OutputDir != "" {
			opts.outputDir = fileCfg.OutputDir
		}
		if fileCfg.LogLevel != "" {
			opts.logLevel = fileCfg.LogLevel
		}
		if fileCfg.MonitorIntervalSec > 0 {
			opts.monitorInterval = time.Duration(fileCfg.MonitorIntervalSec) * time.Second
		}
		if len(fileCfg.CORSOrigins) > 0 {
			httpapi.SetCORSOptions(true, fileCfg.CORSOrigins,
				[]string{"GET", "POST", "OPTIONS"},
				[]string{"Accept", "Content-Type", "X-Log-Level"})
		}
		if fileCfg.MaxUploadMB > 0 {
			httpapi.SetMaxUploadBytes(int64(fileCfg.MaxUploadMB) << 20)
		}
	}

	lvl, err := zerolog.ParseLevel(opts.logLevel)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	log := zerolog.New(os.Stderr).Level(lvl).With().Timestamp().Logger()
	httpapi.SetLogger(log)

	cacheDir, err := fsutil.ExpandHome(opts.cacheDir)
	if err != nil {
		return fmt.Errorf("expand cache dir: %w", err)
	}
	outputDir, err := fsutil.ExpandHome(opts.outputDir)
	if err != nil {
		return fmt.Errorf("expand output dir: %w", err)
	}
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	mgr := manager.NewWithConfig(engine.NewTesseractEngine(), manager.ManagerConfig{
		ModelName:       opts.modelName,
		CacheDir:        cacheDir,
		OutputDir:       outputDir,
		MonitorInterval: opts.monitorInterval,
		Logger:          log,
	})

	srv := &http.Server{
		Addr:              opts.addr,
		Handler:           httpapi.NewMux(mgr),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", opts.addr).Str("model", opts.modelName).Str("cache_dir", cacheDir).
			Bool("engine_built", engine.Built()).Msg("ocrd listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	// Graceful shutdown (Ctrl+C / SIGTERM)
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return err
	case sig := <-stop:
		log.Info().Str("signal", sig.String()).Msg("shutting down")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Warn().Err(err).Msg("graceful shutdown error")
	}
	return nil
}
