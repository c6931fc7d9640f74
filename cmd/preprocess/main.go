package main

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sagemaker"
	"github.com/aws/aws-sdk-go-v2/service/sagemakerfeaturestoreruntime"
	"github.com/jonboulle/clockwork"
	"github.com/lmittmann/tint"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/featurelabs/abalone-preprocess/internal/config"
	"github.com/featurelabs/abalone-preprocess/internal/featurestore"
	"github.com/featurelabs/abalone-preprocess/internal/metrics"
	"github.com/featurelabs/abalone-preprocess/internal/preprocess"
	"github.com/featurelabs/abalone-preprocess/internal/storage"
)

var (
	configPath string
	inputData  string
	baseDir    string
	region     string
	verbose    bool

	// Set by LDFLAGS
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var rootCmd = &cobra.Command{
	Use:   "abalone-preprocess",
	Short: "Abalone dataset preprocessing step",
	Long: `abalone-preprocess downloads the abalone dataset from S3, applies the
feature-engineering pipeline, writes train/validation/test partitions,
and publishes the run record to the SageMaker feature store.`,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("abalone-preprocess %s (commit: %s, built: %s)\n", version, commit, date)
	},
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the preprocessing pipeline once",
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true

		log := newLogger(verbose)
		log.Info("Operation started: preprocess_run",
			slog.String("input_data", inputData),
			slog.String("version", version))

		cfg, err := config.Load(configPath)
		if err != nil {
			log.Error("Operation failed: load_config", slog.Any("error", err))
			return err
		}
		cfg.ApplyOverrides(&region, &baseDir)
		if err := cfg.Validate(); err != nil {
			log.Error("Operation failed: validate_config", slog.Any("error", err))
			return err
		}

		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer cancel()

		if cfg.Metrics.Addr != "" {
			metrics.BuildInfo.WithLabelValues(version, commit, date).Set(1)
			go serveMetrics(log, cfg.Metrics.Addr)
		}

		downloader, err := storage.New(ctx, storage.Options{
			Region:          cfg.AWS.Region,
			AccessKeyID:     cfg.AWS.AccessKeyID,
			SecretAccessKey: cfg.AWS.SecretAccessKey,
			EndpointURL:     endpointOrEmpty(cfg),
			MaxAttempts:     cfg.Processing.DownloadMaxAttempts,
		}, log)
		if err != nil {
			log.Error("Operation failed: new_downloader", slog.Any("error", err))
			return err
		}

		var publisher preprocess.RecordPublisher
		if cfg.FeatureStore.Enabled {
			publisher, err = newPublisher(ctx, cfg, log)
			if err != nil {
				log.Error("Operation failed: new_publisher", slog.Any("error", err))
				return err
			}
		}

		runner := preprocess.New(cfg, downloader, publisher, log)
		if err := runner.Run(ctx, inputData); err != nil {
			log.Error("Operation failed: preprocess_run", slog.Any("error", err))
			return err
		}

		log.Info("Operation completed: preprocess_run")
		return nil
	},
}

func newPublisher(ctx context.Context, cfg *config.Config, log *slog.Logger) (*featurestore.Publisher, error) {
	loadOpts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.AWS.Region),
	}
	if cfg.AWS.AccessKeyID != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AWS.AccessKeyID, cfg.AWS.SecretAccessKey, ""),
		))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	registry := sagemaker.NewFromConfig(awsCfg)
	ingest := sagemakerfeaturestoreruntime.NewFromConfig(awsCfg)

	return featurestore.New(registry, ingest, clockwork.NewRealClock(), featurestore.Options{
		GroupName:             cfg.FeatureStore.GroupName,
		RecordIdentifierField: cfg.FeatureStore.RecordIdentifierField,
		EventTimeField:        cfg.FeatureStore.EventTimeField,
		Description:           cfg.FeatureStore.Description,
		RoleARN:               cfg.FeatureStore.RoleARN,
		OfflineStoreS3URI:     cfg.FeatureStore.OfflineStoreS3URI,
		ReadinessTimeout:      cfg.FeatureStore.ReadinessTimeout.Std(),
		ReadinessPollInterval: cfg.FeatureStore.ReadinessPollInterval.Std(),
	}, log), nil
}

func serveMetrics(log *slog.Logger, addr string) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		log.Error("Failed to start metrics listener", slog.Any("error", err))
		return
	}
	log.Info("Metrics server listening", slog.String("address", listener.Addr().String()))
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	if err := http.Serve(listener, mux); err != nil {
		log.Error("Metrics server error", slog.Any("error", err))
	}
}

func newLogger(verbose bool) *slog.Logger {
	logLevel := slog.LevelInfo
	if verbose {
		logLevel = slog.LevelDebug
	}
	return slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level: logLevel,
	}))
}

func endpointOrEmpty(cfg *config.Config) string {
	if cfg.AWS.EndpointURL == nil {
		return ""
	}
	return *cfg.AWS.EndpointURL
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to TOML configuration file")
	rootCmd.PersistentFlags().StringVar(&region, "region", "", "AWS region (overrides config file)")
	rootCmd.PersistentFlags().StringVar(&baseDir, "base-dir", "", "Base processing directory (overrides config file)")
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "Enable verbose logging")

	runCmd.Flags().StringVar(&inputData, "input-data", "", "Input dataset path of the form s3://bucket/key (required)")
	_ = runCmd.MarkFlagRequired("input-data")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
