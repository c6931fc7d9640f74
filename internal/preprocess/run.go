// Package preprocess drives the single linear pipeline run: download,
// load, transform, split, write, publish.
package preprocess

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/featurelabs/abalone-preprocess/internal/config"
	"github.com/featurelabs/abalone-preprocess/internal/dataset"
	"github.com/featurelabs/abalone-preprocess/internal/metrics"
	"github.com/featurelabs/abalone-preprocess/internal/pipeline"
	"github.com/featurelabs/abalone-preprocess/internal/schema"
	"github.com/featurelabs/abalone-preprocess/internal/split"
	"github.com/featurelabs/abalone-preprocess/internal/storage"
	"github.com/featurelabs/abalone-preprocess/internal/transform"
)

// ObjectDownloader fetches the raw dataset object to a local file.
type ObjectDownloader interface {
	Download(ctx context.Context, bucket, key, destPath string) (int64, error)
}

// RecordPublisher registers the feature group and ingests the run record.
type RecordPublisher interface {
	Publish(ctx context.Context, s schema.Schema, rawValues []string) error
}

// Runner owns one preprocessing run.
type Runner struct {
	cfg        *config.Config
	log        *slog.Logger
	schema     schema.Schema
	downloader ObjectDownloader
	publisher  RecordPublisher
	splitter   *split.Splitter
}

// New builds a Runner. A nil publisher skips the feature-store stage.
func New(cfg *config.Config, downloader ObjectDownloader, publisher RecordPublisher, log *slog.Logger) *Runner {
	splitter := split.New()
	splitter.TrainRatio = cfg.Processing.TrainRatio
	splitter.ValidationRatio = cfg.Processing.ValidationRatio

	return &Runner{
		cfg:        cfg,
		log:        log,
		schema:     schema.Abalone(),
		downloader: downloader,
		publisher:  publisher,
		splitter:   splitter,
	}
}

// Run executes the pipeline against the given s3://bucket/key input path.
// Any step failure aborts the run; partially written outputs are left in
// place.
func (r *Runner) Run(ctx context.Context, inputData string) error {
	if err := r.run(ctx, inputData); err != nil {
		metrics.StepFailuresTotal.WithLabelValues(string(pipeline.TypeOf(err))).Inc()
		return err
	}
	return nil
}

func (r *Runner) run(ctx context.Context, inputData string) error {
	bucket, key, err := storage.ParseURI(inputData)
	if err != nil {
		return pipeline.NewDownloadError("parse_input_path", "invalid input data path", err)
	}

	baseDir := r.cfg.Processing.BaseDir
	stagingPath := filepath.Join(baseDir, "data", "abalone-dataset.csv")

	stepStart := time.Now()
	written, err := r.downloader.Download(ctx, bucket, key, stagingPath)
	if err != nil {
		return err
	}
	metrics.DownloadBytes.Set(float64(written))
	metrics.StepDurationSeconds.WithLabelValues("download").Set(time.Since(stepStart).Seconds())

	table, err := dataset.Load(r.log, stagingPath, r.schema)
	if err != nil {
		return err
	}
	if removeErr := os.Remove(stagingPath); removeErr != nil {
		r.log.Warn("Failed to remove staging file", slog.String("path", stagingPath), slog.Any("error", removeErr))
	}
	metrics.RowsLoaded.Set(float64(table.NumRows()))

	// The publisher record is built from raw values, so capture them
	// before the transform runs.
	var rawValues []string
	if r.publisher != nil {
		rawValues, err = table.FeatureValues(0)
		if err != nil {
			return pipeline.NewTransformError("capture_record", "dataset has no rows to publish", err)
		}
	}

	stepStart = time.Now()
	ft := transform.New(r.schema)
	matrix, err := ft.FitTransform(r.log, table)
	if err != nil {
		return err
	}
	metrics.StepDurationSeconds.WithLabelValues("transform").Set(time.Since(stepStart).Seconds())

	result, err := r.splitter.Split(r.log, matrix)
	if err != nil {
		return pipeline.NewTransformError("split_rows", "failed to partition rows", err)
	}

	partitions := []struct {
		name string
		rows [][]float64
	}{
		{"train", result.Train},
		{"validation", result.Validation},
		{"test", result.Test},
	}
	for _, p := range partitions {
		path := filepath.Join(baseDir, p.name, p.name+".csv")
		if err := dataset.WriteMatrix(r.log, path, p.rows); err != nil {
			return err
		}
		metrics.PartitionRows.WithLabelValues(p.name).Set(float64(len(p.rows)))
	}

	if r.publisher == nil {
		r.log.Info("Feature store publishing disabled, run complete")
		return nil
	}

	stepStart = time.Now()
	if err := r.publisher.Publish(ctx, r.schema, rawValues); err != nil {
		return err
	}
	metrics.StepDurationSeconds.WithLabelValues("publish").Set(time.Since(stepStart).Seconds())

	r.log.Info("Preprocessing run complete",
		slog.Int("rows", table.NumRows()),
		slog.Int("columns", ft.OutputWidth()))
	return nil
}
