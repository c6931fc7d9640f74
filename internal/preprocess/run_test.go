package preprocess

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/featurelabs/abalone-preprocess/internal/config"
	"github.com/featurelabs/abalone-preprocess/internal/pipeline"
	"github.com/featurelabs/abalone-preprocess/internal/schema"
)

type fakeDownloader struct {
	content string
	err     error
}

func (f *fakeDownloader) Download(_ context.Context, bucket, key, destPath string) (int64, error) {
	if f.err != nil {
		return 0, f.err
	}
	if err := os.MkdirAll(filepath.Dir(destPath), 0755); err != nil {
		return 0, err
	}
	if err := os.WriteFile(destPath, []byte(f.content), 0644); err != nil {
		return 0, err
	}
	return int64(len(f.content)), nil
}

type fakePublisher struct {
	schema    schema.Schema
	rawValues []string
	calls     int
	err       error
}

func (f *fakePublisher) Publish(_ context.Context, s schema.Schema, rawValues []string) error {
	f.calls++
	f.schema = s
	f.rawValues = rawValues
	return f.err
}

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// tenRows is a 10-row abalone dataset with sex over {M,F,I} and no
// missing values.
func tenRows() string {
	rows := []string{
		"M,0.455,0.365,0.095,0.514,0.2245,0.101,0.15,15",
		"F,0.53,0.42,0.135,0.677,0.2565,0.1415,0.21,9",
		"I,0.44,0.365,0.125,0.516,0.2155,0.114,0.155,10",
		"M,0.33,0.255,0.08,0.205,0.0895,0.0395,0.055,7",
		"F,0.425,0.3,0.095,0.3515,0.141,0.0775,0.12,8",
		"I,0.53,0.415,0.15,0.7775,0.237,0.1415,0.33,20",
		"M,0.545,0.425,0.125,0.768,0.294,0.1495,0.26,16",
		"F,0.475,0.37,0.125,0.5095,0.2165,0.1125,0.165,9",
		"I,0.55,0.44,0.15,0.8945,0.3145,0.151,0.32,19",
		"M,0.525,0.38,0.14,0.6065,0.194,0.1475,0.21,14",
	}
	return strings.Join(rows, "\n") + "\n"
}

func testConfig(t *testing.T) *config.Config {
	cfg := config.DefaultConfig()
	cfg.Processing.BaseDir = t.TempDir()
	return cfg
}

func countCSVRows(t *testing.T, path string) int {
	t.Helper()
	content, err := os.ReadFile(path)
	require.NoError(t, err)
	if len(content) == 0 {
		return 0
	}
	return strings.Count(strings.TrimRight(string(content), "\n"), "\n") + 1
}

func TestRunWritesPartitions(t *testing.T) {
	cfg := testConfig(t)
	downloader := &fakeDownloader{content: tenRows()}
	publisher := &fakePublisher{}

	r := New(cfg, downloader, publisher, discardLogger())
	// Deterministic partition sizes regardless of shuffle order.
	require.NoError(t, r.Run(context.Background(), "s3://data-bucket/abalone/abalone-dataset.csv"))

	base := cfg.Processing.BaseDir
	require.Equal(t, 7, countCSVRows(t, filepath.Join(base, "train", "train.csv")))
	require.Equal(t, 1, countCSVRows(t, filepath.Join(base, "validation", "validation.csv")))
	require.Equal(t, 2, countCSVRows(t, filepath.Join(base, "test", "test.csv")))

	// Every partition row has 1 label + 7 numeric + 3 one-hot columns.
	content, err := os.ReadFile(filepath.Join(base, "train", "train.csv"))
	require.NoError(t, err)
	firstLine := strings.SplitN(string(content), "\n", 2)[0]
	require.Len(t, strings.Split(firstLine, ","), 11)

	// The staging file is removed after a successful load.
	_, err = os.Stat(filepath.Join(base, "data", "abalone-dataset.csv"))
	require.True(t, os.IsNotExist(err))
}

func TestRunPublishesRawFirstRow(t *testing.T) {
	cfg := testConfig(t)
	publisher := &fakePublisher{}

	r := New(cfg, &fakeDownloader{content: tenRows()}, publisher, discardLogger())
	require.NoError(t, r.Run(context.Background(), "s3://b/k.csv"))

	require.Equal(t, 1, publisher.calls)
	require.Equal(t, []string{"M", "0.455", "0.365", "0.095", "0.514", "0.2245", "0.101", "0.15"}, publisher.rawValues)
	require.Equal(t, "rings", publisher.schema.Label.Name)
}

func TestRunWithoutPublisher(t *testing.T) {
	cfg := testConfig(t)

	r := New(cfg, &fakeDownloader{content: tenRows()}, nil, discardLogger())
	require.NoError(t, r.Run(context.Background(), "s3://b/k.csv"))

	require.FileExists(t, filepath.Join(cfg.Processing.BaseDir, "train", "train.csv"))
}

func TestRunInvalidInputPath(t *testing.T) {
	r := New(testConfig(t), &fakeDownloader{}, nil, discardLogger())
	err := r.Run(context.Background(), "not-an-s3-uri")
	require.Error(t, err)
	require.Equal(t, pipeline.ErrorTypeDownload, pipeline.TypeOf(err))
}

func TestRunDownloadFailureAborts(t *testing.T) {
	cfg := testConfig(t)
	downloader := &fakeDownloader{
		err: pipeline.NewDownloadError("fetch_object", "download failed after retries", errors.New("unavailable")),
	}
	publisher := &fakePublisher{}

	r := New(cfg, downloader, publisher, discardLogger())
	err := r.Run(context.Background(), "s3://b/k.csv")
	require.Error(t, err)
	require.Equal(t, pipeline.ErrorTypeDownload, pipeline.TypeOf(err))

	require.Equal(t, 0, publisher.calls)
	require.NoFileExists(t, filepath.Join(cfg.Processing.BaseDir, "train", "train.csv"))
}

func TestRunParseFailureAborts(t *testing.T) {
	cfg := testConfig(t)
	downloader := &fakeDownloader{content: "M,bad,0.365,0.095,0.514,0.2245,0.101,0.15,15\n"}
	publisher := &fakePublisher{}

	r := New(cfg, downloader, publisher, discardLogger())
	err := r.Run(context.Background(), "s3://b/k.csv")
	require.Error(t, err)
	require.Equal(t, pipeline.ErrorTypeParse, pipeline.TypeOf(err))
	require.Equal(t, 0, publisher.calls)
}

func TestRunPublishFailureSurfaces(t *testing.T) {
	cfg := testConfig(t)
	publisher := &fakePublisher{
		err: pipeline.NewRemoteCallError("create_feature_group", "feature group registration failed", errors.New("ResourceInUse")),
	}

	r := New(cfg, &fakeDownloader{content: tenRows()}, publisher, discardLogger())
	err := r.Run(context.Background(), "s3://b/k.csv")
	require.Error(t, err)
	require.Equal(t, pipeline.ErrorTypeRemoteCall, pipeline.TypeOf(err))

	// Partitions were already written before the publish stage; they are
	// deliberately left in place.
	require.FileExists(t, filepath.Join(cfg.Processing.BaseDir, "train", "train.csv"))
}

func TestRunEmptyDataset(t *testing.T) {
	cfg := testConfig(t)
	publisher := &fakePublisher{}

	r := New(cfg, &fakeDownloader{content: ""}, publisher, discardLogger())
	err := r.Run(context.Background(), "s3://b/k.csv")
	require.Error(t, err)
	require.Equal(t, pipeline.ErrorTypeTransform, pipeline.TypeOf(err))
}
