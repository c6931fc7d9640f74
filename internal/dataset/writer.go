package dataset

import (
	"encoding/csv"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"github.com/featurelabs/abalone-preprocess/internal/pipeline"
)

// WriteMatrix serializes a matrix of transformed rows to a comma-delimited
// file with no header row and no index column.
func WriteMatrix(log *slog.Logger, path string, rows [][]float64) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return pipeline.NewIOError("write_partition", "failed to create output directory", err).
			WithContext("path", path)
	}

	f, err := os.Create(path)
	if err != nil {
		return pipeline.NewIOError("write_partition", "failed to create output file", err).
			WithContext("path", path)
	}

	writer := csv.NewWriter(f)
	record := make([]string, 0, 16)
	for _, row := range rows {
		record = record[:0]
		for _, v := range row {
			record = append(record, strconv.FormatFloat(v, 'g', -1, 64))
		}
		if err := writer.Write(record); err != nil {
			f.Close()
			return pipeline.NewIOError("write_partition", "failed to write record", err).
				WithContext("path", path)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		f.Close()
		return pipeline.NewIOError("write_partition", "failed to flush output file", err).
			WithContext("path", path)
	}

	if err := f.Close(); err != nil {
		return pipeline.NewIOError("write_partition", "failed to close output file", err).
			WithContext("path", path)
	}

	log.Info("Wrote partition file",
		slog.String("path", path),
		slog.Int("rows", len(rows)))

	return nil
}
