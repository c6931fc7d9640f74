package dataset

import (
	"encoding/csv"
	"fmt"
	"log/slog"
	"math"
	"os"
	"strconv"

	"github.com/featurelabs/abalone-preprocess/internal/pipeline"
	"github.com/featurelabs/abalone-preprocess/internal/schema"
)

// Load parses a headerless comma-delimited file into a typed table using
// the given schema. Empty fields are treated as missing values; any other
// field that cannot be coerced to its declared type is a parse error.
func Load(log *slog.Logger, path string, s schema.Schema) (*Table, error) {
	if err := s.Validate(); err != nil {
		return nil, pipeline.NewParseError("load_dataset", "invalid schema", err)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, pipeline.NewIOError("load_dataset", "failed to open input file", err).
			WithContext("path", path)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = s.Width()

	records, err := reader.ReadAll()
	if err != nil {
		return nil, pipeline.NewParseError("load_dataset", "failed to read delimited input", err).
			WithContext("path", path)
	}

	t := NewTable(s, len(records))
	for i, record := range records {
		for j, c := range s.Features {
			if err := setField(t, c, i, record[j]); err != nil {
				return nil, err
			}
		}
		labelCol := schema.Column{Name: s.Label.Name, Kind: schema.KindFractional}
		if err := setField(t, labelCol, i, record[len(record)-1]); err != nil {
			return nil, err
		}
	}

	log.Debug("Loaded dataset",
		slog.String("path", path),
		slog.Int("rows", t.NumRows()),
		slog.Int("columns", s.Width()))

	return t, nil
}

func setField(t *Table, c schema.Column, row int, field string) error {
	switch c.Kind {
	case schema.KindString:
		t.strings[c.Name][row] = field
	case schema.KindFractional:
		if field == "" {
			t.floats[c.Name][row] = math.NaN()
			return nil
		}
		v, err := strconv.ParseFloat(field, 64)
		if err != nil {
			return pipeline.NewParseError("load_dataset",
				fmt.Sprintf("field %q is not a valid %s value", field, c.Kind), err).
				WithContext("column", c.Name).
				WithContext("row", row)
		}
		t.floats[c.Name][row] = v
	}
	return nil
}
