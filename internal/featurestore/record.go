package featurestore

import (
	"fmt"
	"strconv"

	"github.com/featurelabs/abalone-preprocess/internal/schema"
)

// FeatureValue is one named value of an ingestion record, string-encoded
// the way the runtime API expects.
type FeatureValue struct {
	Name  string
	Value string
}

// BuildRecord pairs the raw feature values of one dataset row, in schema
// order, with the synthetic event-time field. Every declared feature must
// be covered, so a value count mismatch is an error.
func BuildRecord(s schema.Schema, values []string, eventTimeField string, eventTime int64) ([]FeatureValue, error) {
	if len(values) != len(s.Features) {
		return nil, fmt.Errorf("record has %d values for %d declared features", len(values), len(s.Features))
	}
	record := make([]FeatureValue, 0, len(values)+1)
	for i, c := range s.Features {
		record = append(record, FeatureValue{Name: c.Name, Value: values[i]})
	}
	record = append(record, FeatureValue{
		Name:  eventTimeField,
		Value: strconv.FormatInt(eventTime, 10),
	})
	return record, nil
}
