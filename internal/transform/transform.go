// Package transform implements the column-wise feature-engineering
// pipeline: median imputation and standardization for numeric columns,
// constant imputation and one-hot encoding for categorical columns. Fit
// statistics are kept on the transformer so a fitted pipeline can be
// applied to unseen data.
package transform

import (
	"fmt"
	"log/slog"

	"github.com/featurelabs/abalone-preprocess/internal/dataset"
	"github.com/featurelabs/abalone-preprocess/internal/pipeline"
	"github.com/featurelabs/abalone-preprocess/internal/schema"
)

// MissingCategoryFill is the placeholder substituted for missing
// categorical values before encoding.
const MissingCategoryFill = "missing"

type numericPipeline struct {
	imputer MedianImputer
	scaler  StandardScaler
}

// FeatureTransformer fits and applies the full column pipeline for a
// schema. The output matrix carries the label first, the transformed
// numeric columns in schema order, then the one-hot columns per
// categorical column in schema order.
type FeatureTransformer struct {
	schema schema.Schema

	numeric  map[string]*numericPipeline
	encoders map[string]*OneHotEncoder
	fitted   bool
}

// New creates an unfitted transformer for the schema.
func New(s schema.Schema) *FeatureTransformer {
	return &FeatureTransformer{
		schema:   s,
		numeric:  make(map[string]*numericPipeline),
		encoders: make(map[string]*OneHotEncoder),
	}
}

// Fit learns imputation statistics, scaling parameters, and category
// vocabularies from the table. Scaling statistics are computed over the
// imputed fit data, matching the imputer-then-scaler pipeline order.
func (ft *FeatureTransformer) Fit(t *dataset.Table) error {
	for _, c := range ft.schema.NumericFeatures() {
		xs, err := t.Floats(c.Name)
		if err != nil {
			return pipeline.NewTransformError("fit_transformer", "numeric column missing from table", err)
		}
		np := &numericPipeline{}
		if err := np.imputer.Fit(xs); err != nil {
			return pipeline.NewTransformError("fit_transformer",
				fmt.Sprintf("failed to fit imputer for column %q", c.Name), err)
		}
		imputed, err := np.imputer.Transform(xs)
		if err != nil {
			return pipeline.NewTransformError("fit_transformer",
				fmt.Sprintf("failed to impute column %q", c.Name), err)
		}
		if err := np.scaler.Fit(imputed); err != nil {
			return pipeline.NewTransformError("fit_transformer",
				fmt.Sprintf("failed to fit scaler for column %q", c.Name), err)
		}
		ft.numeric[c.Name] = np
	}

	for _, c := range ft.schema.CategoricalFeatures() {
		values, err := t.Strings(c.Name)
		if err != nil {
			return pipeline.NewTransformError("fit_transformer", "categorical column missing from table", err)
		}
		filled := ConstantImputer{Fill: MissingCategoryFill}.Transform(values)
		enc := &OneHotEncoder{}
		if err := enc.Fit(filled); err != nil {
			return pipeline.NewTransformError("fit_transformer",
				fmt.Sprintf("failed to fit encoder for column %q", c.Name), err)
		}
		ft.encoders[c.Name] = enc
	}

	ft.fitted = true
	return nil
}

// Transform applies the fitted pipeline to a table and returns the output
// matrix. The table must carry the transformer's schema.
func (ft *FeatureTransformer) Transform(t *dataset.Table) ([][]float64, error) {
	if !ft.fitted {
		return nil, pipeline.NewTransformError("apply_transformer", "transformer used before Fit", nil)
	}

	n := t.NumRows()
	out := make([][]float64, n)
	for i := range out {
		out[i] = make([]float64, 0, ft.OutputWidth())
	}

	labels := t.Labels()
	for i := range out {
		out[i] = append(out[i], labels[i])
	}

	for _, c := range ft.schema.NumericFeatures() {
		xs, err := t.Floats(c.Name)
		if err != nil {
			return nil, pipeline.NewTransformError("apply_transformer", "numeric column missing from table", err)
		}
		np := ft.numeric[c.Name]
		imputed, err := np.imputer.Transform(xs)
		if err != nil {
			return nil, pipeline.NewTransformError("apply_transformer",
				fmt.Sprintf("failed to impute column %q", c.Name), err)
		}
		scaled, err := np.scaler.Transform(imputed)
		if err != nil {
			return nil, pipeline.NewTransformError("apply_transformer",
				fmt.Sprintf("failed to scale column %q", c.Name), err)
		}
		for i := range out {
			out[i] = append(out[i], scaled[i])
		}
	}

	for _, c := range ft.schema.CategoricalFeatures() {
		values, err := t.Strings(c.Name)
		if err != nil {
			return nil, pipeline.NewTransformError("apply_transformer", "categorical column missing from table", err)
		}
		filled := ConstantImputer{Fill: MissingCategoryFill}.Transform(values)
		encoded, err := ft.encoders[c.Name].Transform(filled)
		if err != nil {
			return nil, pipeline.NewTransformError("apply_transformer",
				fmt.Sprintf("failed to encode column %q", c.Name), err)
		}
		for i := range out {
			out[i] = append(out[i], encoded[i]...)
		}
	}

	return out, nil
}

// FitTransform fits the pipeline on the table and applies it in one pass,
// the single-run shape of the preprocessing step.
func (ft *FeatureTransformer) FitTransform(log *slog.Logger, t *dataset.Table) ([][]float64, error) {
	if err := ft.Fit(t); err != nil {
		return nil, err
	}
	out, err := ft.Transform(t)
	if err != nil {
		return nil, err
	}
	log.Info("Applied feature transforms",
		slog.Int("rows", len(out)),
		slog.Int("columns", ft.OutputWidth()))
	return out, nil
}

// OutputWidth is the column count of the transformed matrix: label,
// numeric features, then one one-hot column per fitted category.
func (ft *FeatureTransformer) OutputWidth() int {
	width := 1 + len(ft.numeric)
	for _, enc := range ft.encoders {
		width += len(enc.Categories())
	}
	return width
}

// Categories returns the fitted vocabulary for a categorical column.
func (ft *FeatureTransformer) Categories(column string) []string {
	enc, ok := ft.encoders[column]
	if !ok {
		return nil
	}
	return enc.Categories()
}
