// Package schema describes the column layout of the raw abalone dataset
// and derives feature-store definitions from it.
package schema

import "fmt"

// Kind is the semantic type of a column.
type Kind string

const (
	KindString     Kind = "String"
	KindFractional Kind = "Fractional"
)

// Column is a single named, typed column.
type Column struct {
	Name string
	Kind Kind
}

// Schema is an ordered column layout for a headerless delimited file.
// The label column, when present, is always last on the wire.
type Schema struct {
	Features []Column
	Label    Column
}

// Abalone returns the fixed abalone dataset schema: seven fractional
// measurements, one categorical sex column, and the rings label.
func Abalone() Schema {
	return Schema{
		Features: []Column{
			{Name: "sex", Kind: KindString},
			{Name: "length", Kind: KindFractional},
			{Name: "diameter", Kind: KindFractional},
			{Name: "height", Kind: KindFractional},
			{Name: "whole_weight", Kind: KindFractional},
			{Name: "shucked_weight", Kind: KindFractional},
			{Name: "viscera_weight", Kind: KindFractional},
			{Name: "shell_weight", Kind: KindFractional},
		},
		Label: Column{Name: "rings", Kind: KindFractional},
	}
}

// Width is the number of columns on the wire, features plus label.
func (s Schema) Width() int {
	return len(s.Features) + 1
}

// NumericFeatures returns the fractional feature columns in schema order.
func (s Schema) NumericFeatures() []Column {
	var cols []Column
	for _, c := range s.Features {
		if c.Kind == KindFractional {
			cols = append(cols, c)
		}
	}
	return cols
}

// CategoricalFeatures returns the string feature columns in schema order.
func (s Schema) CategoricalFeatures() []Column {
	var cols []Column
	for _, c := range s.Features {
		if c.Kind == KindString {
			cols = append(cols, c)
		}
	}
	return cols
}

// Feature looks up a feature column by name.
func (s Schema) Feature(name string) (Column, error) {
	for _, c := range s.Features {
		if c.Name == name {
			return c, nil
		}
	}
	return Column{}, fmt.Errorf("schema has no feature column %q", name)
}

// Validate checks that the schema is usable: non-empty, uniquely named
// columns and a named label.
func (s Schema) Validate() error {
	if len(s.Features) == 0 {
		return fmt.Errorf("schema has no feature columns")
	}
	if s.Label.Name == "" {
		return fmt.Errorf("schema has no label column")
	}
	seen := make(map[string]bool, len(s.Features)+1)
	for _, c := range s.Features {
		if c.Name == "" {
			return fmt.Errorf("schema has an unnamed feature column")
		}
		if c.Kind != KindString && c.Kind != KindFractional {
			return fmt.Errorf("feature column %q has invalid kind %q", c.Name, c.Kind)
		}
		if seen[c.Name] {
			return fmt.Errorf("duplicate column name %q", c.Name)
		}
		seen[c.Name] = true
	}
	if seen[s.Label.Name] {
		return fmt.Errorf("label column %q collides with a feature column", s.Label.Name)
	}
	return nil
}

// FeatureDefinitions derives the ordered feature-store definition list:
// every raw feature column plus a synthetic fractional event-time field.
func (s Schema) FeatureDefinitions(eventTimeField string) []Column {
	defs := make([]Column, 0, len(s.Features)+1)
	defs = append(defs, s.Features...)
	defs = append(defs, Column{Name: eventTimeField, Kind: KindFractional})
	return defs
}
