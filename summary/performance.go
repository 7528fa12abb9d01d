// Package summary produces and reads the static files the presentation
// layer starts from: feature_names.json and model_performance.json.
package summary

import (
	"encoding/json"
	"math"
	"os"
	"path/filepath"

	"github.com/YuminosukeSato/scigo-serve/pkg/errors"
)

const (
	// FeatureNamesFile is the default file name for the ordered feature list.
	FeatureNamesFile = "feature_names.json"
	// PerformanceFile is the default file name for the performance summary.
	PerformanceFile = "model_performance.json"
)

// TopFeature は [name, score] の2要素配列としてJSONに現れる
type TopFeature struct {
	Name  string
	Score float64
}

// MarshalJSON implements json.Marshaler.
func (f TopFeature) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]interface{}{f.Name, f.Score})
}

// UnmarshalJSON implements json.Unmarshaler.
func (f *TopFeature) UnmarshalJSON(data []byte) error {
	var pair []json.RawMessage
	if err := json.Unmarshal(data, &pair); err != nil {
		return errors.Wrap(err, "top feature must be a [name, score] array")
	}
	if len(pair) != 2 {
		return errors.NewValidationError("top_features", "entry must have exactly 2 elements", len(pair))
	}
	if err := json.Unmarshal(pair[0], &f.Name); err != nil {
		return errors.Wrap(err, "top feature name")
	}
	if err := json.Unmarshal(pair[1], &f.Score); err != nil {
		return errors.Wrap(err, "top feature score")
	}
	return nil
}

// Performance is the offline evaluation summary shown in the UI sidebar.
type Performance struct {
	TestAccuracy float64      `json:"test_accuracy"`
	TestAUC      *float64     `json:"test_auc"`
	TopFeatures  []TopFeature `json:"top_features"`
}

// Validate checks the ranges the UI relies on.
func (p *Performance) Validate() error {
	if math.IsNaN(p.TestAccuracy) || p.TestAccuracy < 0 || p.TestAccuracy > 1 {
		return errors.NewValidationError("test_accuracy", "must be in [0, 1]", p.TestAccuracy)
	}
	if p.TestAUC != nil && (math.IsNaN(*p.TestAUC) || *p.TestAUC < 0 || *p.TestAUC > 1) {
		return errors.NewValidationError("test_auc", "must be null or in [0, 1]", *p.TestAUC)
	}
	for _, f := range p.TopFeatures {
		if f.Name == "" {
			return errors.NewValidationError("top_features", "feature name must not be empty", f)
		}
	}
	return nil
}

// ValidateFeatureNames rejects empty lists, blank names and duplicates.
func ValidateFeatureNames(names []string) error {
	if len(names) == 0 {
		return errors.NewValidationError("feature_names", "must not be empty", names)
	}
	seen := make(map[string]struct{}, len(names))
	for _, n := range names {
		if n == "" {
			return errors.NewValidationError("feature_names", "name must not be empty", names)
		}
		if _, dup := seen[n]; dup {
			return errors.NewValidationError("feature_names", "duplicate feature name", n)
		}
		seen[n] = struct{}{}
	}
	return nil
}

// ReadFeatureNames loads and validates an ordered feature name list.
func ReadFeatureNames(path string) ([]string, error) {
	var names []string
	if err := readJSON(path, &names); err != nil {
		return nil, err
	}
	if err := ValidateFeatureNames(names); err != nil {
		return nil, errors.Wrapf(err, "%s", path)
	}
	return names, nil
}

// ReadPerformance loads and validates a performance summary.
func ReadPerformance(path string) (*Performance, error) {
	var p Performance
	if err := readJSON(path, &p); err != nil {
		return nil, err
	}
	if err := p.Validate(); err != nil {
		return nil, errors.Wrapf(err, "%s", path)
	}
	return &p, nil
}

// WriteFeatureNames writes names as an indented JSON array.
func WriteFeatureNames(path string, names []string) error {
	if err := ValidateFeatureNames(names); err != nil {
		return err
	}
	return writeJSON(path, names)
}

// WritePerformance writes p as indented JSON.
func WritePerformance(path string, p *Performance) error {
	if err := p.Validate(); err != nil {
		return err
	}
	return writeJSON(path, p)
}

func readJSON(path string, v interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrapf(err, "read %s", path)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return errors.Wrapf(err, "parse %s", path)
	}
	return nil
}

func writeJSON(path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errors.Wrapf(err, "encode %s", path)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrapf(err, "create directory for %s", path)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return errors.Wrapf(err, "write %s", path)
	}
	return nil
}
