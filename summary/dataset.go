package summary

import (
	"encoding/csv"
	"io"
	"os"
	"strconv"

	"github.com/YuminosukeSato/scigo-serve/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// DefaultLabelColumn is the CSV header of the target column.
const DefaultLabelColumn = "label"

// Dataset is a labelled test set read from CSV.
type Dataset struct {
	FeatureNames []string
	X            *mat.Dense
	Y            *mat.VecDense
}

// ReadCSV reads a header row plus numeric rows. The labelColumn may sit at
// any position; every other column is a feature, in header order.
func ReadCSV(r io.Reader, labelColumn string) (*Dataset, error) {
	if labelColumn == "" {
		labelColumn = DefaultLabelColumn
	}

	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	header, err := cr.Read()
	if err != nil {
		return nil, errors.Wrap(err, "read csv header")
	}

	labelIdx := -1
	var names []string
	for i, h := range header {
		if h == labelColumn {
			labelIdx = i
			continue
		}
		names = append(names, h)
	}
	if labelIdx < 0 {
		return nil, errors.NewValidationError("label_column", "not found in csv header", labelColumn)
	}
	if err := ValidateFeatureNames(names); err != nil {
		return nil, err
	}

	var data, labels []float64
	line := 1
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, errors.Wrapf(err, "read csv line %d", line)
		}
		for i, field := range rec {
			v, err := strconv.ParseFloat(field, 64)
			if err != nil {
				return nil, errors.Wrapf(err, "line %d column %q", line, header[i])
			}
			if i == labelIdx {
				labels = append(labels, v)
			} else {
				data = append(data, v)
			}
		}
	}
	if len(labels) == 0 {
		return nil, errors.NewModelError("ReadCSV", "no data rows", errors.ErrEmptyData)
	}

	return &Dataset{
		FeatureNames: names,
		X:            mat.NewDense(len(labels), len(names), data),
		Y:            mat.NewVecDense(len(labels), labels),
	}, nil
}

// LoadCSV opens path and reads it with ReadCSV.
func LoadCSV(path, labelColumn string) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", path)
	}
	defer f.Close()
	return ReadCSV(f, labelColumn)
}

// Reorder returns the dataset with its columns arranged in names order.
// names must be a permutation of FeatureNames; the receiver is unchanged.
// An empty names returns the receiver as is (model saved without names).
func (d *Dataset) Reorder(names []string) (*Dataset, error) {
	if len(names) == 0 {
		return d, nil
	}
	if len(names) != len(d.FeatureNames) {
		return nil, errors.NewFeatureCountError(len(names), len(d.FeatureNames))
	}
	index := make(map[string]int, len(d.FeatureNames))
	for j, n := range d.FeatureNames {
		index[n] = j
	}

	r, _ := d.X.Dims()
	X := mat.NewDense(r, len(names), nil)
	for j, n := range names {
		src, ok := index[n]
		if !ok {
			return nil, errors.NewValidationError("feature_names", "model feature missing from csv header", n)
		}
		X.SetCol(j, mat.Col(nil, src, d.X))
	}
	return &Dataset{
		FeatureNames: append([]string(nil), names...),
		X:            X,
		Y:            d.Y,
	}, nil
}
