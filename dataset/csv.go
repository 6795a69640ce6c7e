package dataset

import (
	"encoding/csv"
	"math"
	"os"
	"path/filepath"
	"strconv"

	"gonum.org/v1/gonum/mat"

	"github.com/bhanuswaroop1247/keratoconus-severity-ml/pkg/errors"
)

// ReadCSV loads a table from a CSV file. The header must contain the label
// column (Severity); every other column is treated as a feature in header
// order. Labels may be written as integers or as floats with a zero
// fractional part.
func ReadCSV(path string) (*Table, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "dataset: open %s", path)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	records, err := reader.ReadAll()
	if err != nil {
		return nil, errors.Wrapf(err, "dataset: read %s", path)
	}
	if len(records) < 2 {
		return nil, errors.Wrapf(errors.ErrEmptyData, "dataset: %s has no data rows", path)
	}

	header := records[0]
	labelCol := -1
	featureNames := make([]string, 0, len(header)-1)
	featureCols := make([]int, 0, len(header)-1)
	for j, name := range header {
		if name == LabelName {
			labelCol = j
			continue
		}
		featureNames = append(featureNames, name)
		featureCols = append(featureCols, j)
	}
	if labelCol < 0 {
		return nil, errors.NewValidationError("header", "label column missing", header)
	}
	if len(featureCols) == 0 {
		return nil, errors.NewValidationError("header", "no feature columns", header)
	}

	rows := records[1:]
	x := mat.NewDense(len(rows), len(featureCols), nil)
	y := make([]int, len(rows))
	for i, rec := range rows {
		if len(rec) != len(header) {
			return nil, errors.NewDimensionError("ReadCSV", len(header), len(rec), 1)
		}
		label, err := strconv.ParseFloat(rec[labelCol], 64)
		if err != nil {
			return nil, errors.Wrapf(err, "dataset: row %d: bad label %q", i+1, rec[labelCol])
		}
		if label != math.Trunc(label) {
			return nil, errors.NewValidationError("label",
				"severity label must be an integer", rec[labelCol])
		}
		y[i] = int(label)
		for k, j := range featureCols {
			v, err := strconv.ParseFloat(rec[j], 64)
			if err != nil {
				return nil, errors.Wrapf(err, "dataset: row %d: bad value %q for %s", i+1, rec[j], featureNames[k])
			}
			x.Set(i, k, v)
		}
	}

	return New(featureNames, x, y)
}

// WriteCSV saves the table with the label as the first column, creating
// parent directories as needed.
func (t *Table) WriteCSV(path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.Wrapf(err, "dataset: mkdir for %s", path)
		}
	}

	file, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "dataset: create %s", path)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	header := append([]string{LabelName}, t.FeatureNames...)
	if err := writer.Write(header); err != nil {
		return errors.Wrapf(err, "dataset: write header to %s", path)
	}

	r, c := t.X.Dims()
	record := make([]string, c+1)
	for i := 0; i < r; i++ {
		record[0] = strconv.Itoa(t.Y[i])
		for j := 0; j < c; j++ {
			record[j+1] = strconv.FormatFloat(t.X.At(i, j), 'f', -1, 64)
		}
		if err := writer.Write(record); err != nil {
			return errors.Wrapf(err, "dataset: write row %d to %s", i, path)
		}
	}

	writer.Flush()
	return errors.Wrapf(writer.Error(), "dataset: flush %s", path)
}
