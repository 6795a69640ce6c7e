package model

import (
	"encoding/gob"
	"io"
	"os"
	"path/filepath"

	"github.com/bhanuswaroop1247/keratoconus-severity-ml/pkg/errors"
)

// SaveModel serialises a model to a file with encoding/gob, creating parent
// directories as needed.
//
// Example:
//
//	clf := ensemble.NewRandomForestClassifier()
//	// ... fit ...
//	err := model.SaveModel(clf, "models/rf_kc_severity.gob")
func SaveModel(model interface{}, filename string) error {
	if dir := filepath.Dir(filename); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.NewModelError("SaveModel", "create directory", err)
		}
	}

	file, err := os.Create(filename)
	if err != nil {
		return errors.NewModelError("SaveModel", "create file", err)
	}
	defer file.Close()

	if err := SaveModelToWriter(model, file); err != nil {
		return err
	}
	return nil
}

// LoadModel deserialises a model from a file into the given pointer.
//
// Example:
//
//	var clf ensemble.RandomForestClassifier
//	err := model.LoadModel(&clf, "models/rf_kc_severity.gob")
func LoadModel(model interface{}, filename string) error {
	file, err := os.Open(filename)
	if err != nil {
		return errors.NewModelError("LoadModel", "open file", err)
	}
	defer file.Close()

	return LoadModelFromReader(model, file)
}

// SaveModelToWriter serialises a model to the given writer.
func SaveModelToWriter(model interface{}, w io.Writer) error {
	encoder := gob.NewEncoder(w)
	if err := encoder.Encode(model); err != nil {
		return errors.NewModelError("SaveModel", "encode model", err)
	}
	return nil
}

// LoadModelFromReader deserialises a model from the given reader.
func LoadModelFromReader(model interface{}, r io.Reader) error {
	decoder := gob.NewDecoder(r)
	if err := decoder.Decode(model); err != nil {
		return errors.NewModelError("LoadModel", "decode model", err)
	}
	return nil
}
