package serving

import (
	"os"
	"slices"

	"github.com/YuminosukeSato/scigo-serve/core/model"
	"github.com/YuminosukeSato/scigo-serve/pkg/errors"
	"github.com/YuminosukeSato/scigo-serve/summary"
)

// LoadedModel is a decoded artifact plus the feature names that define the
// request schema.
type LoadedModel struct {
	Kind         string
	Predictor    model.Predictor
	FeatureNames []string
}

// LoadModel reads the artifact at modelPath. Feature names come from
// featureNamesPath when that file exists, otherwise from the artifact; when
// neither provides names the model's fitted feature count defines the schema.
// A names file must match the artifact's names exactly when the artifact
// carries them.
func LoadModel(modelPath, featureNamesPath string) (*LoadedModel, error) {
	art, err := model.LoadArtifact(modelPath)
	if err != nil {
		return nil, err
	}
	m, err := art.Model()
	if err != nil {
		return nil, err
	}

	// ファイルが無ければアーティファクト内の名前にフォールバック
	names := art.FeatureNames
	if featureNamesPath != "" && fileExists(featureNamesPath) {
		fileNames, err := summary.ReadFeatureNames(featureNamesPath)
		if err != nil {
			return nil, err
		}
		// 入力順は学習時に固定される。並び替えられたファイルは受け付けない
		if len(art.FeatureNames) > 0 && !slices.Equal(fileNames, art.FeatureNames) {
			return nil, errors.Wrapf(
				errors.NewValidationError("feature_names", "must equal the names saved with the model, in order", fileNames),
				"%s", featureNamesPath)
		}
		names = fileNames
	}
	if len(names) > 0 && len(names) != m.NFeatures() {
		return nil, errors.NewFeatureCountError(m.NFeatures(), len(names))
	}

	return &LoadedModel{Kind: art.Kind, Predictor: m, FeatureNames: names}, nil
}

// fileExists reports whether path names an existing file.
func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
