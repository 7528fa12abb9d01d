package model

import (
	"encoding/gob"
	"io"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/YuminosukeSato/scigo-serve/pkg/errors"
)

// Artifact はディスクに保存されるモデルの封筒（gobエンコード）
//
// Weights は ModelWeights のJSON。Kind によって復元関数が選ばれる。
type Artifact struct {
	Kind         string
	FeatureNames []string
	Weights      []byte
	CreatedAt    time.Time
}

// DecodeFunc はModelWeightsから学習済みモデルを復元する
type DecodeFunc func(w *ModelWeights) (Persistable, error)

var (
	registryMu sync.RWMutex
	registry   = make(map[string]DecodeFunc)
)

// Register はモデル種別の復元関数を登録する。
// 通常は各モデルパッケージの init から呼ばれる。同じ種別の二重登録は panic する。
func Register(kind string, decode DecodeFunc) {
	registryMu.Lock()
	defer registryMu.Unlock()
	if decode == nil {
		panic("model: Register decode is nil")
	}
	if _, dup := registry[kind]; dup {
		panic("model: Register called twice for kind " + kind)
	}
	registry[kind] = decode
}

// Kinds は登録済みのモデル種別をソートして返す
func Kinds() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	kinds := make([]string, 0, len(registry))
	for k := range registry {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	return kinds
}

// NewArtifact は学習済みモデルから Artifact を作成する
//
// featureNames は空でもよい。指定する場合はモデルの特徴量数と一致する必要がある。
func NewArtifact(m Persistable, featureNames []string) (*Artifact, error) {
	w, err := m.ExportWeights()
	if err != nil {
		return nil, err
	}
	if err := w.Validate(); err != nil {
		return nil, err
	}
	if len(featureNames) > 0 && len(featureNames) != w.NFeatures {
		return nil, errors.NewFeatureCountError(w.NFeatures, len(featureNames))
	}
	data, err := w.ToJSON()
	if err != nil {
		return nil, err
	}
	return &Artifact{
		Kind:         m.Kind(),
		FeatureNames: append([]string(nil), featureNames...),
		Weights:      data,
		CreatedAt:    time.Now().UTC(),
	}, nil
}

// Model は Artifact から学習済みモデルを復元する
func (a *Artifact) Model() (Persistable, error) {
	registryMu.RLock()
	decode, ok := registry[a.Kind]
	registryMu.RUnlock()
	if !ok {
		return nil, errors.Wrapf(errors.ErrUnknownModelKind, "kind %q (registered: %v)", a.Kind, Kinds())
	}

	var w ModelWeights
	if err := w.FromJSON(a.Weights); err != nil {
		return nil, errors.NewModelError("Artifact.Model", "invalid weights", err)
	}
	if w.ModelType != a.Kind {
		return nil, errors.NewValidationError("model_type", "does not match artifact kind "+a.Kind, w.ModelType)
	}
	if err := w.Validate(); err != nil {
		return nil, errors.NewModelError("Artifact.Model", "invalid weights", err)
	}
	if len(a.FeatureNames) > 0 && len(a.FeatureNames) != w.NFeatures {
		return nil, errors.NewFeatureCountError(w.NFeatures, len(a.FeatureNames))
	}
	return decode(&w)
}

// SaveArtifact は Artifact をファイルに保存する
//
// 使用例:
//
//	art, err := model.NewArtifact(clf, featureNames)
//	err = model.SaveArtifact(art, "model.gob")
func SaveArtifact(a *Artifact, filename string) error {
	file, err := os.Create(filename)
	if err != nil {
		return errors.Wrap(err, "failed to create artifact file")
	}
	if err := WriteArtifact(file, a); err != nil {
		_ = file.Close()
		return err
	}
	return errors.Wrap(file.Close(), "failed to close artifact file")
}

// LoadArtifact はファイルから Artifact を読み込む
func LoadArtifact(filename string) (*Artifact, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open artifact file")
	}
	defer file.Close()

	return ReadArtifact(file)
}

// WriteArtifact は Artifact を io.Writer に保存する
func WriteArtifact(w io.Writer, a *Artifact) error {
	if err := gob.NewEncoder(w).Encode(a); err != nil {
		return errors.Wrap(err, "failed to encode artifact")
	}
	return nil
}

// ReadArtifact は io.Reader から Artifact を読み込む
func ReadArtifact(r io.Reader) (*Artifact, error) {
	var a Artifact
	if err := gob.NewDecoder(r).Decode(&a); err != nil {
		return nil, errors.Wrap(err, "failed to decode artifact")
	}
	if a.Kind == "" {
		return nil, errors.NewValidationError("kind", "artifact has no model kind", a.Kind)
	}
	return &a, nil
}
