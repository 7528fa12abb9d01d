package model

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"

	"github.com/YuminosukeSato/scigo-serve/pkg/errors"
)

// WeightsVersion is the current ModelWeights schema version.
const WeightsVersion = "1"

// ModelWeights はモデルの重みを表す構造体（シリアライゼーション用）
//
// 二値分類とは1行、多クラス分類はクラス数分の行を Coefficients に持つ。
// 回帰モデルは1行で Classes は空。
type ModelWeights struct {
	// ModelType はモデルの種類（logistic_regression, linear_regression 等）
	ModelType string `json:"model_type"`

	// Version はスキーマのバージョン（互換性チェック用）
	Version string `json:"version"`

	// Coefficients は重み係数 (n_rows × n_features)
	Coefficients [][]float64 `json:"coefficients"`

	// Intercepts は切片 (n_rows)
	Intercepts []float64 `json:"intercepts"`

	// Classes は分類器のクラスラベル
	Classes []int `json:"classes,omitempty"`

	// NFeatures は学習時の特徴量数
	NFeatures int `json:"n_features"`

	// Hyperparameters はモデルのハイパーパラメータ
	Hyperparameters map[string]interface{} `json:"hyperparameters,omitempty"`

	// IsFitted はモデルが学習済みかどうか
	IsFitted bool `json:"is_fitted"`

	// Checksum は係数と切片のSHA-256（空なら検証しない）
	Checksum string `json:"checksum,omitempty"`
}

// ComputeChecksum は係数と切片からチェックサムを計算
func (mw *ModelWeights) ComputeChecksum() string {
	data, _ := json.Marshal(struct {
		C [][]float64 `json:"c"`
		I []float64   `json:"i"`
	}{mw.Coefficients, mw.Intercepts})
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:])
}

// ToJSON はModelWeightsをJSON形式にシリアライズ
func (mw *ModelWeights) ToJSON() ([]byte, error) {
	data, err := json.Marshal(mw)
	if err != nil {
		return nil, errors.Wrap(err, "encode model weights")
	}
	return data, nil
}

// FromJSON はJSON形式からModelWeightsをデシリアライズ
func (mw *ModelWeights) FromJSON(data []byte) error {
	if err := json.Unmarshal(data, mw); err != nil {
		return errors.Wrap(err, "decode model weights")
	}
	return nil
}

// Validate はModelWeightsの妥当性を検証
func (mw *ModelWeights) Validate() error {
	if mw.ModelType == "" {
		return errors.NewValidationError("model_type", "is required", mw.ModelType)
	}
	if mw.Version != WeightsVersion {
		return errors.NewValidationError("version", "unsupported weights version", mw.Version)
	}
	if !mw.IsFitted {
		return errors.NewNotFittedError(mw.ModelType, "Predict")
	}
	if len(mw.Coefficients) == 0 {
		return errors.NewValidationError("coefficients", "fitted model must have coefficients", 0)
	}
	if len(mw.Intercepts) != len(mw.Coefficients) {
		return errors.NewDimensionError("ModelWeights.Validate", len(mw.Coefficients), len(mw.Intercepts), 0)
	}
	for _, row := range mw.Coefficients {
		if len(row) != mw.NFeatures {
			return errors.NewDimensionError("ModelWeights.Validate", mw.NFeatures, len(row), 1)
		}
	}
	if mw.Checksum != "" && mw.Checksum != mw.ComputeChecksum() {
		return errors.NewValidationError("checksum", "weights may be corrupted", mw.Checksum)
	}
	return nil
}

// Clone はModelWeightsのディープコピーを作成
func (mw *ModelWeights) Clone() *ModelWeights {
	clone := &ModelWeights{
		ModelType:       mw.ModelType,
		Version:         mw.Version,
		NFeatures:       mw.NFeatures,
		IsFitted:        mw.IsFitted,
		Checksum:        mw.Checksum,
		Coefficients:    make([][]float64, len(mw.Coefficients)),
		Intercepts:      append([]float64(nil), mw.Intercepts...),
		Classes:         append([]int(nil), mw.Classes...),
		Hyperparameters: make(map[string]interface{}, len(mw.Hyperparameters)),
	}
	for i, row := range mw.Coefficients {
		clone.Coefficients[i] = append([]float64(nil), row...)
	}
	for k, v := range mw.Hyperparameters {
		clone.Hyperparameters[k] = v
	}
	return clone
}
