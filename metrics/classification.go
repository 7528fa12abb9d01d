package metrics

import (
	"math"
	"sort"

	"github.com/YuminosukeSato/scigo-serve/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// logLossEps はlog(0)を避けるためのクリッピング幅
const logLossEps = 1e-15

func checkPair(op string, yTrue, yPred *mat.VecDense) (int, error) {
	if yTrue == nil || yPred == nil || yTrue.Len() == 0 {
		return 0, errors.NewValueError(op, "empty vector")
	}
	n := yTrue.Len()
	if yPred.Len() != n {
		return 0, errors.NewDimensionError(op, n, yPred.Len(), 0)
	}
	return n, nil
}

func checkBinaryLabels(op string, yTrue *mat.VecDense) error {
	for i := 0; i < yTrue.Len(); i++ {
		if v := yTrue.AtVec(i); v != 0 && v != 1 {
			return errors.NewValidationError("y_true", op+" requires binary labels (0 or 1)", v)
		}
	}
	return nil
}

// Accuracy は正解率を計算する
func Accuracy(yTrue, yPred *mat.VecDense) (float64, error) {
	n, err := checkPair("Accuracy", yTrue, yPred)
	if err != nil {
		return 0, err
	}
	correct := 0
	for i := 0; i < n; i++ {
		if yTrue.AtVec(i) == yPred.AtVec(i) {
			correct++
		}
	}
	return float64(correct) / float64(n), nil
}

// AccuracyMatrix は列ベクトル（n×1行列）に対して正解率を計算する
func AccuracyMatrix(yTrue, yPred mat.Matrix) (float64, error) {
	t, p, err := columnPair("AccuracyMatrix", yTrue, yPred)
	if err != nil {
		return 0, err
	}
	return Accuracy(t, p)
}

// AUC はROC曲線下面積を計算する（Mann-Whitney U、同順位は平均順位）
//
// yPred は陽性クラスのスコア。yTrue が単一クラスのみの場合 AUC は定義されないため
// UndefinedMetricWarning を発生させて 0.5 を返す。
func AUC(yTrue, yPred *mat.VecDense) (float64, error) {
	n, err := checkPair("AUC", yTrue, yPred)
	if err != nil {
		return 0, err
	}
	if err := checkBinaryLabels("AUC", yTrue); err != nil {
		return 0, err
	}

	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return yPred.AtVec(idx[a]) < yPred.AtVec(idx[b])
	})

	var nPos, nNeg int
	var rankSumPos float64
	for start := 0; start < n; {
		end := start + 1
		for end < n && yPred.AtVec(idx[end]) == yPred.AtVec(idx[start]) {
			end++
		}
		// 順位は1始まり、同順位グループ内は平均
		avgRank := float64(start+end+1) / 2
		for k := start; k < end; k++ {
			if yTrue.AtVec(idx[k]) == 1 {
				nPos++
				rankSumPos += avgRank
			} else {
				nNeg++
			}
		}
		start = end
	}

	if nPos == 0 || nNeg == 0 {
		errors.Warn(errors.NewUndefinedMetricWarning("AUC", "only one class present in y_true", 0.5))
		return 0.5, nil
	}

	u := rankSumPos - float64(nPos*(nPos+1))/2
	return u / float64(nPos*nNeg), nil
}

// AUCMatrix は行列形式の入力に対してAUCを計算する（先頭列を使用）
func AUCMatrix(yTrue, yPred mat.Matrix) (float64, error) {
	t, p, err := firstColumns("AUCMatrix", yTrue, yPred)
	if err != nil {
		return 0, err
	}
	return AUC(t, p)
}

// BinaryLogLoss は二値分類の交差エントロピーを計算する
func BinaryLogLoss(yTrue, yPred *mat.VecDense) (float64, error) {
	n, err := checkPair("BinaryLogLoss", yTrue, yPred)
	if err != nil {
		return 0, err
	}
	if err := checkBinaryLabels("BinaryLogLoss", yTrue); err != nil {
		return 0, err
	}

	var sum float64
	for i := 0; i < n; i++ {
		p := math.Min(math.Max(yPred.AtVec(i), logLossEps), 1-logLossEps)
		if yTrue.AtVec(i) == 1 {
			sum -= math.Log(p)
		} else {
			sum -= math.Log(1 - p)
		}
	}
	return sum / float64(n), nil
}

func isEmpty(m mat.Matrix) bool {
	r, c := m.Dims()
	return r == 0 || c == 0
}

func firstColumns(op string, yTrue, yPred mat.Matrix) (*mat.VecDense, *mat.VecDense, error) {
	if yTrue == nil || yPred == nil {
		return nil, nil, errors.NewValueError(op, "nil matrix")
	}
	if isEmpty(yTrue) || isEmpty(yPred) {
		return nil, nil, errors.NewValueError(op, "empty matrix")
	}
	rTrue, _ := yTrue.Dims()
	rPred, _ := yPred.Dims()
	if rTrue != rPred {
		return nil, nil, errors.NewDimensionError(op, rTrue, rPred, 0)
	}
	t := mat.NewVecDense(rTrue, mat.Col(nil, 0, yTrue))
	p := mat.NewVecDense(rPred, mat.Col(nil, 0, yPred))
	return t, p, nil
}

// columnPair は n×1 行列のみを受け付ける
func columnPair(op string, yTrue, yPred mat.Matrix) (*mat.VecDense, *mat.VecDense, error) {
	if yTrue != nil && yPred != nil && !isEmpty(yTrue) && !isEmpty(yPred) {
		_, cTrue := yTrue.Dims()
		_, cPred := yPred.Dims()
		if cTrue != 1 || cPred != 1 {
			return nil, nil, errors.NewValueError(op, "must be a column vector (n×1 matrix)")
		}
	}
	return firstColumns(op, yTrue, yPred)
}
