// Package ui renders the prediction form and talks to the prediction API.
package ui

import (
	"github.com/YuminosukeSato/scigo-serve/summary"
)

// Assets are the static files the UI needs before it can serve anything.
type Assets struct {
	FeatureNames []string
	Performance  *summary.Performance
}

// LoadAssets reads both static files. Any error is fatal for the UI.
func LoadAssets(featureNamesPath, performancePath string) (*Assets, error) {
	names, err := summary.ReadFeatureNames(featureNamesPath)
	if err != nil {
		return nil, err
	}
	perf, err := summary.ReadPerformance(performancePath)
	if err != nil {
		return nil, err
	}
	return &Assets{FeatureNames: names, Performance: perf}, nil
}
