// Package scigoserve serves a trained model behind a small HTTP API and a
// form-based UI.
//
// The repository is split into three runtime pieces:
//
//   - cmd/predict-api loads a model artifact once and exposes
//     POST /predict, GET / and GET /model (package serving).
//   - cmd/predict-ui renders one numeric input per feature, posts the
//     ordered vector to the API and shows the prediction (package ui).
//   - cmd/summarize evaluates the model on a held-out CSV and writes
//     feature_names.json and model_performance.json, which the UI reads
//     at startup (packages summary, inspection, metrics).
//
// The estimators themselves live in sklearn/linear_model and implement the
// interfaces in core/model.
//
// # Quick Start
//
//	summarize --model.path model.gob --summarize.data_path test.csv
//	predict-api --model.path model.gob
//	API_URL=http://localhost:8000/predict predict-ui
//
// A request against the API:
//
//	curl -s localhost:8000/predict -d '{"features":[1.0,2.0]}'
//	{"prediction":1,"probabilities":{"0":0.12,"1":0.88},"predicted_probability":0.88}
//
// A vector of the wrong length is rejected with 422:
//
//	{"error":"Expected 2 features, got 1"}
//
// # Configuration
//
// Every binary reads defaults, then an optional YAML file (--config), then
// SCIGO_* environment variables, then flags. See package config.
package scigoserve
