package ui

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/YuminosukeSato/scigo-serve/summary"
)

// NotAvailable is shown when the performance summary has no AUC.
const NotAvailable = "N/A"

// numberFormat formats sidebar numbers for a locale ("en" → 0.912, "de" → 0,912).
type numberFormat struct {
	p *message.Printer
}

func newNumberFormat(locale string) numberFormat {
	tag, err := language.Parse(locale)
	if err != nil {
		tag = language.English
	}
	return numberFormat{p: message.NewPrinter(tag)}
}

func (f numberFormat) metric(v float64) string     { return f.p.Sprintf("%.3f", v) }
func (f numberFormat) importance(v float64) string { return f.p.Sprintf("%.4f", v) }

func (f numberFormat) auc(v *float64) string {
	if v == nil {
		return NotAvailable
	}
	return f.metric(*v)
}

type sidebarView struct {
	Accuracy    string
	AUC         string
	TopFeatures []featureScoreView
}

type featureScoreView struct {
	Name  string
	Score string
}

func buildSidebar(perf *summary.Performance, f numberFormat) sidebarView {
	sb := sidebarView{
		Accuracy: f.metric(perf.TestAccuracy),
		AUC:      f.auc(perf.TestAUC),
	}
	for _, tf := range perf.TopFeatures {
		sb.TopFeatures = append(sb.TopFeatures, featureScoreView{Name: tf.Name, Score: f.importance(tf.Score)})
	}
	return sb
}
