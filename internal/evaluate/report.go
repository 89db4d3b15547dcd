package evaluate

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// ReportFile is the report's file name inside the reports directory.
const ReportFile = "evaluation_report.txt"

var classNames = [2]string{"retained", "churned"}

// ClassificationReport renders per-class precision, recall, F1 and support
// followed by accuracy and the macro and weighted averages.
func ClassificationReport(yTrue, yPred []int) string {
	c := ConfusionMatrix(yTrue, yPred)
	scores := PerClass(c)
	total := len(yTrue)

	var b strings.Builder
	fmt.Fprintf(&b, "%12s %10s %10s %10s %10s\n\n", "", "precision", "recall", "f1-score", "support")
	for i, s := range scores {
		fmt.Fprintf(&b, "%12s %10.2f %10.2f %10.2f %10d\n", classNames[i], s.Precision, s.Recall, s.F1, s.Support)
	}
	b.WriteString("\n")
	fmt.Fprintf(&b, "%12s %10s %10s %10.2f %10d\n", "accuracy", "", "", Accuracy(yTrue, yPred), total)

	var macro, weighted ClassScore
	for _, s := range scores {
		macro.Precision += s.Precision / 2
		macro.Recall += s.Recall / 2
		macro.F1 += s.F1 / 2
		if total > 0 {
			w := float64(s.Support) / float64(total)
			weighted.Precision += w * s.Precision
			weighted.Recall += w * s.Recall
			weighted.F1 += w * s.F1
		}
	}
	fmt.Fprintf(&b, "%12s %10.2f %10.2f %10.2f %10d\n", "macro avg", macro.Precision, macro.Recall, macro.F1, total)
	fmt.Fprintf(&b, "%12s %10.2f %10.2f %10.2f %10d\n", "weighted avg", weighted.Precision, weighted.Recall, weighted.F1, total)
	return b.String()
}

// WriteReport writes the evaluation report for model into dir and returns
// the file path.
func WriteReport(dir, model string, m Metrics, report string, at time.Time) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create reports directory: %w", err)
	}

	rule := strings.Repeat("=", 60)
	var b strings.Builder
	fmt.Fprintf(&b, "%s\nMODEL EVALUATION REPORT\n%s\n\n", rule, rule)
	fmt.Fprintf(&b, "Model:     %s\nGenerated: %s\n\n", model, at.Format(time.RFC3339))
	fmt.Fprintf(&b, "METRICS:\n%s\n", strings.Repeat("-", 60))
	for _, kv := range []struct {
		name  string
		value float64
	}{
		{"ACCURACY", m.Accuracy},
		{"PRECISION", m.Precision},
		{"RECALL", m.Recall},
		{"F1_SCORE", m.F1},
		{"ROC_AUC", m.ROCAUC},
		{"AVG_PRECISION", m.AveragePrecision},
	} {
		if math.IsNaN(kv.value) {
			fmt.Fprintf(&b, "%-20s: n/a\n", kv.name)
			continue
		}
		fmt.Fprintf(&b, "%-20s: %.4f\n", kv.name, kv.value)
	}

	c := m.Confusion
	fmt.Fprintf(&b, "\nCONFUSION MATRIX:\n%s\n", strings.Repeat("-", 60))
	fmt.Fprintf(&b, "%12s %10s %10s\n", "", "pred 0", "pred 1")
	fmt.Fprintf(&b, "%12s %10d %10d\n", "actual 0", c.TN, c.FP)
	fmt.Fprintf(&b, "%12s %10d %10d\n", "actual 1", c.FN, c.TP)

	fmt.Fprintf(&b, "\n%s\nCLASSIFICATION REPORT:\n%s\n\n%s", rule, rule, report)

	path := filepath.Join(dir, ReportFile)
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return "", fmt.Errorf("failed to write evaluation report: %w", err)
	}
	return path, nil
}
