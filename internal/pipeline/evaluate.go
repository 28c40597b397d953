package pipeline

// Confusion is a binary confusion matrix with departure (1) positive.
type Confusion struct {
	TrueNegatives  int `json:"true_negatives"`
	FalsePositives int `json:"false_positives"`
	FalseNegatives int `json:"false_negatives"`
	TruePositives  int `json:"true_positives"`
}

// Metrics summarizes held-out performance. They are reported to the operator
// and returned to the caller; they never gate artifact persistence: whether
// a model is good enough to release is a human decision.
type Metrics struct {
	Confusion Confusion `json:"confusion"`
	Accuracy  float64   `json:"accuracy"`
	Precision float64   `json:"precision"`
	Recall    float64   `json:"recall"`
	F2        float64   `json:"f2"`
}

// Evaluate computes the confusion matrix and precision/recall/F2 for the
// departure class. F-beta with beta=2 weighs recall over precision: missing
// a departure costs more than a false alarm.
func Evaluate(predicted []int, actual []float64) Metrics {
	var c Confusion
	for i := range predicted {
		truth := actual[i] == 1
		guess := predicted[i] == 1
		switch {
		case truth && guess:
			c.TruePositives++
		case truth && !guess:
			c.FalseNegatives++
		case !truth && guess:
			c.FalsePositives++
		default:
			c.TrueNegatives++
		}
	}

	m := Metrics{Confusion: c}
	total := c.TruePositives + c.TrueNegatives + c.FalsePositives + c.FalseNegatives
	if total > 0 {
		m.Accuracy = float64(c.TruePositives+c.TrueNegatives) / float64(total)
	}
	if c.TruePositives+c.FalsePositives > 0 {
		m.Precision = float64(c.TruePositives) / float64(c.TruePositives+c.FalsePositives)
	}
	if c.TruePositives+c.FalseNegatives > 0 {
		m.Recall = float64(c.TruePositives) / float64(c.TruePositives+c.FalseNegatives)
	}
	m.F2 = fbeta(m.Precision, m.Recall, 2)
	return m
}

func fbeta(precision, recall, beta float64) float64 {
	b2 := beta * beta
	den := b2*precision + recall
	if den == 0 {
		return 0
	}
	return (1 + b2) * precision * recall / den
}
