package inference

import (
	"math"
	"strconv"
)

// DefaultLabels is the class vocabulary of the bundled traffic model, in
// output order.
var DefaultLabels = []string{"car", "pedestrian", "traffic light"}

// Filter pairs every score at or above threshold with its label.
func Filter(scores []float32, labels []string, threshold float64) []Detection {
	dets := make([]Detection, 0, len(scores))
	for i, score := range scores {
		confidence := float64(score)
		if math.IsNaN(confidence) || confidence < threshold {
			continue
		}
		dets = append(dets, Detection{
			Label:      label(labels, i),
			Confidence: confidence,
		})
	}

	return dets
}

func label(labels []string, i int) string {
	if i < len(labels) {
		return labels[i]
	}

	return "class_" + strconv.Itoa(i)
}
