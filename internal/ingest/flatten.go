package ingest

import (
	"strconv"
	"time"

	"github.com/clusterfleet/manager/internal/datastore/entities"
)

// FlattenSnapshot extracts every numeric leaf of a snapshot into sample
// rows. Object sections become "section.field" names, array elements
// "section.<index>.field". Non-numeric leaves are skipped.
func FlattenSnapshot(nodeID string, snapshot map[string]any) []entities.MetricSample {
	now := time.Now()
	var samples []entities.MetricSample

	appendSample := func(category, name string, value float64) {
		samples = append(samples, entities.MetricSample{
			NodeID:     nodeID,
			Category:   category,
			Name:       name,
			Value:      value,
			RecordedAt: now,
		})
	}

	for key, value := range snapshot {
		switch section := value.(type) {
		case map[string]any:
			for field, leaf := range section {
				if v, ok := asFloat64(leaf); ok {
					appendSample(key, key+"."+field, v)
				}
			}
		case []any:
			for idx, item := range section {
				elem, ok := item.(map[string]any)
				if !ok {
					continue
				}
				prefix := key + "." + strconv.Itoa(idx) + "."
				for field, leaf := range elem {
					if v, ok := asFloat64(leaf); ok {
						appendSample(key, prefix+field, v)
					}
				}
			}
		default:
			if v, ok := asFloat64(value); ok {
				appendSample("", key, v)
			}
		}
	}
	return samples
}

func asFloat64(v any) (float64, bool) {
	switch value := v.(type) {
	case float64:
		return value, true
	case float32:
		return float64(value), true
	case int:
		return float64(value), true
	case int64:
		return float64(value), true
	default:
		return 0, false
	}
}
