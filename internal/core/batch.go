package core

// BatchItemResult is the outcome for a single order inside a batch operation.
// Skipped marks an idempotent no-op (already acknowledged, already submitted).
type BatchItemResult struct {
	OrderNumber OrderNumber `json:"order_number"`
	OK          bool        `json:"ok"`
	Skipped     bool        `json:"skipped,omitempty"`
	Error       string      `json:"error,omitempty"`
}

// BatchResult aggregates a batch run. Batch operations never abort on a
// single item's failure.
type BatchResult struct {
	Processed int               `json:"processed"`
	Succeeded int               `json:"succeeded"`
	Skipped   int               `json:"skipped"`
	Failed    int               `json:"failed"`
	Items     []BatchItemResult `json:"items"`
}

func (b *BatchResult) add(item BatchItemResult) {
	b.Processed++
	switch {
	case item.Skipped:
		b.Skipped++
	case item.OK:
		b.Succeeded++
	default:
		b.Failed++
	}
	b.Items = append(b.Items, item)
}
