package netadapter

import "fmt"

// OperationResult reports the outcome of one enable/disable step.
type OperationResult struct {
	DeviceID string `json:"deviceId"`
	Name     string `json:"name"`
	Success  bool   `json:"success"`
	Message  string `json:"message"`
}

// BatchResult aggregates per-adapter results with partial-success counts.
type BatchResult struct {
	Succeeded int               `json:"succeeded"`
	Failed    int               `json:"failed"`
	Results   []OperationResult `json:"results"`
}

// Ok reports whether every step in the batch succeeded.
func (r BatchResult) Ok() bool {
	return r.Failed == 0
}

// Summary returns a one-line report, e.g. "3 succeeded, 2 failed".
func (r BatchResult) Summary() string {
	return fmt.Sprintf("%d succeeded, %d failed", r.Succeeded, r.Failed)
}

func (r *BatchResult) add(op OperationResult) {
	if op.Success {
		r.Succeeded++
	} else {
		r.Failed++
	}
	r.Results = append(r.Results, op)
}
