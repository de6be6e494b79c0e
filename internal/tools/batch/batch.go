package batch

import (
	"github.com/teemow/calassist/internal/calendar"
)

// Status values for a single batch item.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Result represents the result of a single operation in a batch
type Result struct {
	ID         string `json:"id"`
	CalendarID string `json:"calendarId"`
	Status     string `json:"status"` // "success" or "error"
	Result     any    `json:"result,omitempty"`
	Error      string `json:"error,omitempty"`
}

// BatchResult represents the aggregated results of a batch operation
type BatchResult struct {
	Total      int      `json:"total"`
	Successful int      `json:"successful"`
	Failed     int      `json:"failed"`
	Results    []Result `json:"results"`
}

// OK reports whether every item succeeded.
func (b BatchResult) OK() bool {
	return b.Failed == 0
}

// Summarize aggregates per-item results.
func Summarize(results []Result) BatchResult {
	br := BatchResult{
		Total:   len(results),
		Results: results,
	}
	if br.Results == nil {
		br.Results = []Result{}
	}

	for _, r := range results {
		if r.Status == StatusSuccess {
			br.Successful++
		} else {
			br.Failed++
		}
	}
	return br
}

// ProcessBatch executes fn on each event reference and collects results.
// A failing item never stops the remaining ones.
func ProcessBatch(refs []calendar.Ref, fn func(ref calendar.Ref) (any, error)) []Result {
	results := make([]Result, 0, len(refs))

	for _, ref := range refs {
		res, err := fn(ref)
		if err != nil {
			results = append(results, NewErrorResult(ref, err))
		} else {
			results = append(results, NewSuccessResult(ref, res))
		}
	}

	return results
}

// NewSuccessResult creates a success result
func NewSuccessResult(ref calendar.Ref, result any) Result {
	return Result{
		ID:         ref.EventID,
		CalendarID: ref.CalendarID,
		Status:     StatusSuccess,
		Result:     result,
	}
}

// NewErrorResult creates an error result
func NewErrorResult(ref calendar.Ref, err error) Result {
	return Result{
		ID:         ref.EventID,
		CalendarID: ref.CalendarID,
		Status:     StatusError,
		Error:      err.Error(),
	}
}
