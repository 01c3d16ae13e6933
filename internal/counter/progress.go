package counter

import (
	"github.com/zippowriter/bigquery-dashboard/internal/source"
)

// progressScale is the overall progress range reported to the caller.
const progressScale = 100

// Reporter translates per-source progress into one overall 0-100 scale so
// a caller sees a single advancing counter across both adapters.
type Reporter struct {
	callback source.Progress
}

// NewReporter wraps a user callback. A nil callback yields a reporter
// whose sub-callbacks are no-ops.
func NewReporter(callback source.Progress) *Reporter {
	return &Reporter{callback: callback}
}

// Sub creates the progress callback handed to one adapter. offset and
// weight position the adapter's share inside the overall scale: an adapter
// at offset 50 with weight 50 maps its local progress onto 50-100.
func (r *Reporter) Sub(offset, weight int) source.Progress {
	if r == nil || r.callback == nil {
		return nil
	}
	return func(current, total int, message string) {
		scaled := offset
		if total > 0 {
			scaled = offset + current*weight/total
		}
		if scaled > offset+weight {
			scaled = offset + weight
		}
		r.callback(scaled, progressScale, message)
	}
}
