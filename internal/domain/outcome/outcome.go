// Package outcome reduces per-item batch results into a job-level status.
package outcome

import "github.com/target/disclosure-collector/internal/domain/model"

// Status is the aggregate classification of a batch.
type Status string

const (
	// StatusSuccess means no item failed (including the empty batch).
	StatusSuccess Status = "success"
	// StatusPartialSuccess means some items failed and some succeeded.
	StatusPartialSuccess Status = "partial_success"
	// StatusFailed means every attempted item failed.
	StatusFailed Status = "failed"
)

// Settled is the outcome of one item: fulfilled when Err is nil.
type Settled struct {
	Key string
	Err error
}

// Fulfilled returns a successful outcome for key.
func Fulfilled(key string) Settled { return Settled{Key: key} }

// Rejected returns a failed outcome for key.
func Rejected(key string, err error) Settled { return Settled{Key: key, Err: err} }

// OK reports whether the item succeeded.
func (s Settled) OK() bool { return s.Err == nil }

// Summary is the aggregate of a set of settled outcomes.
type Summary struct {
	Status    Status `json:"status"`
	Collected int    `json:"collected"`
	Failed    int    `json:"failed"`
}

// Classify counts fulfilled and rejected outcomes and derives the batch status.
// The result depends only on the multiset of outcomes, never on their order.
func Classify(results []Settled) Summary {
	var s Summary
	for _, r := range results {
		if r.OK() {
			s.Collected++
		} else {
			s.Failed++
		}
	}
	s.Status = statusFor(s.Collected, s.Failed)
	return s
}

// Merge combines two summaries as if their outcomes had been classified together.
func (s Summary) Merge(other Summary) Summary {
	out := Summary{
		Collected: s.Collected + other.Collected,
		Failed:    s.Failed + other.Failed,
	}
	out.Status = statusFor(out.Collected, out.Failed)
	return out
}

// JobStatus maps the aggregate to the terminal job status: only a batch where every
// attempted item failed fails the job.
func (s Summary) JobStatus() model.JobStatus {
	if s.Status == StatusFailed {
		return model.JobStatusFailed
	}
	return model.JobStatusCompleted
}

// Total returns the number of attempted items.
func (s Summary) Total() int { return s.Collected + s.Failed }

func statusFor(collected, failed int) Status {
	switch {
	case failed == 0:
		return StatusSuccess
	case collected == 0:
		return StatusFailed
	default:
		return StatusPartialSuccess
	}
}
