// Package metrics emits the collector's standard metric set through a statsd.Sink.
package metrics

import (
	"strconv"
	"time"

	"github.com/target/disclosure-collector/internal/domain/outcome"
	apperrors "github.com/target/disclosure-collector/internal/errors"
	"github.com/target/disclosure-collector/internal/observability/statsd"
)

// Result constants for metric tagging.
const (
	ResultSuccess = "success"
	ResultError   = "error"
)

// JobMetric captures details about a job lifecycle event for metric emission.
type JobMetric struct {
	Kind       string
	Transition string
	Result     string
	Duration   time.Duration
	Err        error
}

// EmitJobLifecycle emits job transition counters and, when Duration is set, a timing.
func EmitJobLifecycle(sink statsd.Sink, in JobMetric) {
	if sink == nil {
		return
	}
	tags := map[string]string{
		"kind":       in.Kind,
		"transition": in.Transition,
		"result":     in.Result,
	}
	if in.Err != nil {
		tags["error_class"] = ErrorClass(in.Err)
	}
	sink.Count("job.transition", 1, tags)
	if in.Duration > 0 {
		sink.Timing("job.duration", in.Duration, CloneTags(tags))
	}
}

// EmitBatchOutcome records per-item counts for one batch. Duplicates are counted on their own
// since the summary leaves them out.
func EmitBatchOutcome(sink statsd.Sink, kind string, s outcome.Summary, duplicates int) {
	if sink == nil {
		return
	}
	tags := map[string]string{"kind": kind, "status": string(s.Status)}
	sink.Count("batch.collected", int64(s.Collected), tags)
	sink.Count("batch.failed", int64(s.Failed), CloneTags(tags))
	if duplicates > 0 {
		sink.Count("batch.duplicates", int64(duplicates), CloneTags(tags))
	}
}

// EmitStoreRetry counts one retry of a store operation.
func EmitStoreRetry(sink statsd.Sink, op string, attempt int, err error) {
	if sink == nil {
		return
	}
	sink.Count("store.retry", 1, map[string]string{
		"op":          op,
		"attempt":     strconv.Itoa(attempt),
		"error_class": ErrorClass(err),
	})
}

// EmitGrant counts an access grant request by outcome.
func EmitGrant(sink statsd.Sink, err error) {
	if sink == nil {
		return
	}
	tags := map[string]string{"result": ResultSuccess}
	if err != nil {
		tags["result"] = ResultError
		tags["error_class"] = ErrorClass(err)
	}
	sink.Count("grant.issue", 1, tags)
}

// EmitAuth counts an API key check by outcome.
func EmitAuth(sink statsd.Sink, ok, refreshed bool) {
	if sink == nil {
		return
	}
	result := ResultSuccess
	if !ok {
		result = ResultError
	}
	refresh := "false"
	if refreshed {
		refresh = "true"
	}
	sink.Count("auth.check", 1, map[string]string{"result": result, "refreshed": refresh})
}

// ErrorClass returns the error's kind for tagging, or "unclassified".
func ErrorClass(err error) string {
	if err == nil {
		return ""
	}
	if code := apperrors.GetCode(err); code != "" {
		return string(code)
	}
	return "unclassified"
}

// CloneTags creates a shallow copy of a tag map.
func CloneTags(src map[string]string) map[string]string {
	if len(src) == 0 {
		return nil
	}
	out := make(map[string]string, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out
}
