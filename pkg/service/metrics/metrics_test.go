package metrics_test

import (
	"testing"
	"time"

	"github.com/m-mizutani/gt"

	"github.com/ensura-lab/ensura/pkg/service/metrics"
)

func TestCollector_ObserveAndSnapshot(t *testing.T) {
	c := metrics.New()

	c.Observe("chat_turn", 100*time.Millisecond, false)
	c.Observe("chat_turn", 300*time.Millisecond, true)

	snap := c.Snapshot()
	op, ok := snap.Operations["chat_turn"]
	gt.Bool(t, ok).True()
	gt.Value(t, op.Count).Equal(int64(2))
	gt.Value(t, op.ErrorCount).Equal(int64(1))
	gt.Value(t, op.TotalTime).Equal(0.4)
	gt.Value(t, op.AvgTime).Equal(0.2)
}

func TestCollector_ObserveExtra(t *testing.T) {
	c := metrics.New()

	c.ObserveExtra("llm_complete", 50*time.Millisecond, false, "total_tokens", 120)
	c.ObserveExtra("llm_complete", 70*time.Millisecond, false, "total_tokens", 80)

	op := c.Snapshot().Operations["llm_complete"]
	gt.Value(t, op.Count).Equal(int64(2))
	gt.Value(t, op.Extras["total_tokens"]).Equal(float64(200))
}

func TestCollector_RecordErrorAndReset(t *testing.T) {
	c := metrics.New()

	c.RecordError("capability_unavailable")
	c.RecordError("capability_unavailable")

	op := c.Snapshot().Operations["errors_capability_unavailable"]
	gt.Value(t, op.Count).Equal(int64(2))
	gt.Value(t, op.ErrorCount).Equal(int64(2))

	c.Reset()
	gt.Value(t, len(c.Snapshot().Operations)).Equal(0)
}
