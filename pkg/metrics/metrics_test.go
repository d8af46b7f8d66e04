package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecorders(t *testing.T) {
	Register()
	Register() // 重复登记不应 panic

	before := testutil.ToFloat64(upstreamRequests.WithLabelValues("submit", "ok"))
	RecordUpstream("submit", "ok", 20*time.Millisecond)
	if got := testutil.ToFloat64(upstreamRequests.WithLabelValues("submit", "ok")); got != before+1 {
		t.Errorf("期望计数 +1，实际 %v -> %v", before, got)
	}

	RecordStep("next", "advanced")
	if got := testutil.ToFloat64(stepTransitions.WithLabelValues("next", "advanced")); got < 1 {
		t.Errorf("期望步骤计数 >= 1，实际 %v", got)
	}

	RecordSubmission("succeeded")
	if got := testutil.ToFloat64(submissions.WithLabelValues("succeeded")); got < 1 {
		t.Errorf("期望提交计数 >= 1，实际 %v", got)
	}

	SetActiveSessions(3)
	if got := testutil.ToFloat64(activeSessions); got != 3 {
		t.Errorf("期望会话数 3，实际 %v", got)
	}
}
