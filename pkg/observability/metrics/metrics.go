package metrics

import (
	"fmt"
	"net/http"
	"sync/atomic"
)

var (
	decisionsApproved    atomic.Int64
	decisionsConditional atomic.Int64
	decisionsDenied      atomic.Int64
	retrievalDegraded    atomic.Int64
	indexChunks          atomic.Int64
	indexDocuments       atomic.Int64
)

func Init() {}

func ObserveDecision(tier string, degraded bool) {
	switch tier {
	case "APPROVED":
		decisionsApproved.Add(1)
	case "CONDITIONAL":
		decisionsConditional.Add(1)
	case "DENIED":
		decisionsDenied.Add(1)
	}
	if degraded {
		retrievalDegraded.Add(1)
	}
}

func ObserveIndexCounts(chunks, documents int) {
	indexChunks.Store(int64(chunks))
	indexDocuments.Store(int64(documents))
}

func WritePrometheus(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	fmt.Fprintf(w, "# HELP claimsight_decisions_approved_total Number of cases decided as approved since process start.\n")
	fmt.Fprintf(w, "# TYPE claimsight_decisions_approved_total counter\n")
	fmt.Fprintf(w, "claimsight_decisions_approved_total %d\n", decisionsApproved.Load())

	fmt.Fprintf(w, "# HELP claimsight_decisions_conditional_total Number of cases decided as conditional since process start.\n")
	fmt.Fprintf(w, "# TYPE claimsight_decisions_conditional_total counter\n")
	fmt.Fprintf(w, "claimsight_decisions_conditional_total %d\n", decisionsConditional.Load())

	fmt.Fprintf(w, "# HELP claimsight_decisions_denied_total Number of cases decided as denied since process start.\n")
	fmt.Fprintf(w, "# TYPE claimsight_decisions_denied_total counter\n")
	fmt.Fprintf(w, "claimsight_decisions_denied_total %d\n", decisionsDenied.Load())

	fmt.Fprintf(w, "# HELP claimsight_retrieval_degraded_total Number of evaluations that ran without remote policy evidence.\n")
	fmt.Fprintf(w, "# TYPE claimsight_retrieval_degraded_total counter\n")
	fmt.Fprintf(w, "claimsight_retrieval_degraded_total %d\n", retrievalDegraded.Load())

	fmt.Fprintf(w, "# HELP claimsight_policy_index_chunks Number of chunks currently indexed.\n")
	fmt.Fprintf(w, "# TYPE claimsight_policy_index_chunks gauge\n")
	fmt.Fprintf(w, "claimsight_policy_index_chunks %d\n", indexChunks.Load())

	fmt.Fprintf(w, "# HELP claimsight_policy_index_documents Number of policy documents currently indexed.\n")
	fmt.Fprintf(w, "# TYPE claimsight_policy_index_documents gauge\n")
	fmt.Fprintf(w, "claimsight_policy_index_documents %d\n", indexDocuments.Load())
}
