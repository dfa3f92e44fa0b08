// Package metrics exposes prometheus counters for the write paths whose
// secondary consistency writes can fail without failing the request.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	BooksAdded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "books_added_total",
		Help: "Number of books successfully added to the catalogue.",
	})

	FriendRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "friend_requests_total",
		Help: "Friend relationship transitions by action.",
	}, []string{"action"})

	// ConsistencyRepairFailures counts secondary writes that failed after
	// their primary write succeeded: the author back-reference append and
	// the requester-side friends append. These leave a documented transient
	// inconsistency and are never surfaced to the caller.
	ConsistencyRepairFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "consistency_repair_failures_total",
		Help: "Secondary consistency-maintaining writes that exhausted their retries.",
	}, []string{"operation"})
)
