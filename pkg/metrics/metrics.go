package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	DraftsSubmitted = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "draftdeck", Name: "drafts_submitted_total", Help: "Drafts submitted for approval, by kind."},
		[]string{"kind"},
	)
	DraftsReviewed = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "draftdeck", Name: "drafts_reviewed_total", Help: "Review decisions, by resulting status."},
		[]string{"decision"},
	)
	SlotsReserved = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "draftdeck", Name: "slots_reserved_total", Help: "Time slots reserved, by team."},
		[]string{"team"},
	)
	DraftsQueued = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "draftdeck", Name: "drafts_queued_total", Help: "Drafts placed on the waiting queue, by priority."},
		[]string{"priority"},
	)
	QueuePromotions = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "draftdeck", Name: "queue_promotions_total", Help: "Queued drafts promoted into freed slots, by team."},
		[]string{"team"},
	)
	DispatchOutcomes = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "draftdeck", Name: "dispatch_outcomes_total", Help: "Publication dispatch outcomes."},
		[]string{"outcome"},
	)
	SharesCreated = prometheus.NewCounter(
		prometheus.CounterOpts{Namespace: "draftdeck", Name: "shares_created_total", Help: "Share tokens minted."},
	)
	CommentsAdded = prometheus.NewCounter(
		prometheus.CounterOpts{Namespace: "draftdeck", Name: "comments_added_total", Help: "Comments appended to shared drafts."},
	)
	RateLimitAllowed = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "draftdeck", Name: "rate_limit_allowed_total", Help: "Number of allowed requests by limiter type."},
		[]string{"limiter"},
	)
	RateLimitRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "draftdeck", Name: "rate_limit_rejected_total", Help: "Number of rejected requests by limiter type."},
		[]string{"limiter"},
	)
)

func RegisterCollectors(reg prometheus.Registerer) {
	reg.MustRegister(
		DraftsSubmitted,
		DraftsReviewed,
		SlotsReserved,
		DraftsQueued,
		QueuePromotions,
		DispatchOutcomes,
		SharesCreated,
		CommentsAdded,
		RateLimitAllowed,
		RateLimitRejected,
	)
}
