// Package metrics declares the Prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// SettlementRuns counts aggregation passes by result.
	SettlementRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "payup_settlement_runs_total",
		Help: "Settlement aggregation passes by result",
	}, []string{"result"})

	// SharesCompleted counts shares marked complete.
	SharesCompleted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "payup_shares_completed_total",
		Help: "Request shares marked complete",
	})

	// OpenPairs is the number of pairs with a nonzero net after the last run.
	OpenPairs = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "payup_open_pairs",
		Help: "Pairs with a nonzero net balance after the last settlement run",
	})

	// PaymentsRecorded counts payments applied to balances by source.
	PaymentsRecorded = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "payup_payments_recorded_total",
		Help: "Payments applied to pairwise balances by source",
	}, []string{"source"})

	// RequestsPublished counts requests booked onto balances.
	RequestsPublished = promauto.NewCounter(prometheus.CounterOpts{
		Name: "payup_requests_published_total",
		Help: "Payment requests published and booked onto balances",
	})

	// Reminders counts reminder state machine events.
	// event is one of created, suppressed, paid, not_paid, conflict.
	Reminders = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "payup_reminders_total",
		Help: "Reminder events by type",
	}, []string{"event"})

	// MailSends counts outgoing mails by kind and result.
	MailSends = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "payup_mail_sends_total",
		Help: "Outgoing mails by kind and result",
	}, []string{"kind", "result"})

	// SweepDuration tracks how long a notification sweep takes.
	SweepDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "payup_sweep_duration_seconds",
		Help:    "Notification sweep duration in seconds",
		Buckets: prometheus.ExponentialBuckets(0.01, 2, 12), // 10ms to ~40s
	})

	// ProviderCalls counts hosted payment provider calls by operation and result.
	ProviderCalls = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "payup_provider_calls_total",
		Help: "Hosted payment provider calls by operation and result",
	}, []string{"operation", "result"})

	// StatementLines counts imported bank statement lines by outcome.
	StatementLines = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "payup_statement_lines_total",
		Help: "Imported bank statement lines by outcome",
	}, []string{"outcome"})

	// RPCDuration tracks connect handler latency by procedure and code.
	RPCDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "payup_rpc_duration_seconds",
		Help:    "RPC handler duration in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"procedure", "code"})
)

// Result returns the label value for an error outcome.
func Result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
