package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "quizassign"

var (
	assignmentsIssued = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "assignments_issued_total",
		Help:      "Assignments created by the issuer, by result.",
	}, []string{"result"})

	submissions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "submissions_total",
		Help:      "Attempt submissions, by trigger and result.",
	}, []string{"trigger", "result"})

	lateSubmissions = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "late_submissions_total",
		Help:      "Completed assignments flagged as submitted late.",
	})

	activeSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "attempt_sessions_active",
		Help:      "Attempt sessions currently held in memory.",
	})
)

func AssignmentIssued(ok bool) {
	assignmentsIssued.WithLabelValues(result(ok)).Inc()
}

func SubmissionRecorded(trigger string, ok, late bool) {
	submissions.WithLabelValues(trigger, result(ok)).Inc()
	if ok && late {
		lateSubmissions.Inc()
	}
}

func SessionOpened() { activeSessions.Inc() }
func SessionClosed() { activeSessions.Dec() }

func result(ok bool) string {
	if ok {
		return "success"
	}
	return "failure"
}
