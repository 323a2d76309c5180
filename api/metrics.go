package api

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var submissionCounter = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "cyberhive_submissions_total",
	Help: "Flag submissions by mode and outcome",
}, []string{"mode", "outcome"})

func recordSubmission(mode, outcome string) {
	submissionCounter.WithLabelValues(mode, outcome).Inc()
}
