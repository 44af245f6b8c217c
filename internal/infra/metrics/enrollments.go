package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(enrollmentsTotal)
}

var enrollmentsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "billing_enrollments_total",
		Help: "Marathon enrollments by kind (free/paid).",
	},
	[]string{"kind"},
)

func IncEnrollment(kind string) {
	enrollmentsTotal.WithLabelValues(norm(kind)).Inc()
}
