package observability

// PromAssessmentObserver maps essay pipeline events onto the Prometheus
// collectors registered by InitMetrics. It implements
// domain.AssessmentObserver.
type PromAssessmentObserver struct{}

// AssessmentCompleted records the outcome and total-score distribution.
func (PromAssessmentObserver) AssessmentCompleted(outcome string, total int) {
	AssessmentsTotal.WithLabelValues(outcome).Inc()
	AssessmentScoreHistogram.Observe(float64(total))
}
