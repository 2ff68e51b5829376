package retention

// Observer receives schedule and batch outcomes, typically for metrics.
type Observer interface {
	ScheduleBuilt(s *Schedule)
	BatchCompleted(r *BatchResult)
}

type nopObserver struct{}

func (nopObserver) ScheduleBuilt(*Schedule)     {}
func (nopObserver) BatchCompleted(*BatchResult) {}
