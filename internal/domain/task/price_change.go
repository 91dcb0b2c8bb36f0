package task

type PriceChangeTask struct {
	RunID     string  `json:"run_id"`
	PID       string  `json:"pid"`
	Channel   string  `json:"channel"`
	OldPrice  int64   `json:"old_price"`
	NewPrice  int64   `json:"new_price"`
	PriceUnit float64 `json:"price_unit"` // Recomputed price per spec unit
}

func (t *PriceChangeTask) TaskType() string {
	return "PriceChangeTask"
}

func (t *PriceChangeTask) TaskValue() ([]byte, error) {
	return DefaultTaskValue(t)
}
