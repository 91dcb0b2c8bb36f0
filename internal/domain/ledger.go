package domain

import "time"

// ErrorRecord describes a leaf category that could not be crawled.
type ErrorRecord struct {
	Level1  string `json:"level1"`
	Level2  string `json:"level2"`
	Level3  string `json:"level3"`
	Message string `json:"message"`
}

// Ledger collects isolated failures of one crawl run.
type Ledger struct {
	RunID   string        `json:"run_id"`
	Channel string        `json:"channel"`
	Time    time.Time     `json:"time"`
	Errors  []ErrorRecord `json:"errors"`
}

func NewLedger(runID, channel string, started time.Time) *Ledger {
	return &Ledger{
		RunID:   runID,
		Channel: channel,
		Time:    started,
		Errors:  make([]ErrorRecord, 0),
	}
}

// Record appends a failure for the given leaf path.
func (l *Ledger) Record(path CategoryPath, err error) {
	names := path.Names()
	l.Errors = append(l.Errors, ErrorRecord{
		Level1:  names[0],
		Level2:  names[1],
		Level3:  names[2],
		Message: err.Error(),
	})
}
