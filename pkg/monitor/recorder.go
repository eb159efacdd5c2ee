package monitor

import (
	"sync"
	"time"
)

// CycleRecord describes one completed sampling cycle.
type CycleRecord struct {
	Time          time.Time `json:"time"`
	TotalCapacity int       `json:"totalCapacity"`
	State         State     `json:"state"`
	Action        Action    `json:"action"`
}

// Recorder keeps the last N cycle records in memory.
type Recorder struct {
	MaxRecordCount int
	// Interval is the expected time between two cycles.
	Interval time.Duration
	Records  []CycleRecord
	mu       *sync.Mutex
}

// NewRecorder returns a Recorder holding at most maxRecordCount records.
func NewRecorder(maxRecordCount int, interval time.Duration) *Recorder {
	return &Recorder{
		MaxRecordCount: maxRecordCount,
		Interval:       interval,
		Records:        make([]CycleRecord, 0),
		mu:             &sync.Mutex{},
	}
}

// Add appends a record, dropping the oldest one when full.
func (r *Recorder) Add(rec CycleRecord) {
	r.mu.Lock()
	defer r.mu.Unlock()

	// Strip monotonic clock reading, so time.Since stays accurate across
	// system sleep.
	rec.Time = rec.Time.Round(0)

	if len(r.Records) >= r.MaxRecordCount {
		r.Records = r.Records[1:]
	}
	r.Records = append(r.Records, rec)
}

// GetRecords returns a copy of the records, oldest first.
func (r *Recorder) GetRecords() []CycleRecord {
	r.mu.Lock()
	defer r.mu.Unlock()

	return append([]CycleRecord(nil), r.Records...)
}

// GetLastRecord returns the newest record.
func (r *Recorder) GetLastRecord() (CycleRecord, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.Records) == 0 {
		return CycleRecord{}, false
	}
	return r.Records[len(r.Records)-1], true
}

// GetRecordsIn returns the number of continuous records in the last duration.
func (r *Recorder) GetRecordsIn(last time.Duration) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	// The last record must be within the last duration.
	if len(r.Records) > 0 && time.Since(r.Records[len(r.Records)-1].Time) >= r.Interval+time.Second {
		return 0
	}

	// Continuous records are at most Interval+1s apart.
	count := 0
	for i := len(r.Records) - 1; i >= 0; i-- {
		record := r.Records[i].Time
		if time.Since(record) > last {
			break
		}

		theRecordAfter := record
		if i+1 < len(r.Records) {
			theRecordAfter = r.Records[i+1].Time
		}

		if theRecordAfter.Sub(record) >= r.Interval+time.Second {
			break
		}
		count++
	}

	return count
}
