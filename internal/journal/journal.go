// Package journal keeps an append-only history of scenario results in a
// write-ahead log, one JSON record per entry.
package journal

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/tidwall/wal"

	"github.com/wondertwin-ai/blogcheck/internal/scenario"
)

// Record is one scenario outcome.
type Record struct {
	RunID      string    `json:"run_id"`
	Scenario   string    `json:"scenario"`
	Target     string    `json:"target,omitempty"`
	Passed     bool      `json:"passed"`
	Kind       string    `json:"kind,omitempty"`
	Error      string    `json:"error,omitempty"`
	DurationMS int64     `json:"duration_ms"`
	At         time.Time `json:"at"`
}

// RecordFor converts a scenario result.
func RecordFor(runID string, res *scenario.Result, at time.Time) Record {
	r := Record{
		RunID:      runID,
		Scenario:   res.ScenarioName,
		Target:     res.Target,
		Passed:     res.Passed,
		Kind:       string(res.Kind),
		DurationMS: res.Duration.Milliseconds(),
		At:         at.UTC(),
	}
	if res.Err != nil {
		r.Error = res.Err.Error()
	}
	return r
}

// NewRunID names a run after its start time and process.
func NewRunID(start time.Time) string {
	return fmt.Sprintf("%s-%d", start.UTC().Format("20060102T150405.000Z"), os.Getpid())
}

// Journal is safe for concurrent use.
type Journal struct {
	mu        sync.Mutex
	log       *wal.Log
	nextIndex uint64
}

// Open opens or creates the journal in dir.
func Open(dir string) (*Journal, error) {
	log, err := wal.Open(dir, &wal.Options{
		NoSync: true,
		NoCopy: true,
	})
	if err != nil {
		return nil, errors.WithMessagef(err, "could not open journal %s", dir)
	}
	last, err := log.LastIndex()
	if err != nil {
		log.Close()
		return nil, errors.WithMessage(err, "could not read last index")
	}
	// the log indexes from 1
	return &Journal{log: log, nextIndex: last + 1}, nil
}

// Append writes r as the next entry.
func (j *Journal) Append(r Record) error {
	data, err := json.Marshal(r)
	if err != nil {
		return errors.WithMessage(err, "could not marshal record")
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	if err := j.log.Write(j.nextIndex, data); err != nil {
		return errors.WithMessagef(err, "could not write index %d", j.nextIndex)
	}
	j.nextIndex++
	return nil
}

// Each calls fn for every record, oldest first, stopping at fn's first
// error.
func (j *Journal) Each(fn func(index uint64, r Record) error) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	first, err := j.log.FirstIndex()
	if err != nil {
		return errors.WithMessage(err, "could not read first index")
	}
	last, err := j.log.LastIndex()
	if err != nil {
		return errors.WithMessage(err, "could not read last index")
	}
	if first == 0 {
		return nil
	}
	for i := first; i <= last; i++ {
		data, err := j.log.Read(i)
		if err != nil {
			return errors.WithMessagef(err, "could not read index %d", i)
		}
		var r Record
		if err := json.Unmarshal(data, &r); err != nil {
			return errors.WithMessagef(err, "could not decode index %d, is the journal corrupt?", i)
		}
		if err := fn(i, r); err != nil {
			return err
		}
	}
	return nil
}

// Tail returns up to n of the most recent records, oldest first.
func (j *Journal) Tail(n int) ([]Record, error) {
	var out []Record
	err := j.Each(func(_ uint64, r Record) error {
		out = append(out, r)
		if n > 0 && len(out) > n {
			out = out[1:]
		}
		return nil
	})
	return out, err
}

// Compact drops all but the newest keep records.
func (j *Journal) Compact(keep int) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	last := j.nextIndex - 1
	if keep <= 0 || last <= uint64(keep) {
		return nil
	}
	first, err := j.log.FirstIndex()
	if err != nil {
		return errors.WithMessage(err, "could not read first index")
	}
	cut := last - uint64(keep) + 1
	if cut <= first {
		return nil
	}
	return errors.WithMessagef(j.log.TruncateFront(cut), "could not truncate to index %d", cut)
}

// Close flushes and closes the journal.
func (j *Journal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if err := j.log.Sync(); err != nil {
		j.log.Close()
		return errors.WithMessage(err, "could not sync journal")
	}
	return j.log.Close()
}
