package journal

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/wondertwin-ai/blogcheck/internal/failure"
	"github.com/wondertwin-ai/blogcheck/internal/scenario"
)

func record(i int) Record {
	return Record{
		RunID:      "run-1",
		Scenario:   fmt.Sprintf("scenario %d", i),
		Passed:     i%2 == 0,
		DurationMS: int64(i),
		At:         time.Date(2026, 10, 18, 12, 0, i, 0, time.UTC),
	}
}

func TestAppendAndReopen(t *testing.T) {
	dir := t.TempDir()
	j, err := Open(dir)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	for i := 0; i < 3; i++ {
		if err := j.Append(record(i)); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}
	if err := j.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	j, err = Open(dir)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer j.Close()
	if err := j.Append(record(3)); err != nil {
		t.Fatalf("Append after reopen: %v", err)
	}

	var got []Record
	var indices []uint64
	err = j.Each(func(i uint64, r Record) error {
		indices = append(indices, i)
		got = append(got, r)
		return nil
	})
	if err != nil {
		t.Fatalf("Each: %v", err)
	}
	want := []Record{record(0), record(1), record(2), record(3)}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("records mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]uint64{1, 2, 3, 4}, indices); diff != "" {
		t.Errorf("indices mismatch (-want +got):\n%s", diff)
	}
}

func TestEachOnEmptyJournal(t *testing.T) {
	j, err := Open(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	defer j.Close()
	calls := 0
	if err := j.Each(func(uint64, Record) error { calls++; return nil }); err != nil {
		t.Fatalf("Each: %v", err)
	}
	if calls != 0 {
		t.Errorf("got %d records from an empty journal", calls)
	}
}

func TestEachStopsOnError(t *testing.T) {
	j, err := Open(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	defer j.Close()
	for i := 0; i < 3; i++ {
		j.Append(record(i))
	}
	stop := errors.New("stop")
	calls := 0
	err = j.Each(func(uint64, Record) error {
		calls++
		return stop
	})
	if !errors.Is(err, stop) || calls != 1 {
		t.Errorf("err = %v after %d calls", err, calls)
	}
}

func TestTailAndCompact(t *testing.T) {
	j, err := Open(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	defer j.Close()
	for i := 0; i < 5; i++ {
		if err := j.Append(record(i)); err != nil {
			t.Fatal(err)
		}
	}

	tail, err := j.Tail(2)
	if err != nil {
		t.Fatalf("Tail: %v", err)
	}
	if diff := cmp.Diff([]Record{record(3), record(4)}, tail); diff != "" {
		t.Errorf("tail mismatch (-want +got):\n%s", diff)
	}

	if err := j.Compact(3); err != nil {
		t.Fatalf("Compact: %v", err)
	}
	all, err := j.Tail(0)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]Record{record(2), record(3), record(4)}, all); diff != "" {
		t.Errorf("after compact (-want +got):\n%s", diff)
	}
	// appends continue after the surviving entries
	if err := j.Append(record(5)); err != nil {
		t.Fatalf("Append after compact: %v", err)
	}
	if err := j.Compact(10); err != nil {
		t.Fatalf("no-op compact: %v", err)
	}
}

func TestRecordFor(t *testing.T) {
	at := time.Date(2026, 10, 18, 9, 30, 0, 0, time.FixedZone("X", 3600))
	res := &scenario.Result{
		ScenarioName: "Blog app > Login > fails",
		Target:       "http://localhost:3003",
		Kind:         failure.KindTimeout,
		Err:          &failure.TimeoutError{Locator: "getByTestId('username')", Want: "visible and unique", Elapsed: time.Second},
		Duration:     1500 * time.Millisecond,
	}
	got := RecordFor("run-9", res, at)
	want := Record{
		RunID:      "run-9",
		Scenario:   "Blog app > Login > fails",
		Target:     "http://localhost:3003",
		Kind:       "timeout",
		Error:      res.Err.Error(),
		DurationMS: 1500,
		At:         at.UTC(),
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("record mismatch (-want +got):\n%s", diff)
	}
}
