package scheduler

import (
	"sync/atomic"
	"testing"
	"time"
)

func TestSchedulerAddJob(t *testing.T) {
	s := NewScheduler()
	defer s.Stop()

	if err := s.AddJob("minutely", "* * * * *", func() {}); err != nil {
		t.Errorf("expected no error adding job, got %v", err)
	}
	if err := s.AddJob("prune", DefaultPruneSchedule, func() {}); err != nil {
		t.Errorf("expected descriptor schedule to parse, got %v", err)
	}
	if err := s.AddJob("bad", "not a schedule", func() {}); err == nil {
		t.Error("expected error for invalid expression")
	}
	if _, ok := s.NextRun("bad"); ok {
		t.Error("invalid job should not be registered")
	}
}

func TestSchedulerReplaceAndRemove(t *testing.T) {
	s := NewScheduler()
	defer s.Stop()

	if err := s.AddJob("job", "@every 1h", func() {}); err != nil {
		t.Fatal(err)
	}
	first, _ := s.NextRun("job")
	if err := s.AddJob("job", "@every 2h", func() {}); err != nil {
		t.Fatal(err)
	}
	second, ok := s.NextRun("job")
	if !ok || !second.After(first) {
		t.Errorf("replaced job should run later: first=%v second=%v", first, second)
	}
	if !s.RemoveJob("job") {
		t.Error("expected RemoveJob to report an existing job")
	}
	if s.RemoveJob("job") {
		t.Error("expected RemoveJob to report a missing job")
	}
}

func TestSchedulerRunsJob(t *testing.T) {
	s := NewScheduler()
	defer s.Stop()

	var runs atomic.Int32
	if err := s.AddJob("tick", "@every 1s", func() { runs.Add(1) }); err != nil {
		t.Fatal(err)
	}
	deadline := time.Now().Add(5 * time.Second)
	for runs.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(50 * time.Millisecond)
	}
	if runs.Load() == 0 {
		t.Error("job did not run within 5s")
	}
}
