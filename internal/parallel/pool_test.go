package parallel

import (
	"errors"
	"fmt"
	"runtime"
	"sync/atomic"
	"testing"
)

func TestPool_Create(t *testing.T) {
	pool := NewPool(4)
	defer pool.Close()

	if pool.Workers() != 4 {
		t.Errorf("Workers() = %d, want 4", pool.Workers())
	}
}

func TestPool_CreateZeroWorkers(t *testing.T) {
	pool := NewPool(0)
	defer pool.Close()

	want := runtime.GOMAXPROCS(0)
	if pool.Workers() != want {
		t.Errorf("Workers() = %d, want %d (GOMAXPROCS)", pool.Workers(), want)
	}
}

func TestPool_CreateNegativeWorkers(t *testing.T) {
	pool := NewPool(-3)
	defer pool.Close()

	want := runtime.GOMAXPROCS(0)
	if pool.Workers() != want {
		t.Errorf("Workers() = %d, want %d (GOMAXPROCS)", pool.Workers(), want)
	}
}

func TestPool_RunRasterizesEveryJob(t *testing.T) {
	pool := NewPool(4)
	defer pool.Close()

	const numJobs = 200
	jobs := make([]Job, numJobs)
	for i := range jobs {
		jobs[i] = Job{Ref: i, Width: 4, Height: 4}
	}

	var calls atomic.Int64
	outcomes := pool.Run(jobs, func(j Job) ([]byte, error) {
		calls.Add(1)
		buf := make([]byte, j.Width*j.Height)
		for i := range buf {
			buf[i] = byte(j.Ref.(int))
		}
		return buf, nil
	})

	if len(outcomes) != numJobs {
		t.Fatalf("got %d outcomes, want %d", len(outcomes), numJobs)
	}
	if int(calls.Load()) != numJobs {
		t.Fatalf("rasterize called %d times, want %d", calls.Load(), numJobs)
	}

	seen := make(map[int]bool, numJobs)
	for _, o := range outcomes {
		ref := o.Ref.(int)
		if seen[ref] {
			t.Fatalf("ref %d produced twice", ref)
		}
		seen[ref] = true
		if len(o.Pixels) != 16 {
			t.Errorf("ref %d: got %d pixels, want 16", ref, len(o.Pixels))
		}
		for _, p := range o.Pixels {
			if int(p) != ref {
				t.Errorf("ref %d: pixel = %d, want %d", ref, p, ref)
				break
			}
		}
	}
}

func TestPool_RunPropagatesPerJobErrors(t *testing.T) {
	pool := NewPool(2)
	defer pool.Close()

	errBad := errors.New("rasterization failed")
	jobs := []Job{{Ref: "ok"}, {Ref: "bad"}}

	outcomes := pool.Run(jobs, func(j Job) ([]byte, error) {
		if j.Ref == "bad" {
			return nil, errBad
		}
		return []byte{1, 2, 3}, nil
	})

	var gotErr bool
	for _, o := range outcomes {
		if o.Ref == "bad" {
			if !errors.Is(o.Err, errBad) {
				t.Errorf("bad job: err = %v, want %v", o.Err, errBad)
			}
			gotErr = true
		} else if o.Err != nil {
			t.Errorf("ok job: unexpected err %v", o.Err)
		}
	}
	if !gotErr {
		t.Fatal("expected the \"bad\" job's error to be reported")
	}
}

func TestPool_RunEmptyJobsIsNoop(t *testing.T) {
	pool := NewPool(2)
	defer pool.Close()

	outcomes := pool.Run(nil, func(Job) ([]byte, error) {
		t.Fatal("rasterize should not be called for an empty job list")
		return nil, nil
	})
	if outcomes != nil {
		t.Errorf("got %v, want nil", outcomes)
	}
}

func TestPool_RunAfterCloseIsNoop(t *testing.T) {
	pool := NewPool(2)
	pool.Close()

	outcomes := pool.Run([]Job{{Ref: 1}}, func(Job) ([]byte, error) {
		t.Fatal("rasterize should not be called on a closed pool")
		return nil, nil
	})
	if outcomes != nil {
		t.Errorf("got %v, want nil", outcomes)
	}
}

func TestPool_CloseIsIdempotent(t *testing.T) {
	pool := NewPool(2)
	pool.Close()
	pool.Close() // must not panic or block
}

func TestPool_RunCompletesManyMoreJobsThanWorkers(t *testing.T) {
	pool := NewPool(4)
	defer pool.Close()

	// 64 equal jobs spread over 4 worker queues: whether a job is run
	// by its own worker or stolen by a sibling, each one must yield an
	// outcome.
	jobs := make([]Job, 0, 64)
	for i := 0; i < 64; i++ {
		jobs = append(jobs, Job{Ref: fmt.Sprintf("job-%d", i), Width: 1, Height: 1})
	}

	outcomes := pool.Run(jobs, func(j Job) ([]byte, error) {
		return []byte{0xFF}, nil
	})
	if len(outcomes) != len(jobs) {
		t.Fatalf("got %d outcomes, want %d", len(outcomes), len(jobs))
	}
}
