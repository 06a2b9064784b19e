// Copyright 2024, dawgz-go.

package engine

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/dawgz-go/dawgz/job"
)

// dummyExecutable wraps a job's real body with START/END trace lines and a
// short randomized sleep in place of actually running it, per spec.md §6's
// dummy backend. The Python implementation this module descends from never
// names a "dummy" job type beyond a scheduler-selection string, so this is
// fleshed out fresh in the teacher's idiom rather than ported. rand.Rand
// isn't safe for concurrent use, and array tasks call Run concurrently, so
// draws are serialized with a mutex.
type dummyExecutable struct {
	name string
	mu   sync.Mutex
	rng  *rand.Rand
}

// WrapDummy returns a copy of j whose body is replaced with a trace-and-sleep
// stand-in, seeded from seed so runs are reproducible under test. Array jobs
// get one dummy invocation per index, exactly like the real body would.
func WrapDummy(j job.Job, seed int64) job.Job {
	j.Body = &dummyExecutable{name: j.Name, rng: rand.New(rand.NewSource(seed))}
	return j
}

func (d *dummyExecutable) Run(ctx context.Context, index int) error {
	logger := log.WithFields(log.Fields{"job": d.name, "index": index})
	logger.Infof("START %s", d.name)

	d.mu.Lock()
	delay := time.Duration(50+d.rng.Intn(200)) * time.Millisecond
	d.mu.Unlock()

	select {
	case <-time.After(delay):
	case <-ctx.Done():
		return ctx.Err()
	}

	logger.Infof("END %s", d.name)
	return nil
}

func (d *dummyExecutable) Serialize() ([]byte, error) {
	return []byte(fmt.Sprintf(`{"dummy":%q}`, d.name)), nil
}
