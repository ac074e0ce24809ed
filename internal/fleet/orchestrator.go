package fleet

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/bmcfleet/goldfish/internal/redfish"
)

// TargetResult is the outcome of one operation against one controller.
type TargetResult struct {
	Address string
	OK      bool
	JobID   string
	State   redfish.TaskState
	Message string
	Err     error
	Elapsed time.Duration
	index   int // Internal: used to maintain result order
}

// Detail returns the most useful description of the outcome: the error text
// when the operation never produced a job result, the job message otherwise.
func (r TargetResult) Detail() string {
	if r.Err != nil {
		return r.Err.Error()
	}
	return r.Message
}

// ApplyFunc runs one operation against one controller address. Implementations
// own their connection lifecycle: a fresh client per call, never shared
// across targets.
type ApplyFunc func(ctx context.Context, address string) TargetResult

// Orchestrator fans an operation out over a target list using a worker pool.
// One worker keeps execution strictly sequential in list order, which is the
// default: parallel imports power-cycle many hosts at once and must be
// opted into.
type Orchestrator struct {
	workers int
	logger  *slog.Logger
}

// NewOrchestrator creates an orchestrator with the specified number of workers.
func NewOrchestrator(workers int, logger *slog.Logger) *Orchestrator {
	if workers <= 0 {
		workers = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		workers: workers,
		logger:  logger,
	}
}

// Run applies fn to every target and returns one result per target, in the
// same order the targets were supplied. A target's failure is recorded in its
// result and never stops the run.
func (o *Orchestrator) Run(ctx context.Context, targets []string, fn ApplyFunc) []TargetResult {
	if len(targets) == 0 {
		return []TargetResult{}
	}

	jobsChan := make(chan indexedTarget, len(targets))
	resultsChan := make(chan TargetResult, len(targets))

	var wg sync.WaitGroup
	for i := 0; i < o.workers; i++ {
		wg.Add(1)
		go o.worker(ctx, jobsChan, resultsChan, fn, &wg)
	}

	for i, addr := range targets {
		jobsChan <- indexedTarget{address: addr, index: i}
	}
	close(jobsChan)

	go func() {
		wg.Wait()
		close(resultsChan)
	}()

	results := make([]TargetResult, 0, len(targets))
	for result := range resultsChan {
		results = append(results, result)
	}

	// Sort results by their original index to maintain order
	sort.Slice(results, func(i, j int) bool {
		return results[i].index < results[j].index
	})

	return results
}

// indexedTarget pairs an address with its original index for ordering results.
type indexedTarget struct {
	address string
	index   int
}

// worker processes targets from the jobs channel and sends results to the
// results channel.
func (o *Orchestrator) worker(ctx context.Context, jobsChan <-chan indexedTarget, resultsChan chan<- TargetResult, fn ApplyFunc, wg *sync.WaitGroup) {
	defer wg.Done()

	for jt := range jobsChan {
		select {
		case <-ctx.Done():
			// Drain remaining targets as failures so every target still
			// gets a recorded outcome.
			resultsChan <- TargetResult{Address: jt.address, Err: ctx.Err(), index: jt.index}
			continue
		default:
		}

		start := time.Now()
		result := fn(ctx, jt.address)
		result.Address = jt.address
		result.Elapsed = time.Since(start)
		result.index = jt.index

		if result.OK {
			o.logger.Info("target completed", "target", jt.address, "job", result.JobID, "state", result.State, "elapsed", result.Elapsed.Round(time.Millisecond))
		} else {
			o.logger.Error("target failed", "target", jt.address, "error", result.Detail())
		}

		resultsChan <- result
	}
}
