package jobs

import (
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	validationsSubmitted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "resource_validations_submitted", Help: "Validation jobs submitted",
	})
	validationsSkipped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "resource_validations_skipped", Help: "Validation jobs skipped because a newer request superseded them",
	})
	validationQueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "resource_validation_queue_depth", Help: "Validation jobs waiting for a worker",
	})
)

// Runner performs one validation pass for a resource. The stale callback
// reports whether a newer request for the same resource has been submitted;
// implementations must consult it before committing any results.
type Runner interface {
	Run(resourceId uuid.UUID, resourceType string, stale func() bool)
}

// Dispatcher accepts validation requests for asynchronous execution.
type Dispatcher interface {
	SubmitValidation(resourceId uuid.UUID, resourceType string)
}

type validationJob struct {
	resourceId   uuid.UUID
	resourceType string
	generation   uint64
}

// LocalDispatcher runs validations on a background worker goroutine within
// this process. Requests for the same resource are serialized by submission
// order; only the most recently submitted request for a resource is allowed
// to commit (last write wins).
type LocalDispatcher struct {
	runner Runner

	queue chan validationJob
	stop  chan bool

	mu          sync.Mutex
	generations map[uuid.UUID]uint64
}

func NewLocalDispatcher(runner Runner, queueSize int) *LocalDispatcher {
	return &LocalDispatcher{
		runner:      runner,
		queue:       make(chan validationJob, queueSize),
		stop:        make(chan bool, 1),
		generations: map[uuid.UUID]uint64{},
	}
}

func (d *LocalDispatcher) SubmitValidation(resourceId uuid.UUID, resourceType string) {
	d.mu.Lock()
	d.generations[resourceId]++
	generation := d.generations[resourceId]
	d.mu.Unlock()

	validationsSubmitted.Inc()
	validationQueueDepth.Inc()
	d.queue <- validationJob{resourceId: resourceId, resourceType: resourceType, generation: generation}
}

func (d *LocalDispatcher) stale(job validationJob) func() bool {
	return func() bool {
		d.mu.Lock()
		defer d.mu.Unlock()
		return d.generations[job.resourceId] != job.generation
	}
}

// Worker processes validation jobs until Stop is called. Run it in its own
// goroutine.
func (d *LocalDispatcher) Worker() {
	slog.Info("validation worker: starting")
	for {
		select {
		case job := <-d.queue:
			validationQueueDepth.Dec()
			if d.stale(job)() {
				slog.Info("validation worker: skipping superseded job", "resource_id", job.resourceId, "resource_type", job.resourceType)
				validationsSkipped.Inc()
				continue
			}
			d.runner.Run(job.resourceId, job.resourceType, d.stale(job))
		case <-d.stop:
			slog.Info("validation worker: stopped")
			return
		}
	}
}

func (d *LocalDispatcher) Stop() {
	close(d.stop)
}

// SyncDispatcher executes validations inline on the caller's goroutine. Used
// in tests so results are visible as soon as the request returns.
type SyncDispatcher struct {
	Runner Runner
}

func (d *SyncDispatcher) SubmitValidation(resourceId uuid.UUID, resourceType string) {
	d.Runner.Run(resourceId, resourceType, func() bool { return false })
}
