package dispatch

import (
	"context"
	"fmt"
	"hash/fnv"
	"log/slog"
	"sync"
	"time"

	appDomain "kyc-backend/internal/domain/application"
	userDomain "kyc-backend/internal/domain/user"
	"kyc-backend/internal/infrastructure/metrics"

	"github.com/google/uuid"
)

// Mirror recomputes an owner's kyc_status from the committed application.
type Mirror interface {
	ResyncOwner(ctx context.Context, ownerID string) (userDomain.KYCStatus, error)
}

// Releaser deletes storage objects no application references any more.
type Releaser interface {
	Delete(ctx context.Context, ref string) error
}

type Config struct {
	Workers      int
	QueueSize    int
	JobTimeout   time.Duration
	MaxAttempts  int
	RetryBase    time.Duration
	RetryMax     time.Duration
	PollInterval time.Duration
	PollBatch    int
}

func (c Config) withDefaults() Config {
	if c.Workers < 1 {
		c.Workers = 8
	}
	if c.QueueSize < 1 {
		c.QueueSize = 256
	}
	if c.JobTimeout <= 0 {
		c.JobTimeout = 5 * time.Second
	}
	if c.MaxAttempts < 1 {
		c.MaxAttempts = 5
	}
	if c.RetryBase <= 0 {
		c.RetryBase = time.Second
	}
	if c.RetryMax <= 0 {
		c.RetryMax = time.Minute
	}
	if c.PollInterval <= 0 {
		c.PollInterval = time.Second
	}
	if c.PollBatch < 1 {
		c.PollBatch = 100
	}
	return c
}

// Dispatcher runs post-commit side effects. Jobs for one owner land on one
// shard and run one at a time. Mirror jobs re-read the application under the
// user row lock, so whichever runs last writes the latest committed status.
// Failed jobs go through the retry queue.
type Dispatcher struct {
	cfg      Config
	mirror   Mirror
	notifier appDomain.Notifier
	store    Releaser
	retry    RetryQueue
	log      *slog.Logger
	metrics  *metrics.Metrics
	now      func() time.Time

	shards []chan Job
	// mu orders Enqueue's send against shutdown: once stopped is set under
	// the write lock no further job reaches a shard.
	mu      sync.RWMutex
	stopped bool
}

type Option func(*Dispatcher)

func WithLogger(l *slog.Logger) Option { return func(d *Dispatcher) { d.log = l } }

func WithMetrics(m *metrics.Metrics) Option { return func(d *Dispatcher) { d.metrics = m } }

func New(cfg Config, mirror Mirror, notifier appDomain.Notifier, store Releaser, retry RetryQueue, opts ...Option) *Dispatcher {
	cfg = cfg.withDefaults()
	if retry == nil {
		retry = NewMemoryQueue()
	}
	d := &Dispatcher{
		cfg:      cfg,
		mirror:   mirror,
		notifier: notifier,
		store:    store,
		retry:    retry,
		log:      slog.Default(),
		now:      func() time.Time { return time.Now().UTC() },
		shards:   make([]chan Job, cfg.Workers),
	}
	for i := range d.shards {
		d.shards[i] = make(chan Job, cfg.QueueSize)
	}
	for _, o := range opts {
		o(d)
	}
	return d
}

// Dispatch implements the orchestrator's effect sink. It never blocks.
func (d *Dispatcher) Dispatch(ctx context.Context, a *appDomain.Application, fx appDomain.Effects) {
	for _, job := range Jobs(a, fx) {
		d.Enqueue(ctx, job)
	}
}

func (d *Dispatcher) Enqueue(ctx context.Context, job Job) {
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	d.mu.RLock()
	sent := false
	if !d.stopped {
		select {
		case d.shard(job.OwnerID) <- job:
			sent = true
		default:
			// shard saturated; park instead of blocking the request path
		}
	}
	d.mu.RUnlock()
	if !sent {
		d.park(ctx, job, d.now())
	}
}

// Run starts the workers and the retry poller and blocks until ctx is done.
// Jobs still buffered at shutdown are parked in the retry queue.
func (d *Dispatcher) Run(ctx context.Context) error {
	var wg sync.WaitGroup
	for _, ch := range d.shards {
		wg.Add(1)
		go func(ch chan Job) {
			defer wg.Done()
			d.work(ctx, ch)
		}(ch)
	}

	ticker := time.NewTicker(d.cfg.PollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			d.mu.Lock()
			d.stopped = true
			d.mu.Unlock()
			wg.Wait()
			// workers may have drained before a concurrent Enqueue landed
			d.drain(context.WithoutCancel(ctx))
			return nil
		case <-ticker.C:
			d.poll(ctx)
		}
	}
}

func (d *Dispatcher) work(ctx context.Context, ch chan Job) {
	for {
		select {
		case <-ctx.Done():
			d.drainShard(context.WithoutCancel(ctx), ch)
			return
		case job := <-ch:
			d.run(ctx, job)
		}
	}
}

// drain parks whatever is still buffered in any shard.
func (d *Dispatcher) drain(ctx context.Context) {
	for _, ch := range d.shards {
		d.drainShard(ctx, ch)
	}
}

func (d *Dispatcher) drainShard(ctx context.Context, ch chan Job) {
	for {
		select {
		case job := <-ch:
			d.park(ctx, job, d.now())
		default:
			return
		}
	}
}

func (d *Dispatcher) run(ctx context.Context, job Job) {
	start := time.Now()
	jctx, cancel := context.WithTimeout(ctx, d.cfg.JobTimeout)
	err := d.exec(jctx, job)
	cancel()
	if err == nil {
		d.metrics.ObserveEffect(string(job.Kind), "ok", time.Since(start))
		return
	}
	d.fail(ctx, job, err, time.Since(start))
}

func (d *Dispatcher) exec(ctx context.Context, job Job) error {
	switch job.Kind {
	case KindResync:
		got, err := d.mirror.ResyncOwner(ctx, job.OwnerID)
		if err == nil && job.Status != "" && got != job.Status {
			d.log.DebugContext(ctx, "mirror follows a later transition",
				"job_id", job.ID, "owner_id", job.OwnerID, "dispatched", job.Status, "current", got)
		}
		return err
	case KindNotify:
		if d.notifier == nil || job.Event == nil {
			return nil
		}
		return d.notifier.Notify(ctx, *job.Event)
	case KindRelease:
		if d.store == nil {
			return nil
		}
		return d.store.Delete(ctx, job.StorageRef)
	}
	return fmt.Errorf("unknown job kind %q", job.Kind)
}

func (d *Dispatcher) fail(ctx context.Context, job Job, err error, took time.Duration) {
	job.Attempt++
	if job.Attempt >= d.cfg.MaxAttempts {
		d.metrics.ObserveEffect(string(job.Kind), "dropped", took)
		d.log.ErrorContext(ctx, "side effect dropped",
			"job_id", job.ID, "kind", job.Kind, "owner_id", job.OwnerID, "attempts", job.Attempt, "error", err)
		return
	}
	d.metrics.ObserveEffect(string(job.Kind), "retry", took)
	d.log.WarnContext(ctx, "side effect failed, will retry",
		"job_id", job.ID, "kind", job.Kind, "owner_id", job.OwnerID, "attempt", job.Attempt, "error", err)
	d.park(ctx, job, d.now().Add(d.backoff(job.Attempt)))
}

// park moves job to the retry queue.
func (d *Dispatcher) park(ctx context.Context, job Job, due time.Time) {
	if err := d.retry.Push(ctx, job, due); err != nil {
		d.log.ErrorContext(ctx, "retry queue push failed, side effect lost",
			"job_id", job.ID, "kind", job.Kind, "owner_id", job.OwnerID, "error", err)
	}
}

func (d *Dispatcher) poll(ctx context.Context) {
	jobs, err := d.retry.PopDue(ctx, d.now(), d.cfg.PollBatch)
	if err != nil {
		d.log.ErrorContext(ctx, "retry queue poll failed", "error", err)
		return
	}
	if l, ok := d.retry.(interface {
		Len(context.Context) (int64, error)
	}); ok {
		if n, err := l.Len(ctx); err == nil {
			d.metrics.SetRetryDepth(int(n))
		}
	}
	for _, job := range jobs {
		select {
		case d.shard(job.OwnerID) <- job:
		default:
			d.park(ctx, job, d.now().Add(d.cfg.PollInterval))
		}
	}
}

func (d *Dispatcher) backoff(attempt int) time.Duration {
	b := d.cfg.RetryBase
	for i := 1; i < attempt && b < d.cfg.RetryMax; i++ {
		b *= 2
	}
	if b > d.cfg.RetryMax {
		b = d.cfg.RetryMax
	}
	return b
}

func (d *Dispatcher) shard(ownerID string) chan Job {
	h := fnv.New32a()
	_, _ = h.Write([]byte(ownerID))
	return d.shards[h.Sum32()%uint32(len(d.shards))]
}
