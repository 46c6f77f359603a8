// Package coordinator drives a job through C1->C6 sequentially and
// owns the fixed-size job worker pool. Grounded on the reference
// backend's job worker (internal/jobs/worker/worker.go): a pool of N
// goroutines, heartbeat-style liveness, panic recovery converting a
// handler crash into a job failure rather than a process crash, and
// explicit composition at wiring time instead of the source's
// callback-style handler registry (spec.md 9's redesign flag for
// "callback-style integration hooks").
package coordinator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/reelforge/viralcut/internal/backend"
	"github.com/reelforge/viralcut/internal/domain"
	"github.com/reelforge/viralcut/internal/errs"
	"github.com/reelforge/viralcut/internal/governor"
	"github.com/reelforge/viralcut/internal/parser"
	"github.com/reelforge/viralcut/internal/planner"
	"github.com/reelforge/viralcut/internal/reconstruct"
	"github.com/reelforge/viralcut/internal/sceneintel"
	"github.com/reelforge/viralcut/internal/validators"
	"github.com/reelforge/viralcut/internal/versioning"
)

const (
	startupTimeout    = 5 * time.Second
	jobTimeout        = 180 * time.Second
	nonIOStageGrace   = 200 * time.Millisecond
	ioStageGrace      = 2 * time.Second
	maxAcquireRetries = 3
	retryBackoffBase  = 250 * time.Millisecond
)

// Job is one reconstruct-and-snapshot request.
type Job struct {
	ID                      string
	SRT                     []byte
	LangOverride            string
	Style                   string
	Scenes                  []domain.SceneAnnotation
	Events                  []domain.Event
	Conflicts               []domain.Conflict
	EmotionTags             []domain.EmotionTag
	Threads                 []domain.Thread
	MaxValidatorConcurrency int
}

// Result is everything a job produces, independent of how the caller
// renders it (CLI stdout, an HTTP response, a test assertion).
type Result struct {
	Timeline    domain.Timeline
	Rewritten   domain.RewrittenTimeline
	Plan        domain.CutPlan
	Validation  domain.ValidationReport
	VersionNode domain.VersionNode
	Err         error
}

// Coordinator owns the pipeline's stateful collaborators and a fixed
// worker pool that drains a job queue.
type Coordinator struct {
	router     *governor.Router
	validators *validators.Registry
	tree       *versioning.Tree
	scenes     sceneintel.Provider

	workers int
	jobs    chan jobRequest
	wg      sync.WaitGroup
	log     Logger
}

// Logger is the minimal structured-logging capability the coordinator
// needs, satisfied by *platform/logger.Logger.
type Logger interface {
	Info(msg string, kv ...any)
	Warn(msg string, kv ...any)
	Error(msg string, kv ...any)
}

type jobRequest struct {
	job    Job
	result chan Result
}

// New wires a Coordinator from its already-constructed collaborators —
// explicit composition, per spec.md 9's redesign flag.
func New(router *governor.Router, reg *validators.Registry, tree *versioning.Tree, workers int, log Logger) *Coordinator {
	if workers < 1 {
		workers = 1
	}
	return &Coordinator{
		router:     router,
		validators: reg,
		tree:       tree,
		workers:    workers,
		jobs:       make(chan jobRequest, workers*2),
		log:        log,
	}
}

// WithSceneProvider sets the scene-annotation provider that fills
// job.Scenes for callers that don't supply their own — a CLI
// invocation, typically. Callers that already populate Job.Scenes
// (e.g. an upstream service that ran its own detection) are
// unaffected, since the provider only runs when Scenes is empty.
func (c *Coordinator) WithSceneProvider(p sceneintel.Provider) *Coordinator {
	c.scenes = p
	return c
}

// Start launches the worker pool. Call Stop (or cancel ctx) to drain.
func (c *Coordinator) Start(ctx context.Context) {
	for i := 0; i < c.workers; i++ {
		c.wg.Add(1)
		go c.runLoop(ctx, i+1)
	}
}

// Stop closes the job queue and waits for in-flight jobs to finish.
func (c *Coordinator) Stop() {
	close(c.jobs)
	c.wg.Wait()
}

// Submit enqueues a job and blocks until it completes or ctx is
// cancelled.
func (c *Coordinator) Submit(ctx context.Context, job Job) (Result, error) {
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	req := jobRequest{job: job, result: make(chan Result, 1)}
	select {
	case c.jobs <- req:
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}
	select {
	case res := <-req.result:
		return res, res.Err
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}
}

func (c *Coordinator) runLoop(ctx context.Context, workerID int) {
	defer c.wg.Done()
	for req := range c.jobs {
		res := c.runJob(ctx, req.job, workerID)
		req.result <- res
	}
}

// runJob executes one job's C1->C6 pipeline with panic recovery (a
// handler crash fails the job, never the worker) and a bounded
// end-to-end timeout.
func (c *Coordinator) runJob(ctx context.Context, job Job, workerID int) (res Result) {
	jobCtx, cancel := context.WithTimeout(ctx, jobTimeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			res = Result{Err: errs.Internal(errs.CodePlannerError, job.ID, fmt.Errorf("panic: %v", r))}
			if c.log != nil {
				c.log.Error("job panicked", "worker_id", workerID, "job_id", job.ID, "panic", r)
			}
		}
	}()

	return c.pipeline(jobCtx, job)
}

func (c *Coordinator) pipeline(ctx context.Context, job Job) Result {
	startCtx, cancelStart := context.WithTimeout(ctx, startupTimeout)
	tl, err := withStageGrace(startCtx, nonIOStageGrace, func(context.Context) (domain.Timeline, error) {
		return parser.Parse(job.SRT)
	})
	cancelStart()
	if err != nil {
		return Result{Err: err}
	}

	lease, err := c.acquireWithRetry(ctx, tl, job.LangOverride)
	if err != nil {
		return Result{Timeline: tl, Err: err}
	}
	defer lease.Release()

	var be backend.Backend
	if lease != nil {
		be = lease.Backend()
	}

	rt, err := withStageGrace(ctx, ioStageGrace, func(stageCtx context.Context) (domain.RewrittenTimeline, error) {
		return reconstruct.Reconstruct(stageCtx, tl, reconstruct.Params{Style: job.Style, Lang: string(c.router.Resolve(tl, job.LangOverride))}, be)
	})
	if err != nil {
		return Result{Timeline: tl, Err: err}
	}

	plan, err := withStageGrace(ctx, nonIOStageGrace, func(context.Context) (domain.CutPlan, error) {
		return planner.Plan(tl, rt)
	})
	if err != nil {
		return Result{Timeline: tl, Rewritten: rt, Err: err}
	}

	scenes := job.Scenes
	if len(scenes) == 0 && c.scenes != nil {
		scenes, err = withStageGrace(ctx, ioStageGrace, func(stageCtx context.Context) ([]domain.SceneAnnotation, error) {
			return c.scenes.Annotate(stageCtx, tl)
		})
		if err != nil {
			return Result{Timeline: tl, Rewritten: rt, Plan: plan, Err: err}
		}
	}

	valIn := validators.Input{
		Plan: plan, Rewritten: rt, Scenes: scenes,
		Events: job.Events, Conflicts: job.Conflicts,
		EmotionTags: job.EmotionTags, Threads: job.Threads,
	}
	validation, err := c.validators.RunAll(ctx, valIn, job.MaxValidatorConcurrency)
	if err != nil {
		return Result{Timeline: tl, Rewritten: rt, Plan: plan, Err: err}
	}
	if !validation.Accepted() {
		return Result{Timeline: tl, Rewritten: rt, Plan: plan, Validation: validation,
			Err: errs.Validation(errs.CodeInvariantViolation, job.ID, fmt.Errorf("plan rejected: critical validator issue present"))}
	}

	var node domain.VersionNode
	if c.tree != nil {
		node, err = withStageGrace(ctx, ioStageGrace, func(context.Context) (domain.VersionNode, error) {
			return c.tree.Take(ctx, plan, "reconstruct", domain.VersionLinear, domain.BlobCutPlan, "", nil, "")
		})
		if err != nil {
			return Result{Timeline: tl, Rewritten: rt, Plan: plan, Validation: validation, Err: err}
		}
	}

	return Result{Timeline: tl, Rewritten: rt, Plan: plan, Validation: validation, VersionNode: node}
}

// acquireWithRetry retries a retriable (InsufficientMemory) Acquire
// error up to maxAcquireRetries times with exponential backoff, per
// spec.md 7's retry policy for resource errors.
func (c *Coordinator) acquireWithRetry(ctx context.Context, tl domain.Timeline, override string) (*governor.Lease, error) {
	var lastErr error
	for attempt := 0; attempt <= maxAcquireRetries; attempt++ {
		lease, err := c.router.Route(ctx, tl, override)
		if err == nil {
			return lease, nil
		}
		lastErr = err
		var e *errs.Error
		if !errors.As(err, &e) || !e.Retriable() {
			return nil, err
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(retryBackoffBase * time.Duration(1<<attempt)):
		}
	}
	return nil, lastErr
}

// withStageGrace runs fn and enforces that, on ctx cancellation, fn's
// result is observed within grace — stages must never swallow
// cancellation silently (spec.md 5).
func withStageGrace[T any](ctx context.Context, grace time.Duration, fn func(context.Context) (T, error)) (T, error) {
	type out struct {
		val T
		err error
	}
	done := make(chan out, 1)
	go func() {
		v, err := fn(ctx)
		done <- out{val: v, err: err}
	}()

	select {
	case o := <-done:
		return o.val, o.err
	case <-ctx.Done():
		select {
		case o := <-done:
			return o.val, o.err
		case <-time.After(grace):
			var zero T
			return zero, ctx.Err()
		}
	}
}
