package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/taskfan/taskfan/internal/events"
)

// completion is the signal a worker sends back to the scheduling loop once
// its subtask has a terminal status recorded in the store.
type completion struct {
	id     string
	status SubtaskStatus
}

// runner drives one task from running to a terminal status. A single
// goroutine owns the ready queue and dispatch decisions, so readiness
// recomputation is always based on a consistent snapshot; workers only
// execute and report back.
type runner struct {
	state    *taskState
	graph    *Graph
	store    *ResultStore
	exec     SubtaskExecutor
	recovery ErrorRecoveryHook
	locks    *ResourceLocks
	limit    int
	bus      *events.Bus
	archive  ReportArchive
	log      *slog.Logger

	cancelExec context.CancelFunc
	cancelled  atomic.Bool
	cancelCh   chan struct{}
	cancelOnce sync.Once
	done       chan struct{}
}

// Cancel marks the task cancelled immediately, signals every in-flight
// executor through the execution context, and tells the loop to withdraw
// everything not yet started. Idempotent.
func (r *runner) Cancel() {
	r.cancelOnce.Do(func() {
		r.cancelled.Store(true)
		r.state.transition(TaskCancelled, TaskRunning)
		close(r.cancelCh)
		r.cancelExec()
	})
}

// Done is closed when the scheduling loop has exited and the final status is
// recorded.
func (r *runner) Done() <-chan struct{} { return r.done }

func (r *runner) run(ctx context.Context) {
	defer close(r.done)

	var g errgroup.Group
	completions := make(chan completion)

	var ready []string // dispatch queue, declaration-ordered
	running := 0

	// refresh moves newly eligible subtasks into the ready queue. Subtasks
	// that became ready earlier are already queued ahead, so queue order is
	// the declaration-order tie-break among the simultaneously ready.
	refresh := func() {
		for _, id := range r.graph.ReadySet(r.store) {
			if err := r.store.MarkReady(id); err == nil {
				ready = append(ready, id)
			}
		}
	}

	// dispatch fills free slots from the front of the queue.
	dispatch := func() {
		for running < r.limit && len(ready) > 0 {
			id := ready[0]
			ready = ready[1:]
			sub, ok := r.store.Get(id)
			if !ok {
				continue
			}
			running++
			g.Go(func() error {
				completions <- r.execute(ctx, sub)
				return nil
			})
		}
	}

	// withdraw cancels everything that has not started executing.
	withdraw := func() {
		ready = nil
		r.store.CancelRemaining()
		r.publishProgress()
	}

	refresh()
	dispatch()
	r.publishProgress()

	cancelC := r.cancelCh
	doneC := ctx.Done()

	for running > 0 || (!r.cancelled.Load() && len(ready) > 0) {
		select {
		case c := <-completions:
			running--
			if c.status == SubtaskFailed {
				r.skipDependents(c.id)
			}
			if !r.cancelled.Load() {
				refresh()
				dispatch()
			}
			r.publishProgress()

		case <-cancelC:
			cancelC = nil
			withdraw()

		case <-doneC:
			// Parent context cancelled: treat as a cancellation request.
			doneC = nil
			r.cancelled.Store(true)
			r.state.transition(TaskCancelled, TaskRunning)
			withdraw()
		}
	}

	_ = g.Wait()
	r.finalize()
}

// execute runs one subtask through the executor collaborator and records its
// terminal status. It is the single writer for its subtask's record.
func (r *runner) execute(ctx context.Context, sub Subtask) completion {
	if err := r.store.MarkRunning(sub.ID); err != nil {
		// Withdrawn between dispatch and claim.
		return completion{sub.ID, r.store.Status(sub.ID)}
	}

	r.publish(events.TopicSubtask, events.SubtaskStartedEvent{
		Task:        r.taskID(),
		Subtask:     sub.ID,
		Description: sub.Description,
		Timestamp:   time.Now(),
	})
	start := time.Now()

	r.locks.AcquireAll(sub.Resources)
	payload, err := r.exec.Execute(ctx, sub.Action)
	if err != nil && r.recovery != nil && ctx.Err() == nil {
		if retry, ok := r.recovery.Recover(ctx, sub, err); ok {
			r.store.NoteRetry(sub.ID)
			payload, err = r.exec.Execute(ctx, retry)
		}
	}
	r.locks.ReleaseAll(sub.Resources)

	var status SubtaskStatus
	var errMsg string
	switch {
	case err == nil:
		_ = r.store.MarkCompleted(sub.ID, payload)
		status = SubtaskCompleted
	case errors.Is(err, context.Canceled) && ctx.Err() != nil:
		// The executor observed the cancellation signal.
		_ = r.store.MarkCancelled(sub.ID)
		status = SubtaskCancelled
	default:
		_ = r.store.MarkFailed(sub.ID, err)
		status = SubtaskFailed
		errMsg = err.Error()
		r.log.Warn("subtask failed",
			"task_id", r.taskID(),
			"subtask_id", sub.ID,
			"action", sub.Action.Type,
			"error", err)
	}

	r.publish(events.TopicSubtask, events.SubtaskFinishedEvent{
		Task:      r.taskID(),
		Subtask:   sub.ID,
		Status:    string(status),
		Error:     errMsg,
		Duration:  time.Since(start),
		Timestamp: time.Now(),
	})

	return completion{sub.ID, status}
}

// skipDependents marks every transitive dependent of a failed subtask as
// skipped. Branches that do not depend on the failure are untouched.
func (r *runner) skipDependents(failedID string) {
	for _, depID := range r.graph.TransitiveDependents(failedID) {
		if err := r.store.MarkSkipped(depID, failedID); err != nil {
			continue // already terminal
		}
		r.publish(events.TopicSubtask, events.SubtaskFinishedEvent{
			Task:      r.taskID(),
			Subtask:   depID,
			Status:    string(SubtaskSkipped),
			Timestamp: time.Now(),
		})
	}
}

// finalize derives the task's terminal status from the store and archives
// the report. Task-level failure is a derived state: declared only when no
// further progress was possible and something failed or was skipped.
func (r *runner) finalize() {
	counts := r.store.Counts()
	var status TaskStatus
	switch {
	case r.cancelled.Load():
		status = TaskCancelled
	case counts[SubtaskFailed] > 0 || counts[SubtaskSkipped] > 0:
		status = TaskFailed
	case counts[SubtaskCompleted] == r.store.Len():
		status = TaskCompleted
	default:
		status = TaskFailed
	}
	r.state.finish(status)

	task := r.state.snapshot()
	r.log.Info("task finished",
		"task_id", task.ID,
		"status", task.Status,
		"duration", task.FinishedAt.Sub(task.StartedAt),
		"completed", counts[SubtaskCompleted],
		"failed", counts[SubtaskFailed],
		"skipped", counts[SubtaskSkipped],
		"cancelled", counts[SubtaskCancelled])

	r.publish(events.TopicTask, events.TaskFinishedEvent{
		Task:      task.ID,
		Status:    string(task.Status),
		Duration:  task.FinishedAt.Sub(task.StartedAt),
		Timestamp: time.Now(),
	})

	if r.archive != nil {
		report := buildReport(task, r.graph, r.store)
		if err := r.archive.SaveReport(context.Background(), report); err != nil {
			r.log.Warn("archiving task report failed", "task_id", task.ID, "error", err)
		}
	}
}

func (r *runner) taskID() string {
	return r.state.snapshot().ID
}

func (r *runner) publish(topic string, event events.Event) {
	if r.bus != nil {
		r.bus.Publish(topic, event)
	}
}

func (r *runner) publishProgress() {
	if r.bus == nil {
		return
	}
	counts := r.store.Counts()
	r.bus.Publish(events.TopicTask, events.TaskProgressEvent{
		Task:      r.taskID(),
		Total:     r.store.Len(),
		Pending:   counts[SubtaskPending],
		Ready:     counts[SubtaskReady],
		Running:   counts[SubtaskRunning],
		Completed: counts[SubtaskCompleted],
		Failed:    counts[SubtaskFailed],
		Skipped:   counts[SubtaskSkipped],
		Cancelled: counts[SubtaskCancelled],
		Progress:  r.store.Progress(),
		Timestamp: time.Now(),
	})
}

// buildReport assembles the result map for a task in its current state.
func buildReport(task Task, graph *Graph, store *ResultStore) *Report {
	var elapsed time.Duration
	switch {
	case !task.StartedAt.IsZero() && !task.FinishedAt.IsZero():
		elapsed = task.FinishedAt.Sub(task.StartedAt)
	case !task.StartedAt.IsZero():
		elapsed = time.Since(task.StartedAt)
	}
	return &Report{
		TaskID:        task.ID,
		Name:          task.Name,
		Status:        task.Status,
		Progress:      store.Progress(),
		ExecutionTime: elapsed,
		SubtaskOrder:  graph.Order(),
		Subtasks:      store.Snapshot(),
	}
}
