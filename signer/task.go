/*
 * Copyright (c) 2024 Johan Stenstam, johan.stenstam@internetstiftelsen.se
 */
package signer

import (
	"fmt"
	"sync"
)

// Task is one scheduled unit of work against a zone. When is a Unix
// timestamp in seconds; 0 means "due immediately". Replace tells the
// queue to drop any existing task with the same Kind+Zone when this
// one is added. RepeatInterval, when non-zero, causes the worker that
// runs this task to re-enqueue it for now+RepeatInterval.
type Task struct {
	When           int64
	Kind           TaskKind
	Zone           *Zone
	Replace        bool
	RepeatInterval int64
}

func (t *Task) String() string {
	return fmt.Sprintf("%s(%s) @ %d", t.Kind, t.Zone.Name, t.When)
}

// Run executes the task. Only SignZone is meaningful today.
func (t *Task) Run() {
	switch t.Kind {
	case SignZone:
		t.Zone.PerformAction()
	case Dummy:
		// used only by tests to exercise queue/worker plumbing
	}
}

// TaskQueue is an ordered (by When, ascending) collection of Tasks,
// guarded by its own mutex. Callers that need to perform more than one
// queue operation atomically must hold the mutex across all of them
// (see Engine's scheduling helpers) rather than relying on the queue's
// exported methods alone.
type TaskQueue struct {
	mu    sync.Mutex
	tasks []*Task
}

func NewTaskQueue() *TaskQueue {
	return &TaskQueue{}
}

func (q *TaskQueue) Lock()   { q.mu.Lock() }
func (q *TaskQueue) Unlock() { q.mu.Unlock() }

// Add inserts task into the queue, keeping it ordered by When ascending,
// stable among equal When values. If task.Replace is set, any existing
// task with the same Kind and the same Zone is dropped in the same pass.
// Callers must hold the queue lock.
func (q *TaskQueue) Add(task *Task) {
	next := make([]*Task, 0, len(q.tasks)+1)
	inserted := false
	for _, existing := range q.tasks {
		if task.Replace && existing.Kind == task.Kind && existing.Zone == task.Zone {
			continue
		}
		if !inserted && task.When < existing.When {
			next = append(next, task)
			inserted = true
		}
		next = append(next, existing)
	}
	if !inserted {
		next = append(next, task)
	}
	q.tasks = next
}

// HasDue reports whether the head task is due strictly before now.
// Callers must hold the queue lock.
func (q *TaskQueue) HasDue(now int64) bool {
	return len(q.tasks) > 0 && q.tasks[0].When < now
}

// NextWait returns how long (seconds, may be negative) until the head
// task is due; 0 if the queue is empty. Callers must hold the queue lock.
func (q *TaskQueue) NextWait(now int64) int64 {
	if len(q.tasks) == 0 {
		return 0
	}
	return q.tasks[0].When - now
}

// Pop removes and returns the head task. Callers must hold the queue
// lock and must have verified the queue is non-empty.
func (q *TaskQueue) Pop() *Task {
	t := q.tasks[0]
	q.tasks = q.tasks[1:]
	return t
}

// Len reports the number of queued tasks. Callers must hold the queue lock.
func (q *TaskQueue) Len() int {
	return len(q.tasks)
}

// RescheduleAllNow sets every task's When to 0, preserving relative order.
// Callers must hold the queue lock.
func (q *TaskQueue) RescheduleAllNow() {
	for _, t := range q.tasks {
		t.When = 0
	}
}

// String renders the queue, one task per line, for the "queue" command.
func (q *TaskQueue) String() string {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.tasks) == 0 {
		return "Task queue is empty."
	}
	out := ""
	for _, t := range q.tasks {
		out += t.String() + "\n"
	}
	return out
}
