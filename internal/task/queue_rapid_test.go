package task

import (
	"fmt"
	"testing"
	"time"

	"pgregory.net/rapid"
)

// checkInvariants verifies the three structural invariants of §8 (1-3) that
// hold at every point in the queue's lifetime, regardless of the operation
// sequence that produced the current state. Invariant 4 (terminal states are
// final) is checked by the caller against a shadow record. Invariant 5
// (worker count floor) is a property of the reconcile loop, not the bare
// queue, and is not checked here; invariant 6 (FIFO) is checked separately
// below since it concerns the *order* leases are granted in, not a
// point-in-time state.
func checkInvariants(t *rapid.T, q *Queue) {
	q.WithLock(func(tasks map[string]*Task, workers map[string]*Worker) {
		for _, tk := range tasks {
			switch tk.Status {
			case StatusAssigned, StatusRunning:
				if tk.AssignedWorker == "" {
					t.Fatalf("task %s is %s but has no assigned worker", tk.ID, tk.Status)
				}
				w, ok := workers[tk.AssignedWorker]
				if !ok {
					t.Fatalf("task %s assigned to unknown worker %s", tk.ID, tk.AssignedWorker)
				}
				if w.CurrentTaskID != tk.ID {
					t.Fatalf("task %s assigned to worker %s, but worker's current task is %q", tk.ID, w.ID, w.CurrentTaskID)
				}
			case StatusPending:
				for _, w := range workers {
					if w.CurrentTaskID == tk.ID {
						t.Fatalf("task %s is PENDING but worker %s still points at it", tk.ID, w.ID)
					}
				}
			}
		}

		for _, w := range workers {
			if w.Status == WorkerBusy {
				if w.CurrentTaskID == "" {
					t.Fatalf("worker %s is BUSY with no current task", w.ID)
				}
				tk, ok := tasks[w.CurrentTaskID]
				if !ok {
					t.Fatalf("worker %s points at unknown task %s", w.ID, w.CurrentTaskID)
				}
				if tk.AssignedWorker != w.ID {
					t.Fatalf("worker %s's current task %s is assigned to %q instead", w.ID, tk.ID, tk.AssignedWorker)
				}
			}
		}
	})
}

// TestQueue_InvariantsUnderRandomizedOps runs randomized sequences of the
// queue's public operations and checks invariants 1-3 after every step, plus
// terminal-state immutability (invariant 4) via a shadow map of previously
// observed terminal tasks.
func TestQueue_InvariantsUnderRandomizedOps(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		q := NewQueue()
		var taskIDs []string
		var workerIDs []string
		terminalSeen := map[string]Status{}

		steps := rapid.IntRange(1, 40).Draw(rt, "steps")
		for i := 0; i < steps; i++ {
			action := rapid.SampledFrom([]string{
				"create_task", "register_worker", "ready", "lease",
				"heartbeat", "done", "cancel", "mark_dead",
			}).Draw(rt, "action")

			switch action {
			case "create_task":
				tk := New(CreateTaskRequest{JobID: fmt.Sprintf("job-%d", i), LevelSequence: "/Game/S.S"})
				q.AddTask(tk)
				taskIDs = append(taskIDs, tk.ID)
				time.Sleep(time.Microsecond) // guarantee strictly increasing CreatedAt for FIFO checks elsewhere

			case "register_worker":
				id := fmt.Sprintf("w-%d", i)
				q.RegisterWorker(NewWorker(id, 1000+i))
				workerIDs = append(workerIDs, id)

			case "ready":
				if len(workerIDs) == 0 {
					continue
				}
				id := rapid.SampledFrom(workerIDs).Draw(rt, "ready_worker")
				q.Ready(id)

			case "lease":
				if len(workerIDs) == 0 {
					continue
				}
				id := rapid.SampledFrom(workerIDs).Draw(rt, "lease_worker")
				q.Lease(id)

			case "heartbeat":
				if len(workerIDs) == 0 {
					continue
				}
				id := rapid.SampledFrom(workerIDs).Draw(rt, "hb_worker")
				busy := rapid.Bool().Draw(rt, "hb_busy")
				w, err := q.GetWorker(id)
				taskID := ""
				if err == nil {
					taskID = w.CurrentTaskID
				}
				q.ApplyHeartbeat(id, Heartbeat{Busy: &busy, TaskID: taskID})

			case "done":
				if len(workerIDs) == 0 {
					continue
				}
				id := rapid.SampledFrom(workerIDs).Draw(rt, "done_worker")
				w, err := q.GetWorker(id)
				if err != nil || w.CurrentTaskID == "" {
					continue
				}
				success := rapid.Bool().Draw(rt, "done_success")
				q.Done(id, w.CurrentTaskID, success, "/tmp/out", "boom")

			case "cancel":
				if len(taskIDs) == 0 {
					continue
				}
				id := rapid.SampledFrom(taskIDs).Draw(rt, "cancel_task")
				q.Cancel(id)

			case "mark_dead":
				if len(workerIDs) == 0 {
					continue
				}
				id := rapid.SampledFrom(workerIDs).Draw(rt, "dead_worker")
				q.MarkDead(id)
			}

			checkInvariants(rt, q)

			// Invariant 4: terminal tasks never change status once observed.
			for _, id := range taskIDs {
				tk, err := q.GetTask(id)
				if err != nil {
					continue
				}
				if prev, seen := terminalSeen[id]; seen {
					if tk.Status != prev {
						rt.Fatalf("terminal task %s changed status from %s to %s", id, prev, tk.Status)
					}
					continue
				}
				switch tk.Status {
				case StatusCompleted, StatusFailed, StatusCanceled:
					terminalSeen[id] = tk.Status
				}
			}
		}
	})
}

// TestQueue_FIFOLease checks invariant 6: among PENDING tasks, the
// oldest-created one is always the one granted by the next Lease.
func TestQueue_FIFOLease(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		q := NewQueue()
		n := rapid.IntRange(2, 10).Draw(rt, "n")

		var created []string
		for i := 0; i < n; i++ {
			tk := New(CreateTaskRequest{JobID: fmt.Sprintf("job-%d", i)})
			q.AddTask(tk)
			created = append(created, tk.ID)
			time.Sleep(time.Microsecond)
		}

		q.RegisterWorker(NewWorker("w0", 1))
		q.Ready("w0")

		for _, wantID := range created {
			got, ok := q.Lease("w0")
			if !ok {
				rt.Fatalf("expected a lease for task %s, got none", wantID)
			}
			if got.ID != wantID {
				rt.Fatalf("FIFO violated: expected %s, leased %s", wantID, got.ID)
			}
			// Free the worker back up so the next oldest can be leased.
			success := true
			q.Done("w0", got.ID, success, "/tmp/out", "")
			q.Ready("w0")
		}
	})
}
