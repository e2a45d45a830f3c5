// Package client is a minimal Go SDK for the worker pool's task API: submit
// a render task, poll it to completion, and query pool status. It is the
// library the run-task subcommand is built on, usable standalone by other
// Go callers that want to submit tasks without shelling out to the CLI.
//
// # Basic usage
//
//	c := client.New("http://127.0.0.1:9100")
//	taskID, err := c.CreateTask(ctx, client.CreateTaskRequest{
//	    JobID:         "job-42",
//	    LevelSequence: "/Game/Seqs/Seq1.Seq1",
//	})
//	task, err := c.WaitForCompletion(ctx, taskID, 5*time.Second, time.Hour, nil)
package client
