package worker

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/kallsen-dev/chatforge/internal/busfile"
	"github.com/kallsen-dev/chatforge/internal/record"
)

func newTestWorker(t *testing.T, handler Handler) (*Worker, string, string, string) {
	t.Helper()
	dir := t.TempDir()
	inbox := filepath.Join(dir, "bot.inbox.jsonl")
	outbox := filepath.Join(dir, "bot.outbox.jsonl")
	ack := filepath.Join(dir, "bot.ack.jsonl")
	offsets := filepath.Join(dir, "offsets.json")

	w, err := Open(inbox, outbox, ack, offsets, handler)
	if err != nil {
		t.Fatalf("open worker: %v", err)
	}
	return w, inbox, outbox, ack
}

func TestTickRunsHandlerAndWritesReplyAndAck(t *testing.T) {
	w, inbox, outbox, ack := newTestWorker(t, func(task record.Task) (Result, error) {
		return Result{Messages: []string{"echo: " + task.Args}}, nil
	})

	if err := busfile.Append(inbox, record.Task{Type: "task", TaskID: "t_1", Action: "echo", Args: "hi"}); err != nil {
		t.Fatalf("append task: %v", err)
	}

	progressed, err := w.Tick(1000)
	if err != nil {
		t.Fatalf("tick: %v", err)
	}
	if !progressed {
		t.Fatal("want progressed=true after processing one task")
	}

	replyData, err := os.ReadFile(outbox)
	if err != nil {
		t.Fatalf("read outbox: %v", err)
	}
	var reply record.WorkerReply
	if err := json.Unmarshal(replyData[:len(replyData)-1], &reply); err != nil {
		t.Fatalf("decode reply: %v", err)
	}
	if reply.TaskID != "t_1" || reply.Messages[0] != "echo: hi" {
		t.Fatalf("unexpected reply: %+v", reply)
	}

	ackData, err := os.ReadFile(ack)
	if err != nil {
		t.Fatalf("read ack: %v", err)
	}
	var a record.WorkerAck
	if err := json.Unmarshal(ackData[:len(ackData)-1], &a); err != nil {
		t.Fatalf("decode ack: %v", err)
	}
	if a.TaskID != "t_1" || a.Status != "ok" {
		t.Fatalf("unexpected ack: %+v", a)
	}
}

func TestTickAlwaysAcksOnHandlerError(t *testing.T) {
	w, inbox, outbox, ack := newTestWorker(t, func(task record.Task) (Result, error) {
		return Result{}, fmt.Errorf("boom")
	})

	if err := busfile.Append(inbox, record.Task{Type: "task", TaskID: "t_err"}); err != nil {
		t.Fatalf("append task: %v", err)
	}
	if _, err := w.Tick(1000); err != nil {
		t.Fatalf("tick: %v", err)
	}

	replyData, err := os.ReadFile(outbox)
	if err != nil {
		t.Fatalf("read outbox: %v", err)
	}
	var reply record.WorkerReply
	if err := json.Unmarshal(replyData[:len(replyData)-1], &reply); err != nil {
		t.Fatalf("decode reply: %v", err)
	}
	if reply.Game["result_code"] != ErrorResultCode {
		t.Fatalf("want error result_code, got %+v", reply.Game)
	}

	ackData, err := os.ReadFile(ack)
	if err != nil {
		t.Fatalf("read ack: %v", err)
	}
	var a record.WorkerAck
	if err := json.Unmarshal(ackData[:len(ackData)-1], &a); err != nil {
		t.Fatalf("decode ack: %v", err)
	}
	if a.Status != "error" || a.Error == "" {
		t.Fatalf("want ack status=error with a message, got %+v", a)
	}
}

func TestTickAlwaysAcksOnHandlerPanic(t *testing.T) {
	w, inbox, _, ack := newTestWorker(t, func(task record.Task) (Result, error) {
		panic("kaboom")
	})
	if err := busfile.Append(inbox, record.Task{Type: "task", TaskID: "t_panic"}); err != nil {
		t.Fatalf("append task: %v", err)
	}
	if _, err := w.Tick(1000); err != nil {
		t.Fatalf("tick should not propagate a handler panic: %v", err)
	}

	ackData, err := os.ReadFile(ack)
	if err != nil {
		t.Fatalf("read ack: %v", err)
	}
	var a record.WorkerAck
	if err := json.Unmarshal(ackData[:len(ackData)-1], &a); err != nil {
		t.Fatalf("decode ack: %v", err)
	}
	if a.Status != "error" {
		t.Fatalf("want ack status=error after a panic, got %+v", a)
	}
}

func TestTickIgnoresNonTaskRecords(t *testing.T) {
	w, inbox, outbox, _ := newTestWorker(t, func(task record.Task) (Result, error) {
		t.Fatal("handler should never run for a non-task record")
		return Result{}, nil
	})
	if err := busfile.Append(inbox, map[string]any{"type": "noise"}); err != nil {
		t.Fatalf("append noise: %v", err)
	}
	progressed, err := w.Tick(1000)
	if err != nil {
		t.Fatalf("tick: %v", err)
	}
	if progressed {
		t.Fatal("a non-task record should not count as progress")
	}
	if data, err := os.ReadFile(outbox); err == nil && len(data) != 0 {
		t.Fatalf("outbox should remain empty, got %q", data)
	}
}

func TestOpenSeedsOffsetToEndOfExistingInbox(t *testing.T) {
	dir := t.TempDir()
	inbox := filepath.Join(dir, "bot.inbox.jsonl")
	outbox := filepath.Join(dir, "bot.outbox.jsonl")
	ack := filepath.Join(dir, "bot.ack.jsonl")
	offsetsPath := filepath.Join(dir, "offsets.json")

	// Pre-existing history the worker should never replay.
	if err := busfile.Append(inbox, record.Task{Type: "task", TaskID: "t_old"}); err != nil {
		t.Fatalf("seed history: %v", err)
	}

	w, err := Open(inbox, outbox, ack, offsetsPath, func(task record.Task) (Result, error) {
		t.Fatalf("handler should not run for pre-existing history, got task %+v", task)
		return Result{}, nil
	})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, err := w.Tick(1000); err != nil {
		t.Fatalf("tick: %v", err)
	}
}
