package record

import "encoding/json"

// DecodeTask is a busfile.Poll decoder for worker inboxes.
func DecodeTask(line []byte) (Task, bool) {
	var t Task
	if err := json.Unmarshal(line, &t); err != nil {
		return Task{}, false
	}
	return t, true
}

// DecodeEvent is a busfile.Poll decoder for events.inbox.jsonl.
func DecodeEvent(line []byte) (Event, bool) {
	var e Event
	if err := json.Unmarshal(line, &e); err != nil {
		return Event{}, false
	}
	return e, true
}

// DecodeWorkerReply is a busfile.Poll decoder for a worker's outbox.
func DecodeWorkerReply(line []byte) (WorkerReply, bool) {
	var r WorkerReply
	if err := json.Unmarshal(line, &r); err != nil {
		return WorkerReply{}, false
	}
	return r, true
}

// DecodeWorkerAck is a busfile.Poll decoder for a worker's ack file; it is
// only ever used to advance the offset, the value is discarded.
func DecodeWorkerAck(line []byte) (WorkerAck, bool) {
	var a WorkerAck
	if err := json.Unmarshal(line, &a); err != nil {
		return WorkerAck{}, false
	}
	return a, true
}

// DecodeReplyIntent is a busfile.Poll decoder for replies.outbox.jsonl.
func DecodeReplyIntent(line []byte) (ReplyIntent, bool) {
	var r ReplyIntent
	if err := json.Unmarshal(line, &r); err != nil {
		return ReplyIntent{}, false
	}
	return r, true
}

// DecodeOverlayEvent is a busfile.Poll decoder for overlay.outbox.jsonl.
func DecodeOverlayEvent(line []byte) (OverlayEvent, bool) {
	var o OverlayEvent
	if err := json.Unmarshal(line, &o); err != nil {
		return OverlayEvent{}, false
	}
	return o, true
}
