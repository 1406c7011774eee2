package supervisor

// BotPaths names the three bus files one worker bot owns.
type BotPaths struct {
	ID     string
	Inbox  string
	Outbox string
	Ack    string
}

// BusLayout is the subset of the bus/state directory layout the
// supervisor needs to compute liveness witnesses (spec.md §4.7).
type BusLayout struct {
	EventsInbox       string
	RepliesOutbox     string
	OverlayOutbox     string
	OverlayChatFile   string
	OverlayEventsFile string
	Bots              []BotPaths
}

// witnessFiles returns the set of files whose newest mtime determines
// whether component is alive (spec.md §4.7: "ingestor -> events.inbox;
// router -> replies.outbox ∪ all worker inboxes; emitter -> overlay
// append-files; worker -> its ack+outbox").
func witnessFiles(component string, layout BusLayout) []string {
	switch component {
	case "ingestor":
		return []string{layout.EventsInbox}
	case "router":
		files := []string{layout.RepliesOutbox, layout.OverlayOutbox}
		for _, b := range layout.Bots {
			files = append(files, b.Inbox)
		}
		return files
	case "emitter":
		files := []string{}
		if layout.OverlayChatFile != "" {
			files = append(files, layout.OverlayChatFile)
		}
		if layout.OverlayEventsFile != "" {
			files = append(files, layout.OverlayEventsFile)
		}
		return files
	default:
		for _, b := range layout.Bots {
			if b.ID == component {
				return []string{b.Outbox, b.Ack}
			}
		}
		return nil
	}
}

// botPathsFor looks up the bot bus paths backlog detection needs; ok is
// false for non-worker components.
func botPathsFor(component string, layout BusLayout) (BotPaths, bool) {
	for _, b := range layout.Bots {
		if b.ID == component {
			return b, true
		}
	}
	return BotPaths{}, false
}
