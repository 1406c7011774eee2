// Package musicworker is a small active/standby demo bot (SPEC_FULL.md
// §5.5) exercising spec.md §4.6's leader-election path against a stubbed
// external API client — the real music-service client is explicitly out
// of scope (spec.md §1 Non-goals).
package musicworker

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/kallsen-dev/chatforge/internal/record"
	"github.com/kallsen-dev/chatforge/internal/worker"
)

// Client is the external music-service surface this worker drives. A real
// implementation would wrap a provider's playback API; chatforge ships
// only StubClient.
type Client interface {
	NowPlaying() (track string, err error)
	Enqueue(query string) (track string, err error)
	Skip() error
	SetPlaying(playing bool) error
	SetVolume(pct int) error
}

// StubClient is an in-memory Client good enough to exercise the worker's
// dispatch and reply shape without a real provider session.
type StubClient struct {
	current string
	playing bool
	volume  int
	queue   []string
}

// NewStubClient returns a StubClient with a default "nothing playing" state.
func NewStubClient() *StubClient {
	return &StubClient{volume: 50}
}

func (c *StubClient) NowPlaying() (string, error) {
	if c.current == "" {
		return "", nil
	}
	return c.current, nil
}

func (c *StubClient) Enqueue(query string) (string, error) {
	if strings.TrimSpace(query) == "" {
		return "", fmt.Errorf("musicworker: empty query")
	}
	if c.current == "" {
		c.current = query
	} else {
		c.queue = append(c.queue, query)
	}
	return query, nil
}

func (c *StubClient) Skip() error {
	if len(c.queue) == 0 {
		c.current = ""
		return nil
	}
	c.current, c.queue = c.queue[0], c.queue[1:]
	return nil
}

func (c *StubClient) SetPlaying(playing bool) error {
	c.playing = playing
	return nil
}

func (c *StubClient) SetVolume(pct int) error {
	if pct < 0 || pct > 100 {
		return fmt.Errorf("musicworker: volume out of range: %d", pct)
	}
	c.volume = pct
	return nil
}

// NewHandler builds a worker.Handler dispatching on task.Action the same
// way the original Spotify worker dispatches on action strings.
func NewHandler(client Client) worker.Handler {
	return func(task record.Task) (worker.Result, error) {
		action := strings.ToLower(strings.TrimSpace(task.Action))
		args := strings.TrimSpace(task.Args)

		switch action {
		case "np":
			track, err := client.NowPlaying()
			if err != nil {
				return worker.Result{}, err
			}
			if track == "" {
				return worker.Result{Messages: []string{"Nothing is currently playing."}}, nil
			}
			return worker.Result{Messages: []string{"Now playing: " + track}}, nil

		case "sr":
			if args == "" {
				return worker.Result{Messages: []string{"Usage: sr <song name>"}}, nil
			}
			track, err := client.Enqueue(args)
			if err != nil {
				return worker.Result{}, err
			}
			return worker.Result{Messages: []string{"Queued: " + track}}, nil

		case "skip":
			if err := client.Skip(); err != nil {
				return worker.Result{}, err
			}
			return worker.Result{Messages: []string{"Skipped."}}, nil

		case "play":
			if err := client.SetPlaying(true); err != nil {
				return worker.Result{}, err
			}
			return worker.Result{Messages: []string{"Playback started."}}, nil

		case "pause":
			if err := client.SetPlaying(false); err != nil {
				return worker.Result{}, err
			}
			return worker.Result{Messages: []string{"Paused."}}, nil

		case "vol":
			pct, err := strconv.Atoi(args)
			if err != nil {
				return worker.Result{Messages: []string{"Usage: vol <0-100>"}}, nil
			}
			if err := client.SetVolume(pct); err != nil {
				return worker.Result{}, err
			}
			return worker.Result{Messages: []string{fmt.Sprintf("Volume set to %d%%.", pct)}}, nil

		default:
			return worker.Result{}, fmt.Errorf("musicworker: unknown action %q", action)
		}
	}
}
