package emitter

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/kallsen-dev/chatforge/internal/routerconfig"
)

// ssnSendTimeout bounds each injector HTTP call (spec.md §4.5).
const ssnSendTimeout = 2500 * time.Millisecond

// ssnPlaceholderSession is the sample session value shipped in template
// configs; treating it as "not configured" keeps a fresh checkout from
// spamming io.socialstream.ninja with a request nobody owns.
const ssnPlaceholderSession = "PUT_YOUR_SSN_SESSION_HERE"

// ssnClient delivers reply text to SocialStream Ninja's chat-injector
// endpoint over HTTP, rate-limited per platform target (spec.md §4.5,
// SPEC_FULL.md §5.4).
type ssnClient struct {
	cfg        routerconfig.SSN
	ratePerSec float64
	httpClient *http.Client

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

func newSSNClient(cfg routerconfig.SSN, ratePerSec float64) *ssnClient {
	return &ssnClient{
		cfg:        cfg,
		ratePerSec: ratePerSec,
		httpClient: &http.Client{Timeout: ssnSendTimeout},
		limiters:   make(map[string]*rate.Limiter),
	}
}

// send delivers text for platform via SSN, returning true iff the injector
// acknowledged with a 2xx status. It returns false (never an error) for
// every failure mode, matching the original's "fall back silently" design.
func (c *ssnClient) send(ctx context.Context, platform, text string) bool {
	if !c.cfg.Enabled || c.cfg.Session == "" || c.cfg.Session == ssnPlaceholderSession {
		return false
	}
	target := c.cfg.PlatformMap[platform]
	if strings.TrimSpace(target) == "" {
		target = "null"
	}

	if err := c.limiter(target).Wait(ctx); err != nil {
		return false
	}

	u := fmt.Sprintf("https://io.socialstream.ninja/%s/sendEncodedChat/%s/%s",
		c.cfg.Session, url.PathEscape(target), url.PathEscape(text))

	reqCtx, cancel := context.WithTimeout(ctx, ssnSendTimeout)
	defer cancel()
	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, u, nil)
	if err != nil {
		return false
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode >= 200 && resp.StatusCode < 300
}

// limiter returns (creating if needed) the token bucket for target. A
// ratePerSec <= 0 means unlimited: callers get a limiter with infinite
// rate so Wait never blocks.
func (c *ssnClient) limiter(target string) *rate.Limiter {
	c.mu.Lock()
	defer c.mu.Unlock()
	lim, ok := c.limiters[target]
	if ok {
		return lim
	}
	if c.ratePerSec <= 0 {
		lim = rate.NewLimiter(rate.Inf, 1)
	} else {
		lim = rate.NewLimiter(rate.Limit(c.ratePerSec), 1)
	}
	c.limiters[target] = lim
	return lim
}
