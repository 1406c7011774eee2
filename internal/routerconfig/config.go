// Package routerconfig loads the router's JSON configuration file
// (spec.md §6) and expands ${VAR} references against the environment.
package routerconfig

import (
	"encoding/json"
	"fmt"
	"os"
	"regexp"
)

// Config is the router configuration file, field-for-field per spec.md §6.
type Config struct {
	PollMS                  int              `json:"poll_ms"`
	ChatFile                string           `json:"chat_file"`
	ProcessExistingOnStart  bool             `json:"process_existing_on_start"`
	Earning                 Earning          `json:"earning"`
	Bots                    []Bot            `json:"bots"`
	ManagerCommands         []Command        `json:"manager_commands"`
	Commands                []Command        `json:"commands"`
	Reply                   Reply            `json:"reply"`
	SSN                     SSN              `json:"ssn"`
	ReplyPolicy             ReplyPolicy      `json:"reply_policy"`
	OverlayFallback         OverlayFallback  `json:"overlay_fallback"`
	Help                    Help             `json:"help"`
	Logging                 Logging          `json:"logging"`
}

// Earning holds the periodic/per-event points-earning rates (spec.md §4.3).
type Earning struct {
	ActiveWindowSeconds    int `json:"active_window_seconds"`
	PointsPerMinuteActive  int `json:"points_per_minute_active"`
	PointsPerMessage       int `json:"points_per_message"`
	PointsPerLike          int `json:"points_per_like"`
	PointsPerShare         int `json:"points_per_share"`
}

// Bot is one worker declaration (spec.md §6).
type Bot struct {
	ID         string `json:"id"`
	Enabled    bool   `json:"enabled"`
	Inbox      string `json:"inbox"`
	Outbox     string `json:"outbox"`
	Ack        string `json:"ack"`
	DeadLetter string `json:"deadletter"`
	HA         string `json:"ha"` // "" | "active_standby"
	Instances  int    `json:"instances"`
}

// Command is one command definition (spec.md §3, §6). The same struct
// serves manager_commands and commands; Bot is empty/ignored for manager
// commands since they execute in-process.
type Command struct {
	Command             string   `json:"command"`
	Aliases             []string `json:"aliases"`
	Bot                 string   `json:"bot"`
	Action              string   `json:"action"`
	MinTier             string   `json:"min_tier"`
	CooldownSeconds     int      `json:"cooldown_seconds"`
	CooldownBypassTier  string   `json:"cooldown_bypass_tier"`
	CostPoints          int      `json:"cost_points"`
	HelpLines           []string `json:"help_lines"`
	ShowInHelp          bool     `json:"show_in_help"`
}

// Reply controls emitter message formatting (spec.md §4.5, §6).
type Reply struct {
	Prefix      string  `json:"prefix"`
	MaxLen      int     `json:"max_len"`
	RatePerSec  float64 `json:"rate_per_sec"` // additive key, see SPEC_FULL.md §5.4; 0 = unlimited
}

// SSN configures the upstream chat-injector session (spec.md §6).
type SSN struct {
	Enabled      bool              `json:"enabled"`
	Session      string            `json:"session"`
	PlatformMap  map[string]string `json:"platform_map"`
}

// ReplyPolicy names platforms the emitter never sends network replies for.
type ReplyPolicy struct {
	OverlayOnlyPlatformPrefixes []string `json:"overlay_only_platform_prefixes"`
}

// OverlayFallback configures the append-files the emitter falls back to.
type OverlayFallback struct {
	Enabled            bool   `json:"enabled"`
	ChatFile           string `json:"chat_file"`
	OverlayEventsFile  string `json:"overlay_events_file"`
	MaxMessages        int    `json:"max_messages"`
	MaxEvents          int    `json:"max_events"`
	UserStateMirrorFile string `json:"user_state_mirror_file"`
}

// Help holds the router's static !spothelp header lines.
type Help struct {
	HeaderLines []string `json:"header_lines"`
}

// Logging controls the slog + lumberjack setup (internal/logging).
type Logging struct {
	Dir         string `json:"dir"`
	Level       string `json:"level"`
	MaxBytes    int    `json:"max_bytes"`
	BackupCount int    `json:"backup_count"`
}

var envRef = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// expandEnv replaces every ${VAR} occurrence in s with os.Getenv(VAR);
// unset variables expand to the empty string (spec.md §6).
func expandEnv(s string) string {
	return envRef.ReplaceAllStringFunc(s, func(m string) string {
		name := envRef.FindStringSubmatch(m)[1]
		return os.Getenv(name)
	})
}

// Load reads and parses the router config file at path, expanding ${VAR}
// references in every string field. The config file is required — the
// router refuses to start without one (spec.md §7).
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("routerconfig: read %s: %w", path, err)
	}

	// Expand ${VAR} before unmarshalling so it works uniformly across every
	// string field without per-field plumbing.
	expanded := expandEnv(string(data))

	var cfg Config
	if err := json.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("routerconfig: parse %s: %w", path, err)
	}

	applyDefaults(&cfg)
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.PollMS <= 0 {
		cfg.PollMS = 350
	}
	if cfg.Earning.ActiveWindowSeconds <= 0 {
		cfg.Earning.ActiveWindowSeconds = 300
	}
	if cfg.Reply.MaxLen <= 0 {
		cfg.Reply.MaxLen = 450
	}
	if len(cfg.Help.HeaderLines) == 0 {
		cfg.Help.HeaderLines = []string{
			`Every command starts with "!" and must be at the beginning of your message.`,
			"Commands are case-insensitive.",
		}
	}
}
