// Package refresh runs the per-section refresh loops. Every enabled
// display section of every server gets its own goroutine ticking at the
// section's configured cadence: build the section, publish it, record the
// outcome. A failed cycle is logged and abandoned; the next tick retries.
package refresh

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/hlltools/server-status/internal/config"
	"github.com/hlltools/server-status/internal/display"
)

// Section names, used as message-store keys and in the status snapshot.
const (
	SectionHeader        = "header"
	SectionGamestate     = "gamestate"
	SectionRotationColor = "map_rotation_color"
	SectionRotationEmbed = "map_rotation_embed"
)

// cycleTimeout bounds one build+publish cycle.
const cycleTimeout = 30 * time.Second

// BuildFunc renders one section.
type BuildFunc func(ctx context.Context) (display.Message, error)

// PublishFunc delivers one rendered section.
type PublishFunc func(ctx context.Context, section string, msg display.Message) error

// SectionStatus is a point-in-time view of one refresh loop.
type SectionStatus struct {
	Server      string    `json:"server"`
	Section     string    `json:"section"`
	Interval    string    `json:"interval"`
	Cycles      int       `json:"cycles"`
	LastSuccess time.Time `json:"last_success,omitzero"`
	LastError   string    `json:"last_error,omitempty"`
	LastErrorAt time.Time `json:"last_error_at,omitzero"`
}

// Runner owns the refresh goroutines and their status.
type Runner struct {
	logger *slog.Logger

	mu       sync.Mutex
	statuses map[string]*SectionStatus
	wg       sync.WaitGroup
}

// NewRunner creates an empty Runner.
func NewRunner(logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{
		logger:   logger,
		statuses: make(map[string]*SectionStatus),
	}
}

// StartServer starts a loop for every enabled section of cfg. Loops stop
// when ctx is cancelled; Wait blocks until they have all returned.
func (r *Runner) StartServer(ctx context.Context, cfg *config.Config, builder *display.Builder, publish PublishFunc) {
	d := cfg.Display
	if d.Header.Enabled {
		r.startSection(ctx, cfg.ServerIdentifier, SectionHeader, d.Header.Refresh, builder.Header, publish)
	}
	if d.Gamestate.Enabled {
		r.startSection(ctx, cfg.ServerIdentifier, SectionGamestate, d.Gamestate.Refresh, builder.Gamestate, publish)
	}
	if d.MapRotation.Color.Enabled {
		r.startSection(ctx, cfg.ServerIdentifier, SectionRotationColor, d.MapRotation.Color.Refresh, builder.MapRotationColor, publish)
	}
	if d.MapRotation.Embed.Enabled {
		r.startSection(ctx, cfg.ServerIdentifier, SectionRotationEmbed, d.MapRotation.Embed.Refresh, builder.MapRotationEmbed, publish)
	}
}

func (r *Runner) startSection(ctx context.Context, server, section string, every time.Duration, build BuildFunc, publish PublishFunc) {
	status := &SectionStatus{Server: server, Section: section, Interval: every.String()}
	r.mu.Lock()
	r.statuses[server+"/"+section] = status
	r.mu.Unlock()

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		r.logger.Info("refresh loop started",
			"server", server, "section", section, "interval", every)

		ticker := time.NewTicker(every)
		defer ticker.Stop()

		r.cycle(ctx, status, build, publish)
		for {
			select {
			case <-ticker.C:
				r.cycle(ctx, status, build, publish)
			case <-ctx.Done():
				r.logger.Info("refresh loop stopped",
					"server", server, "section", section)
				return
			}
		}
	}()
}

// cycle performs one build+publish pass and records the outcome.
func (r *Runner) cycle(ctx context.Context, status *SectionStatus, build BuildFunc, publish PublishFunc) {
	cctx, cancel := context.WithTimeout(ctx, cycleTimeout)
	defer cancel()

	err := func() error {
		msg, err := build(cctx)
		if err != nil {
			return err
		}
		return publish(cctx, status.Section, msg)
	}()

	r.mu.Lock()
	defer r.mu.Unlock()
	status.Cycles++
	if err != nil {
		status.LastError = err.Error()
		status.LastErrorAt = time.Now()
		r.logger.Error("refresh cycle failed",
			"server", status.Server, "section", status.Section, "error", err)
		return
	}
	status.LastError = ""
	status.LastSuccess = time.Now()
}

// Wait blocks until every loop has stopped.
func (r *Runner) Wait() { r.wg.Wait() }

// Snapshot returns a copy of all section statuses.
func (r *Runner) Snapshot() []SectionStatus {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]SectionStatus, 0, len(r.statuses))
	for _, s := range r.statuses {
		out = append(out, *s)
	}
	return out
}
