// Package boot runs application boot steps by priority.
package boot

import (
	"context"
	"sort"
	"sync"
	"time"

	"codeberg.org/mutker/reqprof/internal/errors"
	"codeberg.org/mutker/reqprof/internal/logger"
)

// Boot is one startup step.
type Boot interface {
	Name() string
	Priority() int
	Info() []string
	Boot(ctx context.Context) error
}

type funcBoot struct {
	name     string
	priority int
	info     []string
	fn       func(ctx context.Context) error
}

// New returns a Boot running fn.
func New(name string, priority int, fn func(ctx context.Context) error, info ...string) Boot {
	return &funcBoot{name: name, priority: priority, info: info, fn: fn}
}

func (b *funcBoot) Name() string                   { return b.name }
func (b *funcBoot) Priority() int                  { return b.priority }
func (b *funcBoot) Info() []string                 { return b.info }
func (b *funcBoot) Boot(ctx context.Context) error { return b.fn(ctx) }

// Registration describes a registered boot.
type Registration struct {
	Name     string
	Priority int
}

// Booted describes a completed boot.
type Booted struct {
	Name     string
	Priority int
	Duration time.Duration
	Info     []string
}

// Booter runs registered boots once each, highest priority first.
type Booter struct {
	mu     sync.RWMutex
	boots  []Boot
	booted []Booted
	done   bool
	logger logger.Logger
}

func NewBooter() *Booter {
	return &Booter{logger: logger.Get("boot")}
}

func (b *Booter) Register(boots ...Boot) *Booter {
	b.mu.Lock()
	b.boots = append(b.boots, boots...)
	b.mu.Unlock()
	return b
}

// Boot runs every registered boot. It stops at the first failure.
func (b *Booter) Boot(ctx context.Context) error {
	errFactory := errors.New()

	b.mu.Lock()
	if b.done {
		b.mu.Unlock()
		return errFactory.New(ErrAlreadyDone)
	}
	b.done = true
	boots := make([]Boot, len(b.boots))
	copy(boots, b.boots)
	b.mu.Unlock()

	sort.SliceStable(boots, func(i, j int) bool {
		return boots[i].Priority() > boots[j].Priority()
	})

	for _, boot := range boots {
		start := time.Now()
		if err := boot.Boot(ctx); err != nil {
			return errFactory.WithData(ErrBootFailed, struct {
				Boot  string
				Error string
			}{
				Boot:  boot.Name(),
				Error: err.Error(),
			})
		}
		elapsed := time.Since(start)

		b.mu.Lock()
		b.booted = append(b.booted, Booted{
			Name:     boot.Name(),
			Priority: boot.Priority(),
			Duration: elapsed,
			Info:     boot.Info(),
		})
		b.mu.Unlock()

		b.logger.Debug().
			Str("boot", boot.Name()).
			Int("priority", boot.Priority()).
			Dur("duration", elapsed).
			Msg("Booted")
	}

	return nil
}

// Registered lists registered boots in registration order.
func (b *Booter) Registered() []Registration {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]Registration, 0, len(b.boots))
	for _, boot := range b.boots {
		out = append(out, Registration{Name: boot.Name(), Priority: boot.Priority()})
	}
	return out
}

// Booted lists completed boots in run order.
func (b *Booter) Booted() []Booted {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]Booted, len(b.booted))
	copy(out, b.booted)
	return out
}
