package collector

import (
	"net/http"

	"codeberg.org/mutker/reqprof/internal/boot"
	"codeberg.org/mutker/reqprof/internal/dump"
	"codeberg.org/mutker/reqprof/internal/profiler"
	"codeberg.org/mutker/reqprof/internal/view"
)

// BootSource reports registered and completed boots.
type BootSource interface {
	Registered() []boot.Registration
	Booted() []boot.Booted
}

// Boots shows the boots of the application.
type Boots struct {
	booter BootSource
}

func NewBoots(booter BootSource) *Boots {
	return &Boots{booter: booter}
}

func (c *Boots) Name() string { return BootsName }

func (c *Boots) Collect(*http.Request, *profiler.Response) (map[string]any, error) {
	if c.booter == nil {
		return map[string]any{}, nil
	}

	registered := []map[string]any{}
	for _, b := range c.booter.Registered() {
		registered = append(registered, map[string]any{
			"name":     b.Name,
			"priority": b.Priority,
		})
	}

	booted := []map[string]any{}
	for _, b := range c.booter.Booted() {
		booted = append(booted, map[string]any{
			"name":      b.Name,
			"priority":  b.Priority,
			"time (ms)": float64(b.Duration.Nanoseconds()) / 1e6,
			"info":      dump.HTML(b.Info),
		})
	}

	return map[string]any{
		"registered": registered,
		"booted":     booted,
	}, nil
}

func (c *Boots) Render(r view.Renderer, data map[string]any) (string, error) {
	return renderTables(r,
		&view.Table{
			Rows:    view.Rows(data["booted"]),
			Title:   "Booted",
			Columns: []string{"name", "priority", "time (ms)", "info"},
			HTML:    []string{"info"},
		},
		&view.Table{
			Rows:    view.Rows(data["registered"]),
			Title:   "Registered Boots",
			Columns: []string{"name", "priority"},
		},
	)
}

func (c *Boots) Data(map[string]any) profiler.Summary {
	return profiler.Summary{}
}
