package engine

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
)

// Dispatcher tries its engines one after another, lightest first, and
// returns the first success. Engines never run concurrently: a run fetches
// one page at a time.
type Dispatcher struct {
	engines []Engine
	memory  *DomainMemory
}

// NewDispatcher creates a Dispatcher over engines in escalation order.
func NewDispatcher(engines []Engine, memory *DomainMemory) *Dispatcher {
	if memory == nil {
		memory = NewDomainMemory()
	}
	return &Dispatcher{engines: engines, memory: memory}
}

// Engines returns the configured engine names in escalation order.
func (d *Dispatcher) Engines() []string {
	names := make([]string, len(d.engines))
	for i, e := range d.engines {
		names[i] = e.Name()
	}
	return names
}

// Dispatch fetches req. The engine remembered for the host goes first; on
// failure the remaining engines are tried in order. If all engines fail,
// the last error is returned.
func (d *Dispatcher) Dispatch(ctx context.Context, req *FetchRequest) (*FetchResult, error) {
	if len(d.engines) == 0 {
		return nil, fmt.Errorf("dispatcher: no engines configured")
	}
	host := extractHost(req.URL)

	order := d.engines
	if remembered := d.memory.Get(host); remembered != "" {
		order = preferEngine(d.engines, remembered)
	}

	var lastErr error
	for i, eng := range order {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		slog.Debug("engine starting", "engine", eng.Name(), "url", req.URL)
		result, err := eng.Fetch(ctx, req)
		if err == nil {
			if i > 0 {
				slog.Info("engine fallback succeeded", "engine", eng.Name(), "url", req.URL)
			}
			d.memory.Set(host, result.EngineName)
			return result, nil
		}
		slog.Debug("engine failed", "engine", eng.Name(), "url", req.URL, "error", err)
		if eng.Name() == d.memory.Get(host) {
			d.memory.Delete(host)
		}
		lastErr = err
	}
	return nil, lastErr
}

// preferEngine returns engines with the named one moved to the front.
func preferEngine(engines []Engine, name string) []Engine {
	out := make([]Engine, 0, len(engines))
	for _, e := range engines {
		if e.Name() == name {
			out = append(out, e)
		}
	}
	if len(out) == 0 {
		return engines
	}
	for _, e := range engines {
		if e.Name() != name {
			out = append(out, e)
		}
	}
	return out
}

// extractHost parses the hostname from a URL string.
func extractHost(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	return u.Hostname()
}
