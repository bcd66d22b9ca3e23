package proxy

import (
	"time"

	log "github.com/ngaut/logging"
)

// ConfSource is the contract the auxiliary controller polls for config
// changes; spec.md names the config loader as an external collaborator
// that "produces an immutable Conf snapshot" — here it is reduced to the
// two calls C9 actually needs.
type ConfSource interface {
	// Updated reports whether the underlying config changed since the
	// last successful Build, e.g. a file mtime bump or a version counter.
	Updated() bool
	// Build parses the current config into a fresh RouteMap.
	Build() (*RouteMap, error)
}

// AuxiliaryController is the spec's C9: a single background thread that
// wakes every second, and when ConfSource reports a change, rebuilds the
// RouteMap and publishes it through the handle. It never swaps the
// ServerPool list itself — only routing is hot-reloadable (spec §4.9).
type AuxiliaryController struct {
	source ConfSource
	handle *RouteMapHandle
	stats  *StatsVersioner
	period time.Duration
	exit   chan struct{}
}

func NewAuxiliaryController(source ConfSource, handle *RouteMapHandle, stats *StatsVersioner) *AuxiliaryController {
	return &AuxiliaryController{
		source: source,
		handle: handle,
		stats:  stats,
		period: time.Second,
		exit:   make(chan struct{}),
	}
}

func (a *AuxiliaryController) Run() {
	go a.loop()
}

func (a *AuxiliaryController) loop() {
	ticker := time.NewTicker(a.period)
	defer ticker.Stop()
	for {
		select {
		case <-a.exit:
			return
		case <-ticker.C:
			if a.source == nil || !a.source.Updated() {
				continue
			}
			rm, err := a.source.Build()
			if err != nil {
				log.Error("rebuild route map failed", err)
				continue
			}
			a.handle.Store(rm)
			if a.stats != nil {
				a.stats.Bump()
			}
			log.Info("published new route map")
		}
	}
}

func (a *AuxiliaryController) Stop() {
	close(a.exit)
}

// StaticConfSource is the ConfSource for a deployment with no hot-reloadable
// route config: Updated never reports a change, so the auxiliary
// controller's loop ticks forever without ever rebuilding the route map.
// Deployments that do want file-watched routing swap this for a real
// ConfSource without touching AuxiliaryController itself.
type StaticConfSource struct{}

func (StaticConfSource) Updated() bool             { return false }
func (StaticConfSource) Build() (*RouteMap, error) { return nil, nil }
