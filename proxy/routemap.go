package proxy

import (
	"bytes"
	"sync/atomic"
)

// RouteEntry is one row of the route map: a key prefix and the pool(s) it
// routes to, spec §3/§4.6.
type RouteEntry struct {
	PrefixKey string
	WritePool *ServerPool
	ReadPool  *ServerPool // may be nil: falls back to WritePool
}

// RouteMap is the ordered, immutable prefix->pool table the spec calls C6.
// A RouteMap is never mutated after construction; hot-reload builds a new
// one and publishes it through RouteMapHandle.
type RouteMap struct {
	entries []RouteEntry
	pools   []*ServerPool // declaration order; index 0 is the default pool
}

func NewRouteMap(entries []RouteEntry, pools []*ServerPool) *RouteMap {
	return &RouteMap{entries: entries, pools: pools}
}

// route implements spec §4.6 steps 2-6 (the sticky-backend short circuit,
// step 1, is the caller's job since it needs the session, not just the
// map).
func (rm *RouteMap) route(key []byte, requireWrite bool) *ServerPool {
	if len(rm.pools) == 0 {
		return nil
	}
	if len(key) == 0 || len(rm.entries) == 0 {
		return rm.pools[0]
	}
	for _, e := range rm.entries {
		if e.PrefixKey == "" || e.PrefixKey == "*" || bytes.HasPrefix(key, []byte(e.PrefixKey)) {
			if requireWrite {
				return e.WritePool
			}
			if e.ReadPool != nil {
				return e.ReadPool
			}
			return e.WritePool
		}
	}
	return rm.pools[0]
}

// RouteMapHandle is an atomically swappable pointer to the current
// RouteMap: readers Load() once per request, the auxiliary controller
// Store()s a freshly built replacement on reload (spec §5's "exactly
// three shared resources", #1).
type RouteMapHandle struct {
	v atomic.Value
}

func NewRouteMapHandle(initial *RouteMap) *RouteMapHandle {
	h := &RouteMapHandle{}
	h.v.Store(initial)
	return h
}

func (h *RouteMapHandle) Load() *RouteMap {
	return h.v.Load().(*RouteMap)
}

func (h *RouteMapHandle) Store(rm *RouteMap) {
	h.v.Store(rm)
}

// Route is the full spec §4.6 algorithm, including the sticky-backend
// short circuit (step 1): a session mid-transaction or mid-subscription
// keeps using its pinned pool regardless of what the route map says.
func (h *RouteMapHandle) Route(stickyPool *ServerPool, key []byte, requireWrite bool) *ServerPool {
	if stickyPool != nil {
		return stickyPool
	}
	return h.Load().route(key, requireWrite)
}
