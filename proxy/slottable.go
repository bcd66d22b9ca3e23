package proxy

import (
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/collinmsn/resp"
)

var errInvalidSlotInfo = errors.New("invalid slot info")

const (
	CLUSTER_SLOTS_START        = 0
	CLUSTER_SLOTS_END          = 1
	CLUSTER_SLOTS_SERVER_START = 2
)

// ReadStrategy selects which backend in a ServerGroup serves a read-only
// request, spec §4.5.
type ReadStrategy int

const (
	ReadAllReplicasRoundRobin ReadStrategy = iota
	ReadPreferSameDC
	ReadMasterIfNoReplica
)

// ServerGroup is one master plus its replicas for a single slot range,
// spec's BackendGroup (§3).
type ServerGroup struct {
	write string
	read  []string
}

// SlotTable maps cluster slots to the ServerGroup that owns them. The
// table is swapped wholesale under an atomic.Value so readers never block
// on a writer mid-reload (spec §4.5, §5): `pick(slot, readOnly)`.
type SlotTable struct {
	groups       atomic.Value // []*ServerGroup, length NumSlots
	counter      uint32
	readStrategy ReadStrategy
	localDC      string
	dcOf         map[string]string // addr -> data center tag, optional
	stats        *StatsVersioner
}

func NewSlotTable(strategy ReadStrategy, localDC string, dcOf map[string]string, stats *StatsVersioner) *SlotTable {
	st := &SlotTable{
		readStrategy: strategy,
		localDC:      localDC,
		dcOf:         dcOf,
		stats:        stats,
	}
	st.groups.Store(make([]*ServerGroup, NumSlots))
	return st
}

func (st *SlotTable) snapshot() []*ServerGroup {
	return st.groups.Load().([]*ServerGroup)
}

// WriteServer returns the master address for slot, or ("", false) if the
// slot is unassigned (spec invariant P1: callers must fail fast with
// CLUSTERDOWN in that case).
func (st *SlotTable) WriteServer(slot int) (string, bool) {
	g := st.snapshot()[slot]
	if g == nil {
		return "", false
	}
	return g.write, true
}

// ReadServer picks a backend to serve a read-only request for slot,
// applying the configured ReadStrategy. Falls back to the master when no
// replica is available.
func (st *SlotTable) ReadServer(slot int) (string, bool) {
	g := st.snapshot()[slot]
	if g == nil {
		return "", false
	}
	if len(g.read) == 0 {
		return g.write, true
	}
	switch st.readStrategy {
	case ReadPreferSameDC:
		for _, addr := range g.read {
			if st.dcOf[addr] == st.localDC && st.localDC != "" {
				return addr, true
			}
		}
		fallthrough
	case ReadAllReplicasRoundRobin:
		n := atomic.AddUint32(&st.counter, 1)
		return g.read[n%uint32(len(g.read))], true
	case ReadMasterIfNoReplica:
		return g.write, true
	default:
		return g.write, true
	}
}

// Masters returns the distinct master addresses currently owning at least
// one slot, in first-seen order, for SCAN's across-all-masters fan-out.
func (st *SlotTable) Masters() []string {
	seen := make(map[string]bool)
	var out []string
	for _, g := range st.snapshot() {
		if g == nil || seen[g.write] {
			continue
		}
		seen[g.write] = true
		out = append(out, g.write)
	}
	return out
}

// SetSlotInfo installs si over its [start, end] range, copy-on-write so
// concurrent readers of the previous snapshot are unaffected.
func (st *SlotTable) SetSlotInfo(si *SlotInfo) {
	old := st.snapshot()
	next := make([]*ServerGroup, len(old))
	copy(next, old)
	g := &ServerGroup{write: si.write, read: si.read}
	for i := si.start; i <= si.end; i++ {
		next[i] = g
	}
	st.groups.Store(next)
	if st.stats != nil {
		st.stats.Bump()
	}
}

// SetAll replaces the entire table, used after a full `CLUSTER SLOTS`
// reload rather than a single MOVED redirect.
func (st *SlotTable) SetAll(slotInfos []*SlotInfo) {
	next := make([]*ServerGroup, NumSlots)
	for _, si := range slotInfos {
		g := &ServerGroup{write: si.write, read: si.read}
		for i := si.start; i <= si.end; i++ {
			next[i] = g
		}
	}
	st.groups.Store(next)
	if st.stats != nil {
		st.stats.Bump()
	}
}

// SlotInfo is one `CLUSTER SLOTS` row: a slot range and the group of
// servers that own it.
type SlotInfo struct {
	start int
	end   int
	write string
	read  []string
}

// NewSlotInfo parses one element of a `CLUSTER SLOTS` reply:
//
//	1) (integer) 10923          ; start
//	2) (integer) 16383          ; end
//	3) 1) "10.0.0.1"            ; master
//	   2) (integer) 7001
//	4) 1) "10.0.0.2"            ; replica
//	   2) (integer) 7001
func NewSlotInfo(data *resp.Data) (*SlotInfo, error) {
	if len(data.Array) < CLUSTER_SLOTS_SERVER_START+1 {
		return nil, errInvalidSlotInfo
	}
	si := &SlotInfo{
		start: int(data.Array[CLUSTER_SLOTS_START].Integer),
		end:   int(data.Array[CLUSTER_SLOTS_END].Integer),
	}
	for i := CLUSTER_SLOTS_SERVER_START; i < len(data.Array); i++ {
		node := data.Array[i]
		if len(node.Array) < 2 {
			return nil, errInvalidSlotInfo
		}
		host := string(node.Array[0].String)
		if len(host) == 0 {
			host = "127.0.0.1"
		}
		addr := fmt.Sprintf("%s:%d", host, int(node.Array[1].Integer))
		if i == CLUSTER_SLOTS_SERVER_START {
			si.write = addr
		} else {
			si.read = append(si.read, addr)
		}
	}
	return si, nil
}
