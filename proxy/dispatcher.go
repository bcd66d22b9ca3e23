package proxy

import (
	"bufio"
	"errors"
	"net"
	"sync"
	"time"

	"github.com/collinmsn/resp"
	pool "gopkg.in/fatih/pool.v2"
	log "github.com/ngaut/logging"
)

var (
	clusterSlotsCmdBytes []byte
	ErrAllNodesFailed    = errors.New("all startup nodes are failed to get cluster slots")
)

func init() {
	cmd, _ := resp.NewCommand("CLUSTER", "SLOTS")
	clusterSlotsCmdBytes = cmd.Format()
}

// Dispatcher is the backend side of the worker loop (C8): it keeps one
// Backend per backend address, lazily started on first use, and owns the
// slot table refresh loop for cluster deployments. The loop rebuilds the
// slot table wholesale from `CLUSTER SLOTS` without blocking dispatch, but
// only after TriggerReloadSlots has been called; there is no periodic
// refresh without a trigger.
type Dispatcher struct {
	startupNodes          []string
	slotTable             *SlotTable
	slotReloadInterval    time.Duration
	connPool              *ConnPool
	connectionsPerBackend int
	stats                 *StatsVersioner

	mu       sync.Mutex
	backends map[string]*Backend

	slotReloadChan chan struct{}
	exit           chan struct{}
}

func NewDispatcher(startupNodes []string, slotReloadInterval time.Duration, connPool *ConnPool, connectionsPerBackend int, slotTable *SlotTable, stats *StatsVersioner) *Dispatcher {
	d := &Dispatcher{
		startupNodes:          startupNodes,
		slotTable:             slotTable,
		slotReloadInterval:    slotReloadInterval,
		connPool:              connPool,
		connectionsPerBackend: connectionsPerBackend,
		stats:                 stats,
		backends:              make(map[string]*Backend),
		slotReloadChan:        make(chan struct{}, 1),
		exit:                  make(chan struct{}),
	}
	return d
}

// InitSlotTable performs the initial synchronous `CLUSTER SLOTS` load so
// the proxy never accepts traffic before it knows the topology.
func (d *Dispatcher) InitSlotTable() error {
	slotInfos, err := d.reloadTopology()
	if err != nil {
		return err
	}
	d.slotTable.SetAll(slotInfos)
	return nil
}

// Run starts the background slot-reload loop. It does not block.
func (d *Dispatcher) Run() {
	go d.slotsReloadLoop()
}

// ScheduleTo enqueues req on the Backend for addr, creating it on first
// use (spec §4.4/§4.8: backend connections are created lazily and owned
// exclusively by the worker that first addresses them).
func (d *Dispatcher) ScheduleTo(addr string, req *PipelineRequest) {
	d.backendFor(addr).Schedule(req)
}

func (d *Dispatcher) backendFor(addr string) *Backend {
	d.mu.Lock()
	defer d.mu.Unlock()
	b, ok := d.backends[addr]
	if !ok {
		log.Info("create backend", addr)
		b = NewBackend(addr, d.connPool, d.connectionsPerBackend)
		b.Start()
		d.backends[addr] = b
		if d.stats != nil {
			d.stats.Bump()
		}
	}
	return b
}

// slotsReloadLoop waits for TriggerReloadSlots (throttled to at most once
// per slotReloadInterval) and rebuilds the slot table wholesale, pruning
// backends that no longer own any slot.
func (d *Dispatcher) slotsReloadLoop() {
	for {
		select {
		case <-d.exit:
			log.Info("exit reload slot table loop")
			return
		case <-time.After(d.slotReloadInterval):
			select {
			case <-d.slotReloadChan:
			default:
				continue
			}
			slotInfos, err := d.reloadTopology()
			if err != nil {
				log.Error("reload slot table failed", err)
				continue
			}
			d.slotTable.SetAll(slotInfos)
			d.pruneBackends(slotInfos)
		}
	}
}

// pruneBackends stops and forgets every Backend whose address no longer
// owns a slot after a reload, and drops its idle connection pool too: a
// resharded-away node's idle conns are otherwise never reclaimed, since
// ConnPool only ever removes a pool on request (Backend.onConnectFailure)
// or here, never on its own.
func (d *Dispatcher) pruneBackends(slotInfos []*SlotInfo) {
	live := make(map[string]bool)
	for _, si := range slotInfos {
		live[si.write] = true
		for _, addr := range si.read {
			live[addr] = true
		}
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	for addr, b := range d.backends {
		if !live[addr] {
			b.Stop()
			delete(d.backends, addr)
			d.connPool.Remove(addr)
		}
	}
}

// TriggerReloadSlots schedules a reload; this call is inherently
// throttled so multiple sessions hitting MOVED or a failed request
// concurrently only cause one actual reload.
func (d *Dispatcher) TriggerReloadSlots() {
	select {
	case d.slotReloadChan <- struct{}{}:
	default:
	}
}

func (d *Dispatcher) Exit() {
	close(d.exit)
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, b := range d.backends {
		b.Stop()
	}
}

// reloadTopology requests `CLUSTER SLOTS` from each startup node in turn
// until one answers.
func (d *Dispatcher) reloadTopology() (slotInfos []*SlotInfo, err error) {
	log.Info("reload slot table")
	for _, server := range d.startupNodes {
		if slotInfos, err = d.doReload(server); err == nil {
			return slotInfos, nil
		}
	}
	if err == nil {
		err = ErrAllNodesFailed
	}
	return nil, err
}

func (d *Dispatcher) doReload(server string) (slotInfos []*SlotInfo, err error) {
	var conn net.Conn
	conn, err = d.connPool.GetConn(server)
	if err != nil {
		log.Error(server, err)
		return
	}
	defer func() {
		if err != nil {
			conn.(*pool.PoolConn).MarkUnusable()
		}
		conn.Close()
	}()
	if _, err = conn.Write(clusterSlotsCmdBytes); err != nil {
		log.Error(server, err)
		return
	}
	r := bufio.NewReader(conn)
	var data *resp.Data
	data, err = resp.ReadData(r)
	if err != nil {
		log.Error(server, err)
		return
	}
	slotInfos = make([]*SlotInfo, 0, len(data.Array))
	for _, info := range data.Array {
		si, serr := NewSlotInfo(info)
		if serr != nil {
			err = serr
			return nil, err
		}
		slotInfos = append(slotInfos, si)
	}
	return slotInfos, nil
}
