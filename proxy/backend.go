package proxy

import (
	"sync/atomic"

	"github.com/collinmsn/resp"
	log "github.com/ngaut/logging"
)

const (
	BACKEND_REQUEST_QUEUE_SIZE = 5000
)

// Health states for a Backend, spec §3.
const (
	HealthUp int32 = iota
	HealthSuspect
	HealthDown
)

// Backend represents one backend redis server; it owns a pool of
// BackendSessions (pipelined TCP connections) and a shared request queue
// they drain from, the spec's C4.
type Backend struct {
	addr         string
	connPool     *ConnPool
	connections  int
	requestQueue chan *PipelineRequest
	sessionExit  chan struct{}
	exit         chan struct{}

	health        int32
	consecFailure int32
}

func NewBackend(addr string, connPool *ConnPool, connections int) *Backend {
	b := &Backend{
		addr:         addr,
		connPool:     connPool,
		connections:  connections,
		requestQueue: make(chan *PipelineRequest, BACKEND_REQUEST_QUEUE_SIZE),
		sessionExit:  make(chan struct{}, connections),
		exit:         make(chan struct{}),
	}
	return b
}

func (b *Backend) Start() {
	go b.run()
}

func (b *Backend) Schedule(plReq *PipelineRequest) {
	b.requestQueue <- plReq
}

func (b *Backend) Stop() {
	close(b.exit)
}

func (b *Backend) Health() int32 {
	return atomic.LoadInt32(&b.health)
}

func (b *Backend) run() {
	for i := 0; i < b.connections; i++ {
		b.sessionExit <- struct{}{}
	}
	for {
		select {
		case <-b.exit:
			close(b.requestQueue)
			return
		case <-b.sessionExit:
			b.startBackendSession()
		}
	}
}

func (b *Backend) startBackendSession() {
	log.Info("start backend session to", b.addr)
	conn, err := b.connPool.GetConn(b.addr)
	if err != nil {
		log.Error(err, b.addr)
		b.onConnectFailure()
		// can not connect to backend, clear one pending request to avoid
		// blocking the dispatcher forever on a backend that is down
		select {
		case req := <-b.requestQueue:
			plRsp := &PipelineResponse{
				obj: resp.NewObjectFromData(&resp.Data{
					T:      resp.T_Error,
					String: []byte(err.Error()),
				}),
				req: req,
			}
			req.backQ <- plRsp
		default:
		}
		b.sessionExit <- struct{}{}
		return
	}
	b.markHealthy()
	session := NewBackendSession(conn, b.requestQueue, b.sessionExit, b)
	session.Start()
}

// onConnectFailure implements spec §4.4's health rule: three consecutive
// connect failures mark the backend Down and drop its idle connection pool,
// so the next reconnect attempt dials fresh instead of resurrecting
// whatever channel pool state was left behind by the failing address.
func (b *Backend) onConnectFailure() {
	if atomic.AddInt32(&b.consecFailure, 1) >= 3 {
		atomic.StoreInt32(&b.health, HealthDown)
		b.connPool.Remove(b.addr)
	} else {
		atomic.StoreInt32(&b.health, HealthSuspect)
	}
}

// markHealthy implements the other half of spec §4.4: a single successful
// round trip — a connect, or a completed request/reply relayed by
// BackendSession.handleRsp — clears consecFailure and marks the backend Up
// again.
func (b *Backend) markHealthy() {
	atomic.StoreInt32(&b.consecFailure, 0)
	atomic.StoreInt32(&b.health, HealthUp)
}
