package proxy

import (
	"net"
	"sync/atomic"

	log "github.com/ngaut/logging"
)

// LogEveryN throttles the per-connection access log: one line is emitted
// for every LogEveryNth accepted connection instead of every single one.
var LogEveryN uint32 = 100

var acceptCount uint32

// Proxy is the spec's C8 worker entrypoint: it owns the listening socket
// and spins up one Session per accepted connection, wiring each session to
// the shared ConnPool, Dispatcher, RouteMapHandle and Authority.
type Proxy struct {
	addr        string
	dispatcher  *Dispatcher
	connPool    *ConnPool
	routeHandle *RouteMapHandle
	authority   *Authority

	listener net.Listener
	exit     chan struct{}
}

func NewProxy(addr string, dispatcher *Dispatcher, connPool *ConnPool, routeHandle *RouteMapHandle, authority *Authority) *Proxy {
	return &Proxy{
		addr:        addr,
		dispatcher:  dispatcher,
		connPool:    connPool,
		routeHandle: routeHandle,
		authority:   authority,
		exit:        make(chan struct{}),
	}
}

func (p *Proxy) Run() {
	listener, err := net.Listen("tcp", p.addr)
	if err != nil {
		log.Fatal(err)
	}
	p.listener = listener
	log.Info("proxy listens on", p.addr)
	p.dispatcher.Run()

	for {
		conn, err := listener.Accept()
		if err != nil {
			select {
			case <-p.exit:
				return
			default:
				log.Error("accept error", err)
				continue
			}
		}
		if n := atomic.AddUint32(&acceptCount, 1); n%LogEveryN == 0 {
			log.Info("accepted connection", conn.RemoteAddr(), "count", n)
		}
		go p.serve(conn)
	}
}

func (p *Proxy) serve(conn net.Conn) {
	io := NewSessionReadWriter(conn)
	session := NewSession(io, p.connPool, p.dispatcher, p.routeHandle, p.authority)
	session.Run()
}

func (p *Proxy) Exit() {
	close(p.exit)
	if p.listener != nil {
		p.listener.Close()
	}
	p.dispatcher.Exit()
}
