package proxy

import (
	"bufio"
	"container/list"
	"net"

	"github.com/collinmsn/resp"
	pool "gopkg.in/fatih/pool.v2"

	log "github.com/ngaut/logging"
)

// BackendSession is one pipelined TCP connection to a backend server,
// the spec's Backend Connection (C4): it owns the in-flight FIFO pairing
// each unanswered request with the session it came from, invariant B1.
type BackendSession struct {
	conn         net.Conn
	requestQueue <-chan *PipelineRequest
	notifyExit   chan<- struct{}
	inflight     *list.List
	out          chan *resp.Object
	backend      *Backend
}

func NewBackendSession(conn net.Conn, requestQueue <-chan *PipelineRequest, notifyExit chan<- struct{}, backend *Backend) *BackendSession {
	s := &BackendSession{
		conn:         conn,
		requestQueue: requestQueue,
		notifyExit:   notifyExit,
		inflight:     list.New(),
		out:          make(chan *resp.Object, 1000),
		backend:      backend,
	}
	return s
}

func (s *BackendSession) Start() {
	go s.readingLoop()
	go s.writingLoop()
}

// readingLoop drives the RESP parser on the backend's reply stream and
// hands completed frames to the writing loop, which owns the in-flight
// FIFO (spec invariant B1: one reply token completed -> one FIFO head
// dequeued).
func (s *BackendSession) readingLoop() {
	reader := bufio.NewReader(s.conn)
	for {
		obj := resp.NewObject()
		if err := resp.ReadDataBytes(reader, obj); err != nil {
			log.Error(err)
			close(s.out)
			return
		}
		s.out <- obj
	}
}

// writingLoop is the session's single mutator of conn and inflight: all
// writes, all FIFO pops, and connection teardown happen here so neither
// needs its own lock.
func (s *BackendSession) writingLoop() {
	var loopErr error
	defer func() {
		s.conn.(*pool.PoolConn).MarkUnusable()
		s.conn.Close()
		// onError: fail every in-flight request with -BACKEND_DOWN
		message := "BACKEND_DOWN pending request is cleared"
		if loopErr != nil {
			message = "BACKEND_DOWN " + loopErr.Error()
		}
		obj := resp.NewObjectFromData(&resp.Data{
			T:      resp.T_Error,
			String: []byte(message),
		})
		for e := s.inflight.Front(); e != nil; e = e.Next() {
			plReq := e.Value.(*PipelineRequest)
			plRsp := &PipelineResponse{
				req: plReq,
				obj: obj,
			}
			plReq.backQ <- plRsp
		}
		s.notifyExit <- struct{}{}
	}()
	for {
		select {
		case req, ok := <-s.requestQueue:
			if !ok {
				log.Info("closed by backend")
				return
			}
			if err := s.handleReq(req); err != nil {
				loopErr = err
				return
			}
		case rsp, ok := <-s.out:
			if !ok {
				log.Info("exit triggered by reading loop")
				return
			}
			s.handleRsp(rsp)
		}
	}
}

func (s *BackendSession) handleReq(plReq *PipelineRequest) (err error) {
	// always put req into inflight list first so a write failure still
	// accounts for it when onError drains the FIFO
	s.inflight.PushBack(plReq)

	buf := plReq.cmd.Format()
	if _, err = s.conn.Write(buf); err != nil {
		log.Error(err)
	}
	return
}

func (s *BackendSession) handleRsp(obj *resp.Object) {
	if s.inflight.Len() == 0 {
		panic("reply with no matching in-flight request")
	}

	// any completed round trip, whatever the reply's own content, proves
	// the connection and the backend behind it are alive (spec §4.4).
	s.backend.markHealthy()

	plReq := s.inflight.Remove(s.inflight.Front()).(*PipelineRequest)
	plRsp := &PipelineResponse{
		req: plReq,
		obj: obj,
	}
	plReq.backQ <- plRsp
}
