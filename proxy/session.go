package proxy

import (
	"bufio"
	"bytes"
	"container/heap"
	"errors"
	"net"
	"strconv"
	"strings"
	"sync"

	"gopkg.in/fatih/pool.v2"

	"github.com/collinmsn/resp"
	log "github.com/ngaut/logging"
)

var (
	MOVED         = []byte("-MOVED")
	ASK           = []byte("-ASK")
	ASK_CMD_BYTES = []byte("+ASKING\r\n")
	BLACK_CMD_ERR = []byte("unsupported command")
)

// preAuthAllowed is the set of commands a PreAuth session may still issue
// (spec §4.8): everything else replies -NOAUTH.
var preAuthAllowed = map[string]bool{
	"AUTH": true, "HELLO": true, "PING": true, "QUIT": true,
}

// SessionState is the spec's Session.transaction/subscribe composite
// state, collapsed into the four states actually named in §4.8: PreAuth,
// Ready, TxnQueued (the spec's "Queued"/"Discarding" pair, since DISCARD
// is just an exit transition out of Queued rather than a state of its
// own) and Subscribed.
type SessionState int

const (
	StatePreAuth SessionState = iota
	StateReady
	StateTxnQueued
	StateSubscribed
)

type RespReadWriter interface {
	ReadCommand() (*resp.Command, error)
	WriteObject(*resp.Object) error
	Close() error
	RemoteAddr() net.Addr
}

// SessionReadWriter owns client-facing I/O: unbuffered writes (replies go
// out as soon as they're built, they're already framed) and a buffered
// reader for the incoming command stream.
type SessionReadWriter struct {
	net.Conn
	reader *bufio.Reader
}

func NewSessionReadWriter(conn net.Conn) *SessionReadWriter {
	return &SessionReadWriter{
		Conn:   conn,
		reader: bufio.NewReader(conn),
	}
}

func (s *SessionReadWriter) ReadCommand() (cmd *resp.Command, err error) {
	if cmd, err = resp.ReadCommand(s.reader); err != nil {
		log.Error("read from client", err, s.RemoteAddr())
	}
	return
}

func (s *SessionReadWriter) WriteObject(obj *resp.Object) (err error) {
	if _, err = s.Write(obj.Raw()); err != nil {
		log.Error("write to client", err, s.RemoteAddr())
	}
	return
}

// Session is the spec's C7: a per-client state machine layered over the
// routing/dispatch core. Connection reading and writing run in their own
// goroutines, since requests fan out to different backends and may answer
// out of order; a heap reorders replies back into arrival order before
// they reach the client (invariant S1).
type Session struct {
	io       RespReadWriter
	reqSeq   int64
	ackSeq   int64
	rspCh    chan *PipelineResponse
	closeWg  *WaitGroupWrapper
	reqWg    *sync.WaitGroup
	rspHeap  *PipelineResponseHeap
	connPool *ConnPool

	dispatcher  *Dispatcher
	routeHandle *RouteMapHandle
	authority   *Authority

	state     SessionState
	authed    bool
	permitted commandSet

	txnQueue   []*resp.Command
	stickyPool *ServerPool
}

func NewSession(io RespReadWriter, connPool *ConnPool, dispatcher *Dispatcher, routeHandle *RouteMapHandle, authority *Authority) *Session {
	session := &Session{
		io:          io,
		rspCh:       make(chan *PipelineResponse, 1000),
		closeWg:     &WaitGroupWrapper{},
		reqWg:       &sync.WaitGroup{},
		connPool:    connPool,
		dispatcher:  dispatcher,
		routeHandle: routeHandle,
		authority:   authority,
		rspHeap:     &PipelineResponseHeap{},
		state:       StatePreAuth,
	}
	if authority == nil || !authority.RequiresAuth() {
		session.state = StateReady
		session.authed = true
		session.permitted = AllowAll
	}
	return session
}

func (s *Session) Run() {
	s.closeWg.Wrap(s.WritingLoop)
	s.closeWg.Wrap(s.ReadingLoop)
	s.closeWg.Wait()
}

// WritingLoop consumes rspCh and writes replies to the client, reordering
// through rspHeap as needed. It closes the connection to notify the
// reader on any write error and otherwise runs until the reader side
// closes rspCh.
func (s *Session) WritingLoop() {
	defer func() {
		s.io.Close()
		// client is gone: drain and ack every pending reply so ReadingLoop's
		// reqWg.Wait() unblocks instead of hanging on an orphaned request.
		for {
			if rsp, ok := <-s.rspCh; ok {
				rsp.req.wg.Done()
			} else {
				break
			}
		}
		log.Info("exit writing loop", s.io.RemoteAddr())
	}()
	for rsp := range s.rspCh {
		if err := s.handleRespPipeline(rsp); err != nil {
			return
		}
	}
}

func (s *Session) ReadingLoop() {
	defer func() {
		// safe to close rspCh only after every request has been accounted for
		s.reqWg.Wait()
		close(s.rspCh)
		log.Info("exit reading loop", s.io.RemoteAddr())
	}()
	for {
		cmd, err := s.io.ReadCommand()
		if err != nil {
			break
		}
		if len(cmd.Args) == 0 {
			continue
		}
		cmd.Args[0] = strings.ToUpper(cmd.Args[0])
		s.handleCommand(cmd)
	}
}

// handleCommand is the C7 state machine entry point: every command
// arriving off the wire passes through here before it is either answered
// locally or turned into one or more PipelineRequests.
func (s *Session) handleCommand(cmd *resp.Command) {
	name := cmd.Name()
	cmdFlag := CmdFlag(cmd)

	if cmdFlag&CMD_FLAG_BLACK != 0 {
		s.replyLocal(&resp.Data{T: resp.T_Error, String: BLACK_CMD_ERR})
		return
	}
	if !CheckArity(cmd) {
		s.replyLocal(&resp.Data{T: resp.T_Error, String: []byte("ERR wrong number of arguments for '" + strings.ToLower(name) + "' command")})
		return
	}

	if s.state == StatePreAuth {
		if name == "AUTH" {
			s.handleAuth(cmd)
			return
		}
		if !preAuthAllowed[name] {
			s.replyLocal(&resp.Data{T: resp.T_Error, String: []byte("NOAUTH Authentication required")})
			return
		}
	} else if name == "AUTH" {
		s.handleAuth(cmd)
		return
	} else if !s.permitted.allows(name) {
		s.replyLocal(&resp.Data{T: resp.T_Error, String: []byte("NOPERM this user has no permissions to run this command")})
		return
	}

	switch name {
	case "PING":
		if len(cmd.Args) == 1 {
			s.replyLocal(&resp.Data{T: resp.T_SimpleString, String: []byte("PONG")})
			return
		}
	case "SELECT":
		// proxy-scope no-op: a single proxy worker fans out to backends that
		// each own their own keyspace, there is no per-connection db to select
		s.replyLocal(&resp.Data{T: resp.T_SimpleString, String: []byte("OK")})
		return
	case "QUIT":
		s.replyLocal(&resp.Data{T: resp.T_SimpleString, String: []byte("OK")})
		s.io.Close()
		return
	case "SCAN":
		if s.state == StateReady {
			s.handleScan(cmd)
			return
		}
	}

	switch s.state {
	case StateSubscribed:
		s.handleSubscribedCmd(cmd, name)
	case StateTxnQueued:
		s.handleQueuedCmd(cmd, name, cmdFlag)
	default:
		s.handleReadyCmd(cmd, name, cmdFlag)
	}
}

func (s *Session) handleAuth(cmd *resp.Command) {
	var user, password string
	switch len(cmd.Args) {
	case 2:
		user, password = "default", cmd.Value(1)
	case 3:
		user, password = cmd.Value(1), cmd.Value(2)
	default:
		s.replyLocal(&resp.Data{T: resp.T_Error, String: []byte("ERR wrong number of arguments for 'auth' command")})
		return
	}
	if s.authority == nil || !s.authority.RequiresAuth() {
		s.replyLocal(&resp.Data{T: resp.T_Error, String: []byte("ERR Client sent AUTH, but no password is set")})
		return
	}
	permitted, ok := s.authority.Verify(user, password)
	if !ok {
		s.replyLocal(&resp.Data{T: resp.T_Error, String: []byte("WRONGPASS invalid username-password pair")})
		return
	}
	s.authed = true
	s.permitted = permitted
	s.state = StateReady
	s.replyLocal(&resp.Data{T: resp.T_SimpleString, String: []byte("OK")})
}

func (s *Session) handleReadyCmd(cmd *resp.Command, name string, cmdFlag int) {
	switch name {
	case "MULTI":
		s.state = StateTxnQueued
		s.txnQueue = nil
		s.stickyPool = nil
		s.replyLocal(&resp.Data{T: resp.T_SimpleString, String: []byte("OK")})
		return
	case "EXEC":
		s.replyLocal(&resp.Data{T: resp.T_Error, String: []byte("ERR EXEC without MULTI")})
		return
	case "DISCARD":
		s.replyLocal(&resp.Data{T: resp.T_Error, String: []byte("ERR DISCARD without MULTI")})
		return
	}

	if IsSubscribeFamily(cmd) {
		routePool := s.routeHandle.Route(nil, subscribePinKey(cmd), false)
		if routePool == nil {
			s.replyLocal(&resp.Data{T: resp.T_Error, String: []byte(ErrClusterDown.Error())})
			return
		}
		s.stickyPool = routePool
		s.state = StateSubscribed
		s.forwardToPool(cmd, false, routePool)
		return
	}

	if yes, numKeys := IsMultiCmd(cmd); yes && numKeys > 1 {
		key := []byte(cmd.Value(1))
		requireWrite := cmdFlag&CMD_FLAG_WRITE != 0
		routePool := s.routeHandle.Route(nil, key, requireWrite)
		if routePool == nil {
			s.replyLocal(&resp.Data{T: resp.T_Error, String: []byte(ErrClusterDown.Error())})
			return
		}
		if IsSplitMultiKey(routePool.IsCluster(), routePool.NumGroups()) {
			s.handleMultiKeyCmd(cmd, numKeys, routePool)
			return
		}
	}
	s.handleGenericCmd(cmd, cmdFlag)
}

func (s *Session) handleQueuedCmd(cmd *resp.Command, name string, cmdFlag int) {
	switch name {
	case "MULTI":
		s.replyLocal(&resp.Data{T: resp.T_Error, String: []byte("ERR MULTI calls can not be nested")})
		return
	case "DISCARD":
		s.txnQueue = nil
		s.stickyPool = nil
		s.state = StateReady
		s.replyLocal(&resp.Data{T: resp.T_SimpleString, String: []byte("OK")})
		return
	case "EXEC":
		s.handleExec()
		return
	}

	if s.stickyPool == nil {
		key := []byte(cmd.Value(1))
		requireWrite := cmdFlag&CMD_FLAG_WRITE != 0
		s.stickyPool = s.routeHandle.Route(nil, key, requireWrite)
	}
	s.txnQueue = append(s.txnQueue, cmd)
	s.replyLocal(&resp.Data{T: resp.T_SimpleString, String: []byte("QUEUED")})
}

func (s *Session) handleSubscribedCmd(cmd *resp.Command, name string) {
	if !subscribeAllowedCmds[name] {
		s.replyLocal(&resp.Data{T: resp.T_Error, String: []byte("ERR only (P)SUBSCRIBE / (P)UNSUBSCRIBE / PING / QUIT allowed in this context")})
		return
	}
	routePool := s.stickyPool
	if routePool == nil {
		s.replyLocal(&resp.Data{T: resp.T_Error, String: []byte(ErrClusterDown.Error())})
		return
	}
	s.forwardToPool(cmd, false, routePool)
	if name == "UNSUBSCRIBE" || name == "PUNSUBSCRIBE" {
		s.state = StateReady
		s.stickyPool = nil
	}
}

// handleExec forwards every queued command to the pinned sticky backend as
// one pipelined block on a connection reserved for the duration of the
// block (spec §4.8 scenario 5, invariant S2: no other session may use that
// connection while the transaction is in flight), then releases
// stickiness. Unlike a split multi-key command, EXEC does not fan its
// children out through the shared per-backend request queue: that queue is
// drained concurrently by every BackendSession on the address and by every
// other session routed there, so queuing the block's commands individually
// would let a concurrent client's command land between two of them. Instead
// the block is wrapped in a real backend-side MULTI/EXEC and written as one
// buffer on a connection checked out of the pool exclusively for the call.
func (s *Session) handleExec() {
	queue := s.txnQueue
	routePool := s.stickyPool
	s.txnQueue = nil
	s.stickyPool = nil
	s.state = StateReady

	if len(queue) == 0 {
		s.replyLocal(&resp.Data{T: resp.T_Array, Array: []*resp.Data{}})
		return
	}
	if routePool == nil {
		s.replyLocal(&resp.Data{T: resp.T_Error, String: []byte(ErrClusterDown.Error())})
		return
	}

	key := []byte(queue[0].Value(1))
	var slot int
	if len(key) > 0 {
		slot = Key2Slot(key)
	}
	addr, err := routePool.Pick(key, slot, false)
	if err != nil {
		s.replyLocal(&resp.Data{T: resp.T_Error, String: []byte(err.Error())})
		return
	}

	plReq := &PipelineRequest{seq: s.advanceReqSeq(), wg: s.reqWg}
	s.reqWg.Add(1)
	obj, err := s.execOnBackend(addr, queue)
	if err != nil {
		if s.dispatcher != nil {
			s.dispatcher.TriggerReloadSlots()
		}
		s.rspCh <- &PipelineResponse{req: plReq, obj: resp.NewObjectFromData(&resp.Data{T: resp.T_Error, String: []byte(err.Error())})}
		return
	}
	s.rspCh <- &PipelineResponse{req: plReq, obj: obj}
}

// execOnBackend reserves a connection to addr for the exclusive use of one
// MULTI/EXEC block: MULTI, every queued command and EXEC are written as a
// single buffer before any reply is read, and the connection is not
// returned to the pool until the whole block has been answered, so no
// other session's command can interleave with it on the wire.
func (s *Session) execOnBackend(addr string, queue []*resp.Command) (obj *resp.Object, err error) {
	conn, err := s.connPool.GetConn(addr)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			conn.(*pool.PoolConn).MarkUnusable()
		}
		conn.Close()
	}()

	var buf bytes.Buffer
	multiCmd, _ := resp.NewCommand("MULTI")
	buf.Write(multiCmd.Format())
	for _, cmd := range queue {
		buf.Write(cmd.Format())
	}
	execCmd, _ := resp.NewCommand("EXEC")
	buf.Write(execCmd.Format())
	if _, err = conn.Write(buf.Bytes()); err != nil {
		return nil, err
	}

	reader := bufio.NewReader(conn)
	// one ack per queued command plus MULTI's own +OK; a backend that
	// rejects a queued command (EXECABORT) replies with an error instead
	// of +QUEUED, which aborts the block here rather than reading EXEC's
	// reply.
	for i := 0; i < len(queue)+1; i++ {
		ack, ackErr := resp.ReadData(reader)
		if ackErr != nil {
			return nil, ackErr
		}
		if ack.T == resp.T_Error {
			return nil, errors.New(string(ack.String))
		}
	}

	result := resp.NewObject()
	if err = resp.ReadDataBytes(reader, result); err != nil {
		return nil, err
	}
	return result, nil
}

// handleMultiKeyCmd splits a multi-key command (MGET/MSET/DEL) into one
// child PipelineRequest per key, sharing a single request sequence number
// so the reorder heap treats the whole family as one unit.
func (s *Session) handleMultiKeyCmd(cmd *resp.Command, numKeys int, routePool *ServerPool) {
	var subCmd *resp.Command
	var err error
	mc := NewMultiRequest(cmd, numKeys)
	seq := s.advanceReqSeq()
	readOnly := mc.CmdType() == MGET
	for i := 0; i < numKeys; i++ {
		switch mc.CmdType() {
		case MGET:
			subCmd, err = resp.NewCommand("GET", cmd.Value(i+1))
		case MSET:
			subCmd, err = resp.NewCommand("SET", cmd.Value(2*i+1), cmd.Value(2*i+2))
		case DEL:
			subCmd, err = resp.NewCommand("DEL", cmd.Value(i+1))
		}
		if err != nil {
			panic(err)
		}
		key := []byte(subCmd.Value(1))
		slot := Key2Slot(key)
		plReq := &PipelineRequest{
			cmd:       subCmd,
			readOnly:  readOnly,
			slot:      slot,
			seq:       seq,
			subSeq:    i,
			backQ:     s.rspCh,
			parentCmd: mc,
			wg:        s.reqWg,
		}
		s.reqWg.Add(1)
		s.dispatch(plReq, routePool, key, slot, readOnly)
	}
}

// handleScan implements the proxy-synthesized SCAN (spec §4.7, §4.9):
// the client-visible cursor names which master to keep scanning and that
// master's own native cursor; once every master reports native cursor 0
// the proxy hands back cursor "0" to signal the whole keyspace is done.
func (s *Session) handleScan(cmd *resp.Command) {
	routePool := s.routeHandle.Route(nil, nil, false)
	if routePool == nil {
		s.replyLocal(&resp.Data{T: resp.T_Error, String: []byte(ErrClusterDown.Error())})
		return
	}
	cursor, err := DecodeScanCursor(cmd.Value(1))
	if err != nil {
		s.replyLocal(&resp.Data{T: resp.T_Error, String: []byte("ERR invalid cursor")})
		return
	}
	masters := routePool.Masters()
	if cursor.Done(len(masters)) {
		s.replyLocal(&resp.Data{T: resp.T_Array, Array: []*resp.Data{
			{T: resp.T_BulkString, String: []byte("0")},
			{T: resp.T_Array, Array: []*resp.Data{}},
		}})
		return
	}

	args := make([]string, 0, len(cmd.Args))
	args = append(args, "SCAN", strconv.FormatUint(cursor.NativeCursor, 10))
	args = append(args, cmd.Args[2:]...)
	native, err := resp.NewCommand(args...)
	if err != nil {
		panic(err)
	}

	scanReq := NewScanRequest(cursor, len(masters))
	plReq := &PipelineRequest{
		cmd:       native,
		readOnly:  true,
		seq:       s.advanceReqSeq(),
		backQ:     s.rspCh,
		parentCmd: scanReq,
		wg:        s.reqWg,
	}
	s.reqWg.Add(1)
	s.dispatcher.ScheduleTo(masters[cursor.NodeIndex], plReq)
}

func (s *Session) handleGenericCmd(cmd *resp.Command, cmdFlag int) {
	key := []byte(cmd.Value(1))
	readOnly := cmdFlag&CMD_FLAG_READONLY != 0
	requireWrite := cmdFlag&CMD_FLAG_WRITE != 0
	routePool := s.routeHandle.Route(s.stickyPool, key, requireWrite)
	s.forwardToPool(cmd, readOnly, routePool)
}

func (s *Session) forwardToPool(cmd *resp.Command, readOnly bool, routePool *ServerPool) {
	key := []byte(cmd.Value(1))
	slot := Key2Slot(key)
	plReq := &PipelineRequest{
		cmd:      cmd,
		readOnly: readOnly,
		slot:     slot,
		seq:      s.advanceReqSeq(),
		backQ:    s.rspCh,
		wg:       s.reqWg,
	}
	s.reqWg.Add(1)
	s.dispatch(plReq, routePool, key, slot, readOnly)
}

// dispatch resolves a backend address from routePool and schedules plReq onto
// it, or synthesizes an error reply in place if the routePool can't resolve one
// (spec invariant P1: CLUSTERDOWN fails fast rather than guessing).
func (s *Session) dispatch(plReq *PipelineRequest, routePool *ServerPool, key []byte, slot int, readOnly bool) {
	if routePool == nil {
		s.rspCh <- &PipelineResponse{req: plReq, obj: resp.NewObjectFromData(&resp.Data{T: resp.T_Error, String: []byte(ErrClusterDown.Error())})}
		return
	}
	addr, err := routePool.Pick(key, slot, readOnly)
	if err != nil {
		s.rspCh <- &PipelineResponse{req: plReq, obj: resp.NewObjectFromData(&resp.Data{T: resp.T_Error, String: []byte(err.Error())})}
		return
	}
	s.dispatcher.ScheduleTo(addr, plReq)
}

func (s *Session) replyLocal(data *resp.Data) {
	plReq := &PipelineRequest{seq: s.advanceReqSeq(), wg: s.reqWg}
	s.reqWg.Add(1)
	s.rspCh <- &PipelineResponse{req: plReq, obj: resp.NewObjectFromData(data)}
}

// handleRespMulti writes plRsp's payload to the client, coalescing a
// multi-key or SCAN parent's children into one reply only once every
// child has reported in.
func (s *Session) handleRespMulti(plRsp *PipelineResponse) error {
	var obj *resp.Object
	if parentCmd := plRsp.req.parentCmd; parentCmd != nil {
		parentCmd.OnSubCmdFinished(plRsp)
		if !parentCmd.Finished() {
			return nil
		}
		s.advanceAckSeq()
		obj = parentCmd.CoalesceRsp().obj
	} else {
		obj = plRsp.obj
	}
	return s.io.WriteObject(obj)
}

// redirect resends a request to the server named by a MOVED/ASK error.
func (s *Session) redirect(server string, plRsp *PipelineResponse, ask bool) {
	var conn net.Conn
	var err error

	plRsp.err = nil
	conn, err = s.connPool.GetConn(server)
	if err != nil {
		log.Error(err)
		plRsp.err = err
		return
	}
	defer func() {
		if err != nil {
			log.Error(err)
			conn.(*pool.PoolConn).MarkUnusable()
		}
		conn.Close()
	}()

	reader := bufio.NewReader(conn)
	if ask {
		if _, err = conn.Write(ASK_CMD_BYTES); err != nil {
			plRsp.err = err
			return
		}
	}
	if _, err = conn.Write(plRsp.req.cmd.Format()); err != nil {
		plRsp.err = err
		return
	}
	if ask {
		if _, err = resp.ReadData(reader); err != nil {
			plRsp.err = err
			return
		}
	}
	obj := resp.NewObject()
	if err = resp.ReadDataBytes(reader, obj); err != nil {
		plRsp.err = err
	} else {
		plRsp.obj = obj
	}
}

// handleRespRedirect handles MOVED/ASK redirection before the reply is
// written out.
func (s *Session) handleRespRedirect(plRsp *PipelineResponse) error {
	plRsp.req.wg.Done()
	if plRsp.req.parentCmd == nil {
		s.advanceAckSeq()
	}

	if plRsp.err != nil {
		if s.dispatcher != nil {
			s.dispatcher.TriggerReloadSlots()
		}
		rsp := &resp.Data{T: resp.T_Error, String: []byte(plRsp.err.Error())}
		plRsp.obj = resp.NewObjectFromData(rsp)
	} else if plRsp.obj != nil {
		raw := plRsp.obj.Raw()
		if len(raw) > 0 && raw[0] == resp.T_Error {
			if bytes.HasPrefix(raw, MOVED) {
				_, server := ParseRedirectInfo(string(raw))
				if s.dispatcher != nil {
					s.dispatcher.TriggerReloadSlots()
				}
				s.redirect(server, plRsp, false)
			} else if bytes.HasPrefix(raw, ASK) {
				_, server := ParseRedirectInfo(string(raw))
				s.redirect(server, plRsp, true)
			}
		}
	}

	if plRsp.err != nil {
		return plRsp.err
	}

	return s.handleRespMulti(plRsp)
}

// handleRespPipeline reorders plRsp through rspHeap if it arrived out of
// sequence, otherwise writes it (and anything now unblocked in the heap)
// immediately.
func (s *Session) handleRespPipeline(plRsp *PipelineResponse) error {
	if plRsp.req.seq != s.ackSeq {
		heap.Push(s.rspHeap, plRsp)
		if gap := plRsp.req.seq - s.ackSeq; gap%50 == 0 {
			log.Warningf("resp pipeline gap:%d rsp_seq:%d ack_seq:%d client:%s", gap, plRsp.req.seq, s.ackSeq,
				s.io.RemoteAddr())
		}
		return nil
	}

	if err := s.handleRespRedirect(plRsp); err != nil {
		return err
	}
	for {
		top := s.rspHeap.Top()
		if top == nil || top.req.seq != s.ackSeq {
			return nil
		}
		rsp := heap.Pop(s.rspHeap).(*PipelineResponse)
		if err := s.handleRespRedirect(rsp); err != nil {
			return err
		}
	}
}

func (s *Session) advanceReqSeq() (seq int64) {
	seq = s.reqSeq
	s.reqSeq++
	return
}

func (s *Session) advanceAckSeq() (seq int64) {
	seq = s.ackSeq
	s.ackSeq++
	return seq
}

// ParseRedirectInfo parses slot redirect information out of a MOVED/ASK
// error line.
func ParseRedirectInfo(msg string) (slot int, server string) {
	var err error
	parts := strings.Fields(msg)
	if len(parts) != 3 {
		log.Fatalf("invalid redirect message: %s", msg)
	}
	slot, err = strconv.Atoi(parts[1])
	if err != nil {
		log.Fatalf("invalid redirect message: %s", msg)
	}
	server = parts[2]
	return
}
