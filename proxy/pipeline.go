package proxy

import (
	"sync"
	"time"

	"github.com/collinmsn/resp"
)

// PipelineRequest is a parsed client command together with its routing
// metadata, the spec's Request (C3). It travels from session -> dispatcher
// -> backend and the matching PipelineResponse travels the reverse path on
// backQ.
type PipelineRequest struct {
	cmd      *resp.Command
	readOnly bool
	slot     int
	seq      int64
	subSeq   int
	deadline time.Time
	backQ    chan *PipelineResponse
	wg       *sync.WaitGroup

	// parentCmd is set on children split out of a multi-key command
	// (MGET/MSET/DEL) and on a forwarded SCAN; nil for ordinary requests
	// and for a MULTI/EXEC block, which is reduced by the backend itself
	// rather than by a multiParent (see Session.execOnBackend).
	// MultiRequest and ScanRequest implement it.
	parentCmd multiParent

	// orphan marks a request whose originating client has disconnected.
	// No code in this package sets or reads it: after a disconnect,
	// Session.WritingLoop drains the remaining replies off rspCh and
	// acknowledges them without writing them to a socket.
	orphan bool
}

// PipelineResponse pairs a completed reply with the request that produced
// it, or the error that failed it.
type PipelineResponse struct {
	req *PipelineRequest
	obj *resp.Object
	err error
}

// multiParent is satisfied by MultiRequest (split multi-key commands) and
// ScanRequest (a rewritten SCAN cursor): both gather one or more children
// dispatched under a shared request sequence number and reduce them into
// one reply.
type multiParent interface {
	OnSubCmdFinished(rsp *PipelineResponse)
	Finished() bool
	CoalesceRsp() *PipelineResponse
}
