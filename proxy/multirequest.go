package proxy

import (
	"bufio"
	"bytes"
	"errors"

	"github.com/collinmsn/resp"
	log "github.com/ngaut/logging"
)

var errChildMissing = errors.New("sub command has no response")

// multi-key command names the proxy knows how to split and reduce.
const (
	MGET = "MGET"
	MSET = "MSET"
	DEL  = "DEL"
)

var okData = &resp.Data{T: resp.T_SimpleString, String: []byte("OK")}

// MultiRequest is the parent of a multi-key command (MGET/MSET/DEL) split
// into per-key children, the spec's Request.parent/child-count/reducer
// (§3, §4.3). Each child shares the parent's request sequence number so the
// session's reorder heap treats them as one unit.
type MultiRequest struct {
	cmd               *resp.Command
	cmdType           string
	numSubCmds        int
	numPendingSubCmds int
	subCmdRsps        []*PipelineResponse
}

// NewMultiRequest builds the parent for cmd, which will be split into
// numKeys children.
func NewMultiRequest(cmd *resp.Command, numKeys int) *MultiRequest {
	mc := &MultiRequest{
		cmd:               cmd,
		cmdType:           cmd.Name(),
		numSubCmds:        numKeys,
		numPendingSubCmds: numKeys,
		subCmdRsps:        make([]*PipelineResponse, numKeys),
	}
	return mc
}

// CmdType returns the parent command's name (MGET, MSET or DEL).
func (mc *MultiRequest) CmdType() string {
	return mc.cmdType
}

// OnSubCmdFinished records one child's response, keyed by the child's
// subSeq (its position among the siblings).
func (mc *MultiRequest) OnSubCmdFinished(rsp *PipelineResponse) {
	mc.subCmdRsps[rsp.req.subSeq] = rsp
	mc.numPendingSubCmds--
}

// Finished reports whether every child has reported its response.
func (mc *MultiRequest) Finished() bool {
	return mc.numPendingSubCmds == 0
}

// CoalesceRsp applies the reducer for the parent command: concatenation in
// key order for MGET, sum for DEL, +OK for MSET unless any child failed.
func (mc *MultiRequest) CoalesceRsp() *PipelineResponse {
	plRsp := &PipelineResponse{}
	switch mc.cmdType {
	case MGET:
		rsp := &resp.Data{T: resp.T_Array, Array: make([]*resp.Data, mc.numSubCmds)}
		for i, subRsp := range mc.subCmdRsps {
			if data, err := reparseChild(subRsp); err != nil {
				rsp.Array[i] = &resp.Data{T: resp.T_BulkString, IsNil: true}
			} else {
				rsp.Array[i] = data
			}
		}
		plRsp.obj = resp.NewObjectFromData(rsp)
	case DEL:
		rsp := &resp.Data{T: resp.T_Integer}
		for _, subRsp := range mc.subCmdRsps {
			data, err := reparseChild(subRsp)
			if err != nil {
				continue
			}
			if data.T == resp.T_Error {
				plRsp.obj = resp.NewObjectFromData(data)
				return plRsp
			}
			rsp.Integer += data.Integer
		}
		plRsp.obj = resp.NewObjectFromData(rsp)
	case MSET:
		for _, subRsp := range mc.subCmdRsps {
			data, err := reparseChild(subRsp)
			if err != nil {
				plRsp.obj = resp.NewObjectFromData(&resp.Data{T: resp.T_Error, String: []byte(err.Error())})
				return plRsp
			}
			if data.T == resp.T_Error {
				plRsp.obj = resp.NewObjectFromData(data)
				return plRsp
			}
		}
		plRsp.obj = resp.NewObjectFromData(okData)
	default:
		panic("invalid multi key cmd name")
	}
	return plRsp
}

// reparseChild re-parses a child's raw response bytes into a *resp.Data so
// it can be folded into the parent's reply.
func reparseChild(subRsp *PipelineResponse) (*resp.Data, error) {
	if subRsp == nil || subRsp.err != nil {
		if subRsp != nil && subRsp.err != nil {
			return nil, subRsp.err
		}
		return nil, errChildMissing
	}
	reader := bufio.NewReader(bytes.NewReader(subRsp.obj.Raw()))
	data, err := resp.ReadData(reader)
	if err != nil {
		log.Error("re-parse multi-key child response", err)
		return nil, err
	}
	return data, nil
}

// IsMultiCmd reports whether cmd is a command the proxy splits into
// per-key children, and how many children it would produce.
func IsMultiCmd(cmd *resp.Command) (multiKey bool, numKeys int) {
	switch cmd.Name() {
	case MGET:
		return true, len(cmd.Args) - 1
	case MSET:
		return true, (len(cmd.Args) - 1) / 2
	case DEL:
		return true, len(cmd.Args) - 1
	default:
		return false, 0
	}
}

// IsSplitMultiKey reports whether multi-key commands should be split into
// per-key children at all: predixy only splits when the pool shape
// actually requires it (any cluster pool, or a standalone pool with more
// than one backend group) — a single-group standalone pool forwards
// MGET/MSET/DEL unsplit since one backend already owns every key.
func IsSplitMultiKey(cluster bool, standaloneGroups int) bool {
	return cluster || standaloneGroups != 1
}
