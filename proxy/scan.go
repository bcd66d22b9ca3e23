package proxy

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/collinmsn/resp"
)

var errScanReply = errors.New("malformed SCAN reply from backend")

// ScanCursor is the proxy-level SCAN cursor, spec §4.7: "iterates across
// all masters with cursor encoded as <nodeIndex>:<nativeCursor>". A native
// cursor of 0 both starts a master's scan and marks that master as
// exhausted, so exhaustion of the whole scan is tracked by nodeIndex
// running past the end of the master list rather than by the native cursor
// alone.
type ScanCursor struct {
	NodeIndex    int
	NativeCursor uint64
}

// DecodeScanCursor parses a client-supplied SCAN cursor. The bare string
// "0" (a fresh scan) decodes to NodeIndex 0, NativeCursor 0.
func DecodeScanCursor(raw string) (ScanCursor, error) {
	if raw == "0" || raw == "" {
		return ScanCursor{}, nil
	}
	parts := strings.SplitN(raw, ":", 2)
	if len(parts) != 2 {
		return ScanCursor{}, fmt.Errorf("invalid SCAN cursor: %s", raw)
	}
	idx, err := strconv.Atoi(parts[0])
	if err != nil {
		return ScanCursor{}, fmt.Errorf("invalid SCAN cursor: %s", raw)
	}
	native, err := strconv.ParseUint(parts[1], 10, 64)
	if err != nil {
		return ScanCursor{}, fmt.Errorf("invalid SCAN cursor: %s", raw)
	}
	return ScanCursor{NodeIndex: idx, NativeCursor: native}, nil
}

// Encode renders the cursor back into the wire form the client will pass
// back on the next SCAN call. "0" means the whole keyspace across every
// master has been exhausted.
func (c ScanCursor) Encode() string {
	if c.NativeCursor == 0 && c.NodeIndex == 0 {
		return "0"
	}
	return fmt.Sprintf("%d:%d", c.NodeIndex, c.NativeCursor)
}

// Done reports whether the cursor has walked off the end of the master
// list: numMasters masters numbered [0, numMasters) have all replied a
// native cursor of 0.
func (c ScanCursor) Done(numMasters int) bool {
	return numMasters == 0 || c.NodeIndex >= numMasters
}

// Advance folds a backend's native-cursor reply into the next cursor to
// hand the client: native==0 means that master is exhausted, so the scan
// moves on to the next master starting at native cursor 0; otherwise it
// stays on the same master.
func Advance(c ScanCursor, nativeReply uint64) ScanCursor {
	if nativeReply == 0 {
		return ScanCursor{NodeIndex: c.NodeIndex + 1, NativeCursor: 0}
	}
	return ScanCursor{NodeIndex: c.NodeIndex, NativeCursor: nativeReply}
}

// ScanRequest is the single-child parent wrapping a SCAN forwarded to one
// master: it reuses the multiParent reduction mechanism purely to get a
// chance to rewrite the backend's native cursor into the proxy's
// <nodeIndex>:<nativeCursor> form before the reply reaches the client.
type ScanRequest struct {
	cursor     ScanCursor
	numMasters int
	rsp        *PipelineResponse
}

func NewScanRequest(cursor ScanCursor, numMasters int) *ScanRequest {
	return &ScanRequest{cursor: cursor, numMasters: numMasters}
}

func (r *ScanRequest) OnSubCmdFinished(rsp *PipelineResponse) {
	r.rsp = rsp
}

func (r *ScanRequest) Finished() bool {
	return r.rsp != nil
}

func (r *ScanRequest) CoalesceRsp() *PipelineResponse {
	if r.rsp == nil || r.rsp.err != nil {
		msg := "SCAN failed"
		if r.rsp != nil && r.rsp.err != nil {
			msg = r.rsp.err.Error()
		}
		return &PipelineResponse{obj: resp.NewObjectFromData(&resp.Data{T: resp.T_Error, String: []byte(msg)})}
	}
	reader := bufio.NewReader(bytes.NewReader(r.rsp.obj.Raw()))
	data, err := resp.ReadData(reader)
	if err != nil || data.T != resp.T_Array || len(data.Array) != 2 {
		return &PipelineResponse{obj: resp.NewObjectFromData(&resp.Data{T: resp.T_Error, String: []byte(errScanReply.Error())})}
	}
	native, err := strconv.ParseUint(string(data.Array[0].String), 10, 64)
	if err != nil {
		return &PipelineResponse{obj: resp.NewObjectFromData(&resp.Data{T: resp.T_Error, String: []byte(errScanReply.Error())})}
	}
	next := Advance(r.cursor, native)
	if next.Done(r.numMasters) {
		next = ScanCursor{}
	}
	data.Array[0] = &resp.Data{T: resp.T_BulkString, String: []byte(next.Encode())}
	return &PipelineResponse{obj: resp.NewObjectFromData(data)}
}
