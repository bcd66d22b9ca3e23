package proxy

import (
	"bufio"
	"bytes"
	"errors"
	"testing"

	"github.com/collinmsn/resp"
	"github.com/stretchr/testify/assert"
)

func childRsp(subSeq int, data *resp.Data) *PipelineResponse {
	return &PipelineResponse{
		req: &PipelineRequest{subSeq: subSeq},
		obj: resp.NewObjectFromData(data),
	}
}

func childErrRsp(subSeq int, err error) *PipelineResponse {
	return &PipelineResponse{req: &PipelineRequest{subSeq: subSeq}, err: err}
}

func readReply(t *testing.T, obj *resp.Object) *resp.Data {
	data, err := resp.ReadData(bufio.NewReader(bytes.NewReader(obj.Raw())))
	if err != nil {
		t.Fatalf("unparseable reply: %v", err)
	}
	return data
}

func TestMultiRequestMGetCoalesce(t *testing.T) {
	assert := assert.New(t)
	cmd, _ := resp.NewCommand("MGET", "a", "b")
	mc := NewMultiRequest(cmd, 2)
	assert.Equal(MGET, mc.CmdType())
	assert.False(mc.Finished())

	mc.OnSubCmdFinished(childRsp(0, &resp.Data{T: resp.T_BulkString, String: []byte("1")}))
	assert.False(mc.Finished())
	mc.OnSubCmdFinished(childRsp(1, &resp.Data{T: resp.T_BulkString, IsNil: true}))
	assert.True(mc.Finished())

	rsp := readReply(t, mc.CoalesceRsp().obj)
	assert.EqualValues(resp.T_Array, rsp.T)
	assert.Len(rsp.Array, 2)
	assert.Equal([]byte("1"), rsp.Array[0].String)
	assert.True(rsp.Array[1].IsNil)
}

func TestMultiRequestMGetMissingChildIsNil(t *testing.T) {
	assert := assert.New(t)
	cmd, _ := resp.NewCommand("MGET", "a", "b")
	mc := NewMultiRequest(cmd, 2)
	mc.OnSubCmdFinished(childRsp(0, &resp.Data{T: resp.T_BulkString, String: []byte("x")}))
	mc.OnSubCmdFinished(childErrRsp(1, errors.New("backend gone")))

	rsp := readReply(t, mc.CoalesceRsp().obj)
	assert.True(rsp.Array[1].IsNil)
}

func TestMultiRequestDelSum(t *testing.T) {
	assert := assert.New(t)
	cmd, _ := resp.NewCommand("DEL", "a", "b", "c")
	mc := NewMultiRequest(cmd, 3)
	mc.OnSubCmdFinished(childRsp(0, &resp.Data{T: resp.T_Integer, Integer: 1}))
	mc.OnSubCmdFinished(childRsp(1, &resp.Data{T: resp.T_Integer, Integer: 0}))
	mc.OnSubCmdFinished(childRsp(2, &resp.Data{T: resp.T_Integer, Integer: 1}))

	rsp := readReply(t, mc.CoalesceRsp().obj)
	assert.EqualValues(resp.T_Integer, rsp.T)
	assert.EqualValues(2, rsp.Integer)
}

func TestMultiRequestMSetAllOK(t *testing.T) {
	assert := assert.New(t)
	cmd, _ := resp.NewCommand("MSET", "a", "1", "b", "2")
	mc := NewMultiRequest(cmd, 2)
	mc.OnSubCmdFinished(childRsp(0, &resp.Data{T: resp.T_SimpleString, String: []byte("OK")}))
	mc.OnSubCmdFinished(childRsp(1, &resp.Data{T: resp.T_SimpleString, String: []byte("OK")}))

	rsp := readReply(t, mc.CoalesceRsp().obj)
	assert.EqualValues(resp.T_SimpleString, rsp.T)
	assert.Equal([]byte("OK"), rsp.String)
}

func TestMultiRequestMSetOneFailurePropagates(t *testing.T) {
	assert := assert.New(t)
	cmd, _ := resp.NewCommand("MSET", "a", "1", "b", "2")
	mc := NewMultiRequest(cmd, 2)
	mc.OnSubCmdFinished(childRsp(0, &resp.Data{T: resp.T_SimpleString, String: []byte("OK")}))
	mc.OnSubCmdFinished(childErrRsp(1, errors.New("timeout")))

	rsp := readReply(t, mc.CoalesceRsp().obj)
	assert.EqualValues(resp.T_Error, rsp.T)
}

func TestIsMultiCmd(t *testing.T) {
	assert := assert.New(t)
	mget, _ := resp.NewCommand("MGET", "a", "b", "c")
	yes, n := IsMultiCmd(mget)
	assert.True(yes)
	assert.Equal(3, n)

	mset, _ := resp.NewCommand("MSET", "a", "1", "b", "2")
	yes, n = IsMultiCmd(mset)
	assert.True(yes)
	assert.Equal(2, n)

	get, _ := resp.NewCommand("GET", "a")
	yes, _ = IsMultiCmd(get)
	assert.False(yes)
}

func TestIsSplitMultiKey(t *testing.T) {
	assert := assert.New(t)
	assert.True(IsSplitMultiKey(true, 0))
	assert.True(IsSplitMultiKey(false, 2))
	assert.False(IsSplitMultiKey(false, 1))
}
