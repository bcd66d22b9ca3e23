package proxy

import (
	"testing"

	"github.com/collinmsn/resp"
	"github.com/stretchr/testify/assert"
)

func TestSlotTableWriteReadServer(t *testing.T) {
	assert := assert.New(t)
	st := NewSlotTable(ReadMasterIfNoReplica, "", nil, nil)

	_, ok := st.WriteServer(0)
	assert.False(ok)

	st.SetSlotInfo(&SlotInfo{start: 0, end: 100, write: "10.0.0.1:7001", read: []string{"10.0.0.1:7002"}})

	addr, ok := st.WriteServer(0)
	assert.True(ok)
	assert.Equal("10.0.0.1:7001", addr)

	addr, ok = st.WriteServer(100)
	assert.True(ok)
	assert.Equal("10.0.0.1:7001", addr)

	_, ok = st.WriteServer(101)
	assert.False(ok)

	// ReadMasterIfNoReplica always prefers the master, even with replicas present.
	addr, ok = st.ReadServer(0)
	assert.True(ok)
	assert.Equal("10.0.0.1:7001", addr)
}

func TestSlotTableReadServerRoundRobinFallsBackToMaster(t *testing.T) {
	assert := assert.New(t)
	st := NewSlotTable(ReadAllReplicasRoundRobin, "", nil, nil)
	st.SetSlotInfo(&SlotInfo{start: 0, end: 0, write: "m:1", read: nil})
	addr, ok := st.ReadServer(0)
	assert.True(ok)
	assert.Equal("m:1", addr)
}

func TestSlotTableReadServerRoundRobinPicksReplica(t *testing.T) {
	assert := assert.New(t)
	st := NewSlotTable(ReadAllReplicasRoundRobin, "", nil, nil)
	st.SetSlotInfo(&SlotInfo{start: 0, end: 0, write: "m:1", read: []string{"r:1", "r:2"}})
	for i := 0; i < 10; i++ {
		addr, ok := st.ReadServer(0)
		assert.True(ok)
		assert.Contains([]string{"r:1", "r:2"}, addr)
	}
}

func TestSlotTableSetAllReplacesWholeTable(t *testing.T) {
	assert := assert.New(t)
	st := NewSlotTable(ReadMasterIfNoReplica, "", nil, nil)
	st.SetSlotInfo(&SlotInfo{start: 0, end: NumSlots - 1, write: "old:1"})

	st.SetAll([]*SlotInfo{
		{start: 0, end: 8191, write: "new:1"},
		{start: 8192, end: 16383, write: "new:2"},
	})

	addr, _ := st.WriteServer(0)
	assert.Equal("new:1", addr)
	addr, _ = st.WriteServer(16383)
	assert.Equal("new:2", addr)
}

func TestSlotTableMasters(t *testing.T) {
	assert := assert.New(t)
	st := NewSlotTable(ReadMasterIfNoReplica, "", nil, nil)
	st.SetAll([]*SlotInfo{
		{start: 0, end: 100, write: "m1:1"},
		{start: 101, end: 200, write: "m2:1"},
		{start: 201, end: NumSlots - 1, write: "m1:1"},
	})
	masters := st.Masters()
	assert.ElementsMatch([]string{"m1:1", "m2:1"}, masters)
}

func TestNewSlotInfo(t *testing.T) {
	assert := assert.New(t)
	data := &resp.Data{
		T: resp.T_Array,
		Array: []*resp.Data{
			{T: resp.T_Integer, Integer: 0},
			{T: resp.T_Integer, Integer: 5460},
			{T: resp.T_Array, Array: []*resp.Data{
				{T: resp.T_BulkString, String: []byte("127.0.0.1")},
				{T: resp.T_Integer, Integer: 7000},
			}},
			{T: resp.T_Array, Array: []*resp.Data{
				{T: resp.T_BulkString, String: []byte("127.0.0.1")},
				{T: resp.T_Integer, Integer: 7001},
			}},
		},
	}
	si, err := NewSlotInfo(data)
	assert.NoError(err)
	assert.Equal(0, si.start)
	assert.Equal(5460, si.end)
	assert.Equal("127.0.0.1:7000", si.write)
	assert.Equal([]string{"127.0.0.1:7001"}, si.read)
}

func TestNewSlotInfoInvalid(t *testing.T) {
	assert := assert.New(t)
	_, err := NewSlotInfo(&resp.Data{T: resp.T_Array, Array: []*resp.Data{{T: resp.T_Integer, Integer: 0}}})
	assert.Error(err)
}
