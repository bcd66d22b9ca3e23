package proxy

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestServerPoolClusterPick(t *testing.T) {
	assert := assert.New(t)
	st := NewSlotTable(ReadMasterIfNoReplica, "", nil, nil)
	st.SetSlotInfo(&SlotInfo{start: 0, end: NumSlots - 1, write: "m:1", read: []string{"r:1"}})
	p := NewClusterServerPool("cluster", st)

	assert.True(p.IsCluster())
	assert.Equal(0, p.NumGroups())

	addr, err := p.Pick([]byte("foo"), 0, false)
	assert.NoError(err)
	assert.Equal("m:1", addr)

	addr, err = p.Pick([]byte("foo"), 0, true)
	assert.NoError(err)
	assert.Equal("m:1", addr) // ReadMasterIfNoReplica
}

func TestServerPoolClusterUnassignedSlotIsClusterDown(t *testing.T) {
	assert := assert.New(t)
	st := NewSlotTable(ReadMasterIfNoReplica, "", nil, nil)
	p := NewClusterServerPool("cluster", st)
	_, err := p.Pick([]byte("foo"), 0, false)
	assert.Equal(ErrClusterDown, err)
}

func TestServerPoolStandalonePick(t *testing.T) {
	assert := assert.New(t)
	groups := []*ServerGroup{
		{write: "g0:1", read: []string{"g0r:1"}},
		{write: "g1:1", read: []string{"g1r:1"}},
	}
	p := NewStandaloneServerPool("standalone", groups, ReadAllReplicasRoundRobin, "", nil)
	assert.False(p.IsCluster())
	assert.Equal(2, p.NumGroups())

	addr, err := p.Pick([]byte("foo"), 0, false)
	assert.NoError(err)
	assert.Equal("g0:1", addr)

	addr, err = p.Pick([]byte("foo"), 1, false)
	assert.NoError(err)
	assert.Equal("g1:1", addr)
}

func TestServerPoolStandaloneNoGroupsIsClusterDown(t *testing.T) {
	assert := assert.New(t)
	p := NewStandaloneServerPool("empty", nil, ReadAllReplicasRoundRobin, "", nil)
	_, err := p.Pick([]byte("foo"), 0, false)
	assert.Equal(ErrClusterDown, err)
}

func TestServerPoolMastersCluster(t *testing.T) {
	assert := assert.New(t)
	st := NewSlotTable(ReadMasterIfNoReplica, "", nil, nil)
	st.SetAll([]*SlotInfo{
		{start: 0, end: 100, write: "m1:1"},
		{start: 101, end: NumSlots - 1, write: "m2:1"},
	})
	p := NewClusterServerPool("cluster", st)
	assert.ElementsMatch([]string{"m1:1", "m2:1"}, p.Masters())
}

func TestServerPoolMastersStandalone(t *testing.T) {
	assert := assert.New(t)
	groups := []*ServerGroup{{write: "g0:1"}, {write: "g1:1"}}
	p := NewStandaloneServerPool("standalone", groups, ReadAllReplicasRoundRobin, "", nil)
	assert.Equal([]string{"g0:1", "g1:1"}, p.Masters())
}
