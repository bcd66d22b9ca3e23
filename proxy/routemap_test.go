package proxy

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRouteMapDefaultPoolOnEmptyKey(t *testing.T) {
	assert := assert.New(t)
	def := NewClusterServerPool("default", NewSlotTable(ReadMasterIfNoReplica, "", nil, nil))
	rm := NewRouteMap(nil, []*ServerPool{def})
	assert.Same(def, rm.route(nil, false))
	assert.Same(def, rm.route([]byte(""), false))
}

func TestRouteMapNoPoolsReturnsNil(t *testing.T) {
	assert := assert.New(t)
	rm := NewRouteMap(nil, nil)
	assert.Nil(rm.route([]byte("foo"), false))
}

func TestRouteMapPrefixMatch(t *testing.T) {
	assert := assert.New(t)
	sessions := NewClusterServerPool("sessions", NewSlotTable(ReadMasterIfNoReplica, "", nil, nil))
	def := NewClusterServerPool("default", NewSlotTable(ReadMasterIfNoReplica, "", nil, nil))
	rm := NewRouteMap(
		[]RouteEntry{
			{PrefixKey: "session:", WritePool: sessions},
			{PrefixKey: "*", WritePool: def},
		},
		[]*ServerPool{sessions, def},
	)

	assert.Same(sessions, rm.route([]byte("session:42"), false))
	assert.Same(def, rm.route([]byte("user:42"), false))
}

func TestRouteMapReadPoolFallsBackToWritePool(t *testing.T) {
	assert := assert.New(t)
	write := NewClusterServerPool("write", NewSlotTable(ReadMasterIfNoReplica, "", nil, nil))
	rm := NewRouteMap([]RouteEntry{{PrefixKey: "*", WritePool: write}}, []*ServerPool{write})

	assert.Same(write, rm.route([]byte("foo"), false))
	assert.Same(write, rm.route([]byte("foo"), true))
}

func TestRouteMapReadPoolUsedWhenSet(t *testing.T) {
	assert := assert.New(t)
	write := NewClusterServerPool("write", NewSlotTable(ReadMasterIfNoReplica, "", nil, nil))
	read := NewClusterServerPool("read", NewSlotTable(ReadMasterIfNoReplica, "", nil, nil))
	rm := NewRouteMap([]RouteEntry{{PrefixKey: "*", WritePool: write, ReadPool: read}}, []*ServerPool{write, read})

	assert.Same(read, rm.route([]byte("foo"), false))
	assert.Same(write, rm.route([]byte("foo"), true))
}

func TestRouteMapHandleLoadStore(t *testing.T) {
	assert := assert.New(t)
	poolA := NewClusterServerPool("a", NewSlotTable(ReadMasterIfNoReplica, "", nil, nil))
	rmA := NewRouteMap(nil, []*ServerPool{poolA})
	handle := NewRouteMapHandle(rmA)
	assert.Same(rmA, handle.Load())

	poolB := NewClusterServerPool("b", NewSlotTable(ReadMasterIfNoReplica, "", nil, nil))
	rmB := NewRouteMap(nil, []*ServerPool{poolB})
	handle.Store(rmB)
	assert.Same(rmB, handle.Load())
}

func TestRouteMapHandleStickyShortCircuit(t *testing.T) {
	assert := assert.New(t)
	routed := NewClusterServerPool("routed", NewSlotTable(ReadMasterIfNoReplica, "", nil, nil))
	sticky := NewClusterServerPool("sticky", NewSlotTable(ReadMasterIfNoReplica, "", nil, nil))
	rm := NewRouteMap([]RouteEntry{{PrefixKey: "*", WritePool: routed}}, []*ServerPool{routed})
	handle := NewRouteMapHandle(rm)

	assert.Same(routed, handle.Route(nil, []byte("foo"), false))
	assert.Same(sticky, handle.Route(sticky, []byte("foo"), false))
}
