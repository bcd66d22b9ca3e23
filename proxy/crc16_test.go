package proxy

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCRC16KnownVectors(t *testing.T) {
	assert := assert.New(t)
	// well-known CRC16/XMODEM test vectors used by redis-cluster clients
	assert.EqualValues(0x31C3, CRC16([]byte("123456789")))
	assert.EqualValues(0, CRC16([]byte{}))
}

func TestHashTag(t *testing.T) {
	assert := assert.New(t)
	assert.Equal([]byte("bar"), HashTag([]byte("foo{bar}baz")))
	assert.Equal([]byte("foo"), HashTag([]byte("foo")))
	// empty tag falls back to the whole key
	assert.Equal([]byte("foo{}bar"), HashTag([]byte("foo{}bar")))
	// unterminated tag falls back to the whole key
	assert.Equal([]byte("foo{bar"), HashTag([]byte("foo{bar")))
}

func TestKey2SlotSameTagSameSlot(t *testing.T) {
	assert := assert.New(t)
	a := Key2Slot([]byte("user:{1000}:profile"))
	b := Key2Slot([]byte("user:{1000}:friends"))
	assert.Equal(a, b)
}

func TestKey2SlotInRange(t *testing.T) {
	assert := assert.New(t)
	for _, k := range []string{"a", "b", "somekey", ""} {
		slot := Key2Slot([]byte(k))
		assert.True(slot >= 0 && slot < NumSlots)
	}
}
