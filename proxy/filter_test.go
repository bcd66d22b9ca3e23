package proxy

import (
	"testing"

	"github.com/collinmsn/resp"
	"github.com/stretchr/testify/assert"
)

func TestCmdFlag(t *testing.T) {
	assert := assert.New(t)
	get, _ := resp.NewCommand("GET", "foo")
	assert.Equal(CMD_FLAG_READONLY, CmdFlag(get))

	set, _ := resp.NewCommand("SET", "foo", "bar")
	assert.Equal(CMD_FLAG_WRITE, CmdFlag(set))

	watch, _ := resp.NewCommand("WATCH", "foo")
	assert.Equal(CMD_FLAG_BLACK, CmdFlag(watch))

	unknown, _ := resp.NewCommand("NOTACOMMAND", "foo")
	assert.Equal(CMD_FLAG_WRITE, CmdFlag(unknown))
}

func TestCheckArity(t *testing.T) {
	assert := assert.New(t)
	get, _ := resp.NewCommand("GET", "foo")
	assert.True(CheckArity(get))

	getNoKey, _ := resp.NewCommand("GET")
	assert.False(CheckArity(getNoKey))

	mget, _ := resp.NewCommand("MGET", "a", "b", "c")
	assert.True(CheckArity(mget))

	unknown, _ := resp.NewCommand("NOTACOMMAND")
	assert.True(CheckArity(unknown))
}

func TestIsBlackListCmd(t *testing.T) {
	assert := assert.New(t)
	sort, _ := resp.NewCommand("SORT", "foo")
	assert.True(IsBlackListCmd(sort))
	get, _ := resp.NewCommand("GET", "foo")
	assert.False(IsBlackListCmd(get))
}
