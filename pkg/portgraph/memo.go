package portgraph

import (
	lru "github.com/hashicorp/golang-lru/v2"
)

// Memoized operations. Keys combine an operation name with an optional
// target identifier, mirroring the query surface: whole-graph enumerations
// have no target, connection queries are keyed per port reference.
const (
	memoNodesDeep    = "nodesDeep"
	memoEdgesDeep    = "edgesDeep"
	memoPathIndex    = "pathIndex"
	memoPredecessors = "predecessors"
	memoSuccessors   = "successors"
)

// memoCapacity bounds the side-table. Eviction only ever costs a recompute,
// never correctness; invalidation is what keeps entries truthful.
const memoCapacity = 4096

type memoKey struct {
	op     string
	target string
}

// memoTable is the external side-table holding memoized query results. It
// is owned by the Graph value, never attached to domain objects, and is
// excluded from equality, hashing, and serialization.
//
// Persistent-mode applies allocate a fresh table for the new graph value, so
// that path is cache-safe by construction. In-place applies must call the
// invalidate helpers for exactly the entries the edit can affect; a stale
// entry is a correctness bug because the algorithms trust cached
// predecessor and successor lists.
type memoTable struct {
	entries *lru.Cache[memoKey, any]
}

func newMemoTable() *memoTable {
	c, err := lru.New[memoKey, any](memoCapacity)
	if err != nil {
		// Only reachable with a non-positive capacity constant.
		panic(err)
	}
	return &memoTable{entries: c}
}

func (m *memoTable) get(op, target string) (any, bool) {
	return m.entries.Get(memoKey{op: op, target: target})
}

func (m *memoTable) put(op, target string, v any) {
	m.entries.Add(memoKey{op: op, target: target}, v)
}

// reset drops every entry. Used by in-place node mutations, which can move
// whole subtrees and therefore touch paths, enumerations, and connections
// at once.
func (m *memoTable) reset() {
	m.entries.Purge()
}

// invalidateOp drops all entries for one operation regardless of target.
func (m *memoTable) invalidateOp(op string) {
	for _, k := range m.entries.Keys() {
		if k.op == op {
			m.entries.Remove(k)
		}
	}
}

// invalidateConnections drops cached predecessor/successor lists involving
// the given node, both the node-level entry and every per-port entry.
func (m *memoTable) invalidateConnections(nodeID string) {
	for _, k := range m.entries.Keys() {
		if k.op != memoPredecessors && k.op != memoSuccessors {
			continue
		}
		if k.target == nodeID || len(k.target) > len(nodeID) && k.target[:len(nodeID)] == nodeID && k.target[len(nodeID)] == '@' {
			m.entries.Remove(k)
		}
	}
}
