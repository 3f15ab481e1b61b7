// Package portgraph implements an in-memory intermediate representation for
// dataflow programs: a hierarchical graph of nodes connected through typed,
// named ports.
//
// Nodes come in three kinds. Atomic nodes are leaves, compound nodes own a
// nested sub-graph whose ports double as the boundary between inside and
// outside, and reference nodes stand in for external components registered
// on the graph. Edges live in the edge list of the nearest common ancestor
// compound of their endpoints and never span more than one nesting level;
// connections across levels are expressed through compound boundary ports.
//
// Graphs are read through accessors and mutated exclusively by applying
// [ChangeSet] values with [Apply]. A graph operates in one of two modes:
// persistent (the default), where every edit returns a new graph value that
// shares unchanged structure with its predecessor, or in-place, an arena
// mode for bulk construction obtained from [NewBuilder] and ended with
// [Graph.Freeze]. Both modes produce structurally identical results.
//
// Derived query results (deep enumerations, path lookups, connection lists)
// are memoized in a bounded side-table owned by the graph value. Persistent
// edits start the new value with an empty table; in-place edits invalidate
// exactly the entries they can affect.
package portgraph
