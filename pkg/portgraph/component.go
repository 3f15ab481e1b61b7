package portgraph

// Component is a named, reusable graph definition stored in the flat
// registry on the root graph and referenced by identifier from [Reference]
// nodes. Two components are considered the same entity when their
// identifiers match; Version and Definition are payload.
type Component struct {
	ID         string
	Version    string
	Definition *Node // optional realized definition, nil while abstract
}

// Same reports component identity, which is by identifier only.
func (c Component) Same(other Component) bool { return c.ID == other.ID }
