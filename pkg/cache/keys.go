package cache

// Keyer derives cache keys for the pipeline's cacheable stages. Keys embed
// a hash of every input that influences the result, so a changed document
// or changed options can never serve a stale artifact.
type Keyer interface {
	// GraphKey keys a loaded graph document by its content hash.
	GraphKey(docHash string) string

	// ArtifactKey keys a rendered artifact by the source document hash and
	// the rendering options.
	ArtifactKey(docHash string, opts ArtifactKeyOpts) string
}

// ArtifactKeyOpts captures the rendering options that shape an artifact.
type ArtifactKeyOpts struct {
	Format   string   // "dot" or "svg"
	Detailed bool     // port types in labels
	Layers   []string // layer filter, empty for all
}

// DefaultKeyer is the standard key scheme.
type DefaultKeyer struct{}

// NewDefaultKeyer creates the standard keyer.
func NewDefaultKeyer() Keyer { return &DefaultKeyer{} }

// GraphKey generates a key for a loaded graph document.
func (k *DefaultKeyer) GraphKey(docHash string) string {
	return "graph:" + docHash
}

// ArtifactKey generates a key for a rendered artifact.
func (k *DefaultKeyer) ArtifactKey(docHash string, opts ArtifactKeyOpts) string {
	return hashKey("artifact", docHash, opts.Format, opts.Detailed, opts.Layers)
}
