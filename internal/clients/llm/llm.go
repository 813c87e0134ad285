package llm

import "context"

// GenerateOptions bound a single completion call. Zero values fall back to
// provider defaults.
type GenerateOptions struct {
	Temperature     float64
	MaxOutputTokens int
}

// Provider is a text-generation backend. The chat pipeline holds an ordered
// chain of these and falls through on error.
type Provider interface {
	Name() string
	Model() string
	GenerateText(ctx context.Context, system string, user string, opts GenerateOptions) (string, error)
	StreamText(ctx context.Context, system string, user string, opts GenerateOptions, onDelta func(delta string)) (string, error)
}

// Embedder turns text into vectors. Dimension is fixed per provider and
// recorded alongside anything embedded, so mixed-dimension reads are
// detectable.
type Embedder interface {
	Name() string
	Embed(ctx context.Context, inputs []string) ([][]float32, error)
	Dimension() int
}

// EmbedChain tries each embedder in order and reports which one served the
// request. All texts of one call go through a single provider, so dimensions
// stay consistent within a batch.
type EmbedChain struct {
	providers []Embedder
}

func NewEmbedChain(providers ...Embedder) *EmbedChain {
	kept := make([]Embedder, 0, len(providers))
	for _, p := range providers {
		if p != nil {
			kept = append(kept, p)
		}
	}
	return &EmbedChain{providers: kept}
}

func (c *EmbedChain) Configured() bool { return c != nil && len(c.providers) > 0 }

// Primary returns the first configured provider, or nil.
func (c *EmbedChain) Primary() Embedder {
	if !c.Configured() {
		return nil
	}
	return c.providers[0]
}

// Named returns the configured provider with the given name, or nil.
func (c *EmbedChain) Named(name string) Embedder {
	if c == nil {
		return nil
	}
	for _, p := range c.providers {
		if p.Name() == name {
			return p
		}
	}
	return nil
}

func (c *EmbedChain) Embed(ctx context.Context, inputs []string) ([][]float32, Embedder, error) {
	if !c.Configured() {
		return nil, nil, ErrNoEmbedder
	}
	var lastErr error
	for _, p := range c.providers {
		vecs, err := p.Embed(ctx, inputs)
		if err == nil {
			return vecs, p, nil
		}
		lastErr = err
	}
	return nil, nil, lastErr
}

// ErrNoEmbedder signals an empty chain; callers map it to a configuration
// failure.
var ErrNoEmbedder = errNoEmbedder{}

type errNoEmbedder struct{}

func (errNoEmbedder) Error() string { return "no embedding provider configured" }
