package azstore

import "context"

// rawHeader preserves a response header's original casing alongside
// the lowercased Headers map, so x-ms-meta-<Name> keys can give back
// <Name> exactly as the server sent it.
type rawHeader struct {
	Name  string
	Value string
}

// Response is the executor's output, unchanged across retries of the
// same logical call (each attempt produces its own Response; only the
// final one is surfaced).
type Response struct {
	StatusCode int
	Headers    map[string]string // lowercased keys
	RawHeaders []rawHeader
	Payload    []byte
}

// Header looks up a response header case-insensitively.
func (r *Response) Header(name string) string {
	return r.Headers[lowerASCII(name)]
}

// Policy is one link in the request pipeline. Implementations must
// not mutate the RequestDescriptor they are given; build a modified
// copy to pass downward instead.
type Policy interface {
	Do(ctx context.Context, req *RequestDescriptor) (*Response, error)
}

// PolicyFunc adapts a plain function to Policy.
type PolicyFunc func(ctx context.Context, req *RequestDescriptor) (*Response, error)

// Do implements Policy.
func (f PolicyFunc) Do(ctx context.Context, req *RequestDescriptor) (*Response, error) {
	return f(ctx, req)
}

// Factory builds a Policy given the next Policy in the chain. A
// Factory is shared and must be goroutine-safe; the Policy objects it
// produces need not be.
type Factory interface {
	New(next Policy) Policy
}

// FactoryFunc adapts a plain function to Factory.
type FactoryFunc func(next Policy) PolicyFunc

// New implements Factory.
func (f FactoryFunc) New(next Policy) Policy {
	return f(next)
}

// Pipeline chains Factories, outermost first, terminating in a fixed
// terminal Policy (normally the executor).
type Pipeline struct {
	factories []Factory
	terminal  Policy
}

// NewPipeline builds a Pipeline. Factories run in the order given:
// factories[0] sees the request first and the response last.
func NewPipeline(terminal Policy, factories ...Factory) *Pipeline {
	return &Pipeline{factories: factories, terminal: terminal}
}

// Do assembles the chain and runs it. The chain is rebuilt per call
// so that per-call Policy state (a retry counter, for instance) never
// leaks across independent requests sharing the same Pipeline.
func (p *Pipeline) Do(ctx context.Context, req *RequestDescriptor) (*Response, error) {
	chain := p.terminal
	for i := len(p.factories) - 1; i >= 0; i-- {
		chain = p.factories[i].New(chain)
	}
	return chain.Do(ctx, req)
}

func lowerASCII(s string) string {
	b := []byte(s)
	for i, c := range b {
		if 'A' <= c && c <= 'Z' {
			b[i] = c + ('a' - 'A')
		}
	}
	return string(b)
}
