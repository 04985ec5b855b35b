package azstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPipelineOrdersFactoriesOutermostFirst(t *testing.T) {
	var order []string

	record := func(name string) Factory {
		return FactoryFunc(func(next Policy) PolicyFunc {
			return func(ctx context.Context, req *RequestDescriptor) (*Response, error) {
				order = append(order, name)
				return next.Do(ctx, req)
			}
		})
	}

	terminal := PolicyFunc(func(ctx context.Context, req *RequestDescriptor) (*Response, error) {
		order = append(order, "terminal")
		return &Response{StatusCode: 200}, nil
	})

	p := NewPipeline(terminal, record("outer"), record("inner"))
	resp, err := p.Do(context.Background(), &RequestDescriptor{})
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
	assert.Equal(t, []string{"outer", "inner", "terminal"}, order)
}

func TestPipelineRebuildsChainPerCall(t *testing.T) {
	var seen []int
	counter := 0

	countingFactory := FactoryFunc(func(next Policy) PolicyFunc {
		counter++
		mine := counter
		return func(ctx context.Context, req *RequestDescriptor) (*Response, error) {
			seen = append(seen, mine)
			return next.Do(ctx, req)
		}
	})

	terminal := PolicyFunc(func(ctx context.Context, req *RequestDescriptor) (*Response, error) {
		return &Response{StatusCode: 200}, nil
	})

	p := NewPipeline(terminal, countingFactory)
	_, _ = p.Do(context.Background(), &RequestDescriptor{})
	_, _ = p.Do(context.Background(), &RequestDescriptor{})

	assert.Equal(t, []int{1, 2}, seen)
}

func TestResponseHeaderCaseInsensitive(t *testing.T) {
	r := &Response{Headers: map[string]string{"content-type": "application/xml"}}
	assert.Equal(t, "application/xml", r.Header("Content-Type"))
	assert.Equal(t, "", r.Header("x-ms-meta-color"))
}

func TestLowerASCII(t *testing.T) {
	assert.Equal(t, "x-ms-date", lowerASCII("X-Ms-Date"))
	assert.Equal(t, "already-lower", lowerASCII("already-lower"))
}
