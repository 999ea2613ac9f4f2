// SPDX-License-Identifier: MIT

package source

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubProvider struct {
	name  string
	doc   *Document
	err   error
	calls int
}

func (p *stubProvider) Name() string { return p.name }
func (p *stubProvider) Key() string  { return "stub://" + p.name }

func (p *stubProvider) Fetch(context.Context) (*Document, error) {
	p.calls++
	return p.doc, p.err
}

func failing(name string, sentinel error) *stubProvider {
	return &stubProvider{name: name, err: &FetchError{Sentinel: sentinel, Source: name}}
}

func TestChain_FirstSuccessWins(t *testing.T) {
	a := failing("a", ErrUpstreamStatus)
	b := &stubProvider{name: "b", doc: &Document{Source: "b", Body: []byte(guideXML)}}
	c := &stubProvider{name: "c", doc: &Document{Source: "c"}}

	doc, err := NewChain(a, b, c).Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "b", doc.Source)
	assert.Equal(t, 1, a.calls)
	assert.Equal(t, 0, c.calls)
}

func TestChain_AllFail(t *testing.T) {
	chain := NewChain(failing("a", ErrUpstreamStatus), failing("b", ErrUpstreamEmpty))

	_, err := chain.Fetch(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUpstreamStatus)
	assert.ErrorIs(t, err, ErrUpstreamEmpty)
	assert.True(t, IsUpstream(err))
}

func TestChain_StopsOnCancelledContext(t *testing.T) {
	a := failing("a", ErrUpstreamUnavailable)
	b := &stubProvider{name: "b", doc: &Document{}}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewChain(a, b).Fetch(ctx)
	assert.ErrorIs(t, err, ErrUpstreamUnavailable)
	assert.Equal(t, 0, b.calls)
}

func TestChain_NoProviders(t *testing.T) {
	_, err := NewChain().Fetch(context.Background())
	assert.ErrorIs(t, err, ErrNoSources)
	assert.True(t, IsUpstream(err))
}

func TestChain_Identity(t *testing.T) {
	chain := NewChain(&stubProvider{name: "a"}, &stubProvider{name: "b"})
	assert.Equal(t, "a,b", chain.Name())
	assert.Equal(t, "stub://a|stub://b", chain.Key())
	assert.Len(t, chain.Providers(), 2)
}
