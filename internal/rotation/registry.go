package rotation

import (
	"github.com/nao1215/claimbot/internal/model"
	"github.com/nao1215/claimbot/internal/proxy"
)

// Registry holds the credentials and the usable proxy pool for one cycle.
type Registry struct {
	credentials *Cursor[*model.Credential]
	proxies     *Cursor[*proxy.Spec]
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		credentials: NewCursor[*model.Credential](nil),
		proxies:     NewCursor[*proxy.Spec](nil),
	}
}

// Reload replaces both lists and rewinds both cursors.
func (r *Registry) Reload(creds []*model.Credential, proxies []*proxy.Spec) {
	r.credentials.Reset(creds)
	r.proxies.Reset(proxies)
}

// NextCredential returns the next credential, or nil when there are none.
func (r *Registry) NextCredential() *model.Credential {
	c, ok := r.credentials.Next()
	if !ok {
		return nil
	}
	return c
}

// NextProxy returns the next proxy, or nil when the pool is empty.
func (r *Registry) NextProxy() *proxy.Spec {
	p, ok := r.proxies.Next()
	if !ok {
		return nil
	}
	return p
}

// ProxyCount returns the size of the proxy pool.
func (r *Registry) ProxyCount() int {
	return r.proxies.Len()
}
