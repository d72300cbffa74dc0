package oidc

import "fmt"

// Registry holds the in-memory identity resources, API resources and clients.
// It is built once at startup and never mutated.
type Registry struct {
	identity map[string]IdentityResource
	apis     map[string]APIResource
	clients  map[string]*Client

	identityOrder []string
	apiOrder      []string
}

func NewRegistry(identity []IdentityResource, apis []APIResource, clients []*Client) *Registry {
	r := &Registry{
		identity: make(map[string]IdentityResource, len(identity)),
		apis:     make(map[string]APIResource, len(apis)),
		clients:  make(map[string]*Client, len(clients)),
	}
	for _, res := range identity {
		r.identity[res.Name] = res
		r.identityOrder = append(r.identityOrder, res.Name)
	}
	for _, res := range apis {
		r.apis[res.Name] = res
		r.apiOrder = append(r.apiOrder, res.Name)
	}
	for _, c := range clients {
		r.clients[c.ClientID] = c
	}
	return r
}

func (r *Registry) FindClient(id string) (*Client, error) {
	c, ok := r.clients[id]
	if !ok {
		return nil, ErrClientNotFound
	}
	return c, nil
}

// Resources is the result of resolving a set of scopes.
type Resources struct {
	Scopes   []string
	Identity []IdentityResource
	APIs     []APIResource
}

// Resolve maps scopes onto known resources. Unknown scopes are an error.
func (r *Registry) Resolve(scopes []string) (*Resources, error) {
	out := &Resources{}
	for _, s := range scopes {
		if res, ok := r.identity[s]; ok {
			out.Identity = append(out.Identity, res)
			out.Scopes = append(out.Scopes, s)
			continue
		}
		if res, ok := r.apis[s]; ok {
			out.APIs = append(out.APIs, res)
			out.Scopes = append(out.Scopes, s)
			continue
		}
		return nil, fmt.Errorf("%s: %w", s, ErrInvalidScope)
	}
	return out, nil
}

// HasIdentity reports whether the resolved scopes include identity resources.
func (res *Resources) HasIdentity() bool {
	return len(res.Identity) > 0
}

// APINames returns the audiences of the resolved API resources.
func (res *Resources) APINames() []string {
	names := make([]string, 0, len(res.APIs))
	for _, a := range res.APIs {
		names = append(names, a.Name)
	}
	return names
}

// ScopesSupported lists every scope, identity resources first.
func (r *Registry) ScopesSupported() []string {
	out := make([]string, 0, len(r.identityOrder)+len(r.apiOrder))
	out = append(out, r.identityOrder...)
	out = append(out, r.apiOrder...)
	return out
}

// ClaimsSupported lists the distinct user claims of all identity resources.
func (r *Registry) ClaimsSupported() []string {
	var out []string
	seen := map[string]bool{}
	for _, name := range r.identityOrder {
		for _, c := range r.identity[name].UserClaims {
			if !seen[c] {
				seen[c] = true
				out = append(out, c)
			}
		}
	}
	return out
}
