package visual

import (
	"fmt"
	"sync"
)

// ResourceKind classifies a renderer-side allocation.
type ResourceKind string

const (
	KindGeometry ResourceKind = "geometry"
	KindMaterial ResourceKind = "material"
	KindTexture  ResourceKind = "texture"
)

// Resource is a handle to something the client renderer must free when the
// scene goes away.
type Resource struct {
	ID   string       `json:"id"`
	Kind ResourceKind `json:"kind"`

	mu       sync.Mutex
	releases int
}

// Releases reports how many times the resource has been released.
func (r *Resource) Releases() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.releases
}

func (r *Resource) release() {
	r.mu.Lock()
	r.releases++
	r.mu.Unlock()
}

// tracker owns every resource allocated for one scene.
type tracker struct {
	mu        sync.Mutex
	resources []*Resource
	once      sync.Once
	released  int
}

func (t *tracker) alloc(kind ResourceKind, name string) *Resource {
	t.mu.Lock()
	defer t.mu.Unlock()
	r := &Resource{ID: fmt.Sprintf("%s/%s", kind, name), Kind: kind}
	t.resources = append(t.resources, r)
	return r
}

func (t *tracker) dispose() int {
	t.once.Do(func() {
		t.mu.Lock()
		defer t.mu.Unlock()
		for _, r := range t.resources {
			r.release()
		}
		t.released = len(t.resources)
	})
	return t.released
}

func (t *tracker) list() []*Resource {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]*Resource(nil), t.resources...)
}
