package visual

import "sync"

// Registry keeps the live scene per key and disposes a scene once it is
// replaced or removed.
type Registry struct {
	mu     sync.Mutex
	scenes map[string]*Scene
}

func NewRegistry() *Registry {
	return &Registry{scenes: make(map[string]*Scene)}
}

// Replace stores scene under key and disposes the scene it displaces.
func (r *Registry) Replace(key string, scene *Scene) {
	r.mu.Lock()
	prev := r.scenes[key]
	r.scenes[key] = scene
	r.mu.Unlock()

	if prev != nil && prev != scene {
		prev.Dispose()
	}
}

// Get returns the live scene for key.
func (r *Registry) Get(key string) (*Scene, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.scenes[key]
	return s, ok
}

// Remove disposes and forgets the scene for key.
func (r *Registry) Remove(key string) {
	r.mu.Lock()
	prev := r.scenes[key]
	delete(r.scenes, key)
	r.mu.Unlock()

	if prev != nil {
		prev.Dispose()
	}
}

// Close disposes every scene.
func (r *Registry) Close() {
	r.mu.Lock()
	scenes := r.scenes
	r.scenes = make(map[string]*Scene)
	r.mu.Unlock()

	for _, s := range scenes {
		s.Dispose()
	}
}
