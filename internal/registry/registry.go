package registry

import (
	"sync"

	"github.com/google/uuid"

	"github.com/jaagratha/jaagratha-backend/internal/errs"
)

// Resource is anything the registry manages. Close releases the
// underlying state and must be safe to call exactly once.
type Resource interface {
	Close()
}

// Factory builds a fresh resource for an owner.
type Factory func(ownerID string) (Resource, error)

// Lease grants exclusive use of a resource until it is released or
// displaced by a newer acquisition for the same owner.
type Lease struct {
	Token    string
	OwnerID  string
	Resource Resource
}

// Registry holds at most one live resource per owner. Acquiring for an
// owner that already holds a resource closes the previous one first,
// so a stale holder can never outlive its replacement.
type Registry struct {
	factory Factory

	mu     sync.Mutex
	leases map[string]*Lease
}

func New(factory Factory) *Registry {
	return &Registry{
		factory: factory,
		leases:  make(map[string]*Lease),
	}
}

// Acquire builds a resource for the owner and returns its lease. Any
// lease the owner previously held is closed and invalidated.
func (r *Registry) Acquire(ownerID string) (*Lease, error) {
	if ownerID == "" {
		return nil, errs.Validation("owner id is required")
	}

	res, err := r.factory(ownerID)
	if err != nil {
		return nil, errs.Wrap("registry.Acquire", err)
	}

	lease := &Lease{
		Token:    uuid.NewString(),
		OwnerID:  ownerID,
		Resource: res,
	}

	r.mu.Lock()
	prev := r.leases[ownerID]
	r.leases[ownerID] = lease
	r.mu.Unlock()

	if prev != nil {
		prev.Resource.Close()
	}
	return lease, nil
}

// Release closes the leased resource. A lease that was already
// displaced by a newer Acquire is a no-op; its resource is gone.
func (r *Registry) Release(lease *Lease) {
	if lease == nil {
		return
	}
	r.ReleaseToken(lease.OwnerID, lease.Token)
}

// ReleaseToken releases the owner's lease if token still identifies
// it. It reports whether a live lease was closed.
func (r *Registry) ReleaseToken(ownerID, token string) bool {
	r.mu.Lock()
	current, ok := r.leases[ownerID]
	if !ok || current.Token != token {
		r.mu.Unlock()
		return false
	}
	delete(r.leases, ownerID)
	r.mu.Unlock()

	current.Resource.Close()
	return true
}

// Holder returns the live lease token for an owner, if any.
func (r *Registry) Holder(ownerID string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	lease, ok := r.leases[ownerID]
	if !ok {
		return "", false
	}
	return lease.Token, true
}

// Len returns the number of live leases.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.leases)
}

// Close releases every live lease.
func (r *Registry) Close() {
	r.mu.Lock()
	leases := r.leases
	r.leases = make(map[string]*Lease)
	r.mu.Unlock()

	for _, lease := range leases {
		lease.Resource.Close()
	}
}
