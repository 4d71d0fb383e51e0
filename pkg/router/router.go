package router

import (
	"github.com/golang/glog"

	"github.com/robotalks/ambsi.go/pkg/amb"
)

// Role is the kind of handler bound to a range.
type Role int

// Roles.
const (
	RoleVersion Role = iota
	RoleSetup
	RoleDiagnostic
	RoleMonitorForward
	RoleControlForward
	RoleAmbient
)

var roleNames = [...]string{
	"version", "setup", "diagnostic", "monitor-forward", "control-forward", "ambient",
}

// String implements fmt.Stringer.
func (r Role) String() string {
	if r >= 0 && int(r) < len(roleNames) {
		return roleNames[r]
	}
	return "unknown"
}

// Binding is a range bound to a role.
type Binding struct {
	Range
	Role    Role
	Handler amb.Handler
}

// Router keeps bindings in registration order on top of a Registry.
type Router struct {
	registry amb.Registry
	bindings []Binding
}

// New creates a Router.
func New(registry amb.Registry) *Router {
	return &Router{registry: registry}
}

// Bind registers handler for rng.
func (r *Router) Bind(role Role, rng Range, handler amb.Handler) error {
	if !rng.Valid() {
		return &BindError{Role: role, Range: rng, Err: ErrInvalidRange}
	}
	if err := r.registry.Register(rng.Low, rng.High, handler); err != nil {
		return &BindError{Role: role, Range: rng, Err: err}
	}
	r.bindings = append(r.bindings, Binding{Range: rng, Role: role, Handler: handler})
	glog.V(2).Infof("bind %s %s", role, rng)
	return nil
}

// Mark returns a position to roll back to.
func (r *Router) Mark() int {
	return len(r.bindings)
}

// Rollback unregisters, most recent first, all bindings after mark.
func (r *Router) Rollback(mark int) error {
	for len(r.bindings) > mark {
		last := r.bindings[len(r.bindings)-1]
		if err := r.registry.UnregisterLast(); err != nil {
			return err
		}
		r.bindings = r.bindings[:len(r.bindings)-1]
		glog.V(2).Infof("unbind %s %s", last.Role, last.Range)
	}
	return nil
}

// Len returns the number of bindings.
func (r *Router) Len() int {
	return len(r.bindings)
}

// Bindings returns bindings in registration order.
func (r *Router) Bindings() []Binding {
	return append([]Binding(nil), r.bindings...)
}

// Lookup finds the first binding containing rca.
func (r *Router) Lookup(rca uint32) (Binding, bool) {
	for _, b := range r.bindings {
		if b.Contains(rca) {
			return b, true
		}
	}
	return Binding{}, false
}
