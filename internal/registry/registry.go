package registry

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

// Priority orders competing display requests. Higher values win.
type Priority int

const (
	// PriorityBackground is decorative filler content.
	PriorityBackground Priority = iota
	// PriorityNormal is routine content.
	PriorityNormal
	// PriorityHigh is content the user probably wants to see now.
	PriorityHigh
	// PriorityCritical is content that must not be displaced.
	PriorityCritical
)

// String returns the string representation of a Priority.
func (p Priority) String() string {
	switch p {
	case PriorityBackground:
		return "background"
	case PriorityNormal:
		return "normal"
	case PriorityHigh:
		return "high"
	case PriorityCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// ParsePriority converts a string to a Priority.
func ParsePriority(s string) (Priority, error) {
	switch s {
	case "background":
		return PriorityBackground, nil
	case "normal":
		return PriorityNormal, nil
	case "high":
		return PriorityHigh, nil
	case "critical":
		return PriorityCritical, nil
	default:
		return PriorityBackground, fmt.Errorf("unknown priority %q", s)
	}
}

// ValidPriorities returns all valid priority names.
func ValidPriorities() []string {
	return []string{"background", "normal", "high", "critical"}
}

// Category describes what kind of content a producer contributes.
type Category string

const (
	// CategoryWidget is a small passive widget (clock, stats).
	CategoryWidget Category = "widget"
	// CategoryActivity is an ongoing background activity readout.
	CategoryActivity Category = "activity"
	// CategoryUtility is an interactive tool surface.
	CategoryUtility Category = "utility"
	// CategorySystem is system status content.
	CategorySystem Category = "system"
)

// ValidCategories returns all valid category names.
func ValidCategories() []string {
	return []string{
		string(CategoryWidget),
		string(CategoryActivity),
		string(CategoryUtility),
		string(CategorySystem),
	}
}

// ValidCategory reports whether c is a known category.
func ValidCategory(c Category) bool {
	switch c {
	case CategoryWidget, CategoryActivity, CategoryUtility, CategorySystem:
		return true
	}
	return false
}

// Anchor is a slot on the compact surface a producer can occupy.
type Anchor string

const (
	// AnchorCenter is the main compact-surface slot.
	AnchorCenter Anchor = "center"
	// AnchorLeft is the leading accessory slot.
	AnchorLeft Anchor = "left"
	// AnchorRight is the trailing accessory slot.
	AnchorRight Anchor = "right"
	// AnchorReplace substitutes a system element entirely.
	AnchorReplace Anchor = "replace"
)

// ValidAnchors returns all valid anchor names.
func ValidAnchors() []string {
	return []string{
		string(AnchorCenter),
		string(AnchorLeft),
		string(AnchorRight),
		string(AnchorReplace),
	}
}

// ValidAnchor reports whether a is a known anchor.
func ValidAnchor(a Anchor) bool {
	switch a {
	case AnchorCenter, AnchorLeft, AnchorRight, AnchorReplace:
		return true
	}
	return false
}

// Request is a producer's declaration that it wants an anchor slot.
// Producers overwrite their own entry and never another producer's.
type Request struct {
	Priority Priority `json:"priority"`
	Category Category `json:"category"`
}

// Winner is the producer that currently holds an anchor slot.
type Winner struct {
	Producer string  `json:"producer"`
	Request  Request `json:"request"`
}

// Resolution holds the winning producer for each anchor, nil where no
// producer has a current request.
type Resolution struct {
	Center  *Winner `json:"center,omitempty"`
	Left    *Winner `json:"left,omitempty"`
	Right   *Winner `json:"right,omitempty"`
	Replace *Winner `json:"replace,omitempty"`
}

// ForAnchor returns the winner for a single anchor.
func (r Resolution) ForAnchor(a Anchor) *Winner {
	switch a {
	case AnchorCenter:
		return r.Center
	case AnchorLeft:
		return r.Left
	case AnchorRight:
		return r.Right
	case AnchorReplace:
		return r.Replace
	}
	return nil
}

// Registry errors.
var (
	ErrUnknownProducer   = errors.New("producer not registered")
	ErrInvalidAnchor     = errors.New("invalid anchor")
	ErrDuplicateProducer = errors.New("producer already registered")
)

// Registry tracks registered producers and their current requests per
// anchor. Ties on priority are broken by registration order: the producer
// registered first wins. Registration order is therefore part of a
// deployment's documented contract; see the producers manifest.
type Registry struct {
	mu sync.RWMutex

	// Registration order, first registered first.
	order []string
	seq   map[string]int

	// Current requests, keyed by anchor then producer.
	requests map[Anchor]map[string]Request

	onChange func()
}

// New creates an empty Registry.
func New() *Registry {
	return &Registry{
		seq:      make(map[string]int),
		requests: make(map[Anchor]map[string]Request),
	}
}

// SetChangeCallback sets the function invoked after any request changes.
// The callback runs on the caller's goroutine after locks are released.
func (r *Registry) SetChangeCallback(fn func()) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onChange = fn
}

// Register adds a producer at the next registration position.
func (r *Registry) Register(producer string) error {
	if producer == "" {
		return errors.New("empty producer name")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.seq[producer]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateProducer, producer)
	}
	r.seq[producer] = len(r.order)
	r.order = append(r.order, producer)
	return nil
}

// Registered reports whether a producer has been registered.
func (r *Registry) Registered(producer string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.seq[producer]
	return ok
}

// Producers returns producer names in registration order.
func (r *Registry) Producers() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Submit records a producer's current request for an anchor, replacing any
// previous request by the same producer at that anchor.
func (r *Registry) Submit(producer string, anchor Anchor, req Request) error {
	if !ValidAnchor(anchor) {
		return fmt.Errorf("%w: %s", ErrInvalidAnchor, anchor)
	}

	r.mu.Lock()
	if _, ok := r.seq[producer]; !ok {
		r.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrUnknownProducer, producer)
	}
	m := r.requests[anchor]
	if m == nil {
		m = make(map[string]Request)
		r.requests[anchor] = m
	}
	m[producer] = req
	cb := r.onChange
	r.mu.Unlock()

	if cb != nil {
		cb()
	}
	return nil
}

// Withdraw removes a producer's request for an anchor. Withdrawing a
// request that does not exist is a no-op.
func (r *Registry) Withdraw(producer string, anchor Anchor) {
	r.mu.Lock()
	var changed bool
	if m, ok := r.requests[anchor]; ok {
		if _, had := m[producer]; had {
			delete(m, producer)
			changed = true
		}
	}
	cb := r.onChange
	r.mu.Unlock()

	if changed && cb != nil {
		cb()
	}
}

// WithdrawAll removes a producer's requests from every anchor.
func (r *Registry) WithdrawAll(producer string) {
	r.mu.Lock()
	var changed bool
	for _, m := range r.requests {
		if _, had := m[producer]; had {
			delete(m, producer)
			changed = true
		}
	}
	cb := r.onChange
	r.mu.Unlock()

	if changed && cb != nil {
		cb()
	}
}

// Resolve returns the winning producer for an anchor, or nil when no
// producer has a current request there.
func (r *Registry) Resolve(anchor Anchor) *Winner {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.resolveLocked(anchor)
}

// ResolveAll resolves every anchor in one pass.
func (r *Registry) ResolveAll() Resolution {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return Resolution{
		Center:  r.resolveLocked(AnchorCenter),
		Left:    r.resolveLocked(AnchorLeft),
		Right:   r.resolveLocked(AnchorRight),
		Replace: r.resolveLocked(AnchorReplace),
	}
}

func (r *Registry) resolveLocked(anchor Anchor) *Winner {
	m := r.requests[anchor]
	if len(m) == 0 {
		return nil
	}

	var (
		best    string
		bestReq Request
		found   bool
	)
	for producer, req := range m {
		if !found {
			best, bestReq, found = producer, req, true
			continue
		}
		if req.Priority > bestReq.Priority {
			best, bestReq = producer, req
			continue
		}
		if req.Priority == bestReq.Priority && r.seq[producer] < r.seq[best] {
			best, bestReq = producer, req
		}
	}
	return &Winner{Producer: best, Request: bestReq}
}

// Requests returns a copy of the current requests for an anchor, ordered
// by producer registration position. Used for introspection.
func (r *Registry) Requests(anchor Anchor) []Winner {
	r.mu.RLock()
	defer r.mu.RUnlock()

	m := r.requests[anchor]
	out := make([]Winner, 0, len(m))
	for producer, req := range m {
		out = append(out, Winner{Producer: producer, Request: req})
	}
	sort.Slice(out, func(i, j int) bool {
		return r.seq[out[i].Producer] < r.seq[out[j].Producer]
	})
	return out
}
