package avatar

import (
	"log"

	"github.com/milk9111/avatar-customizer/assets"
	"github.com/milk9111/avatar-customizer/scene"
)

// Loader starts an asynchronous asset load. The result must eventually be
// handed to Reconciler.Deliver with the same slot and token.
type Loader interface {
	Load(slot string, token uint64, path string)
}

// Reconciler keeps the per-slot part nodes in line with a configuration.
// It is not safe for concurrent use; drive it from the frame loop.
type Reconciler struct {
	slots  []string
	nodes  map[string]*scene.Node
	tokens map[string]uint64
	forced map[string]bool
	loader Loader
	path   func(id string) string
}

// NewReconciler manages nodes (one per slot) and loads assets through loader.
func NewReconciler(slots []string, nodes map[string]*scene.Node, loader Loader) *Reconciler {
	return &Reconciler{
		slots:  append([]string(nil), slots...),
		nodes:  nodes,
		tokens: make(map[string]uint64, len(slots)),
		forced: make(map[string]bool),
		loader: loader,
		path:   assets.PartPath,
	}
}

// Reconcile brings every slot whose pending value differs from applied in line:
// the slot node is cleared, a load is started for non-None values, and applied
// is updated right away without waiting for the load. It returns the changed slots.
func (r *Reconciler) Reconcile(pending, applied Configuration) []string {
	diff := make(map[string]bool)
	for _, slot := range pending.Diff(applied, r.slots) {
		diff[slot] = true
	}

	var changed []string
	for _, slot := range r.slots {
		if !diff[slot] && !r.forced[slot] {
			continue
		}
		delete(r.forced, slot)
		changed = append(changed, slot)
		want := pending.Get(slot)

		node := r.nodes[slot]
		if node != nil {
			node.Clear()
		}
		r.tokens[slot]++

		if want != None {
			path := r.path(want)
			log.Printf("avatar: %s -> %s (%s)", slot, want, path)
			r.loader.Load(slot, r.tokens[slot], path)
		} else {
			log.Printf("avatar: %s cleared", slot)
		}

		if want == None {
			delete(applied, slot)
		} else {
			applied[slot] = want
		}
	}
	return changed
}

// Deliver attaches a finished load if it is still the latest request for its
// slot. Stale and failed results are dropped. It reports whether the subtree
// was attached.
func (r *Reconciler) Deliver(res assets.Result) bool {
	if res.Err != nil {
		log.Printf("avatar: %s: load %s failed: %v", res.Slot, res.Path, res.Err)
		return false
	}
	if res.Token != r.tokens[res.Slot] {
		log.Printf("avatar: %s: dropping stale load of %s", res.Slot, res.Path)
		return false
	}
	node := r.nodes[res.Slot]
	if node == nil || res.Root == nil {
		return false
	}
	node.Clear()
	node.Add(res.Root)
	return true
}

// Invalidate forces the next Reconcile to reload slot even if its value is unchanged.
func (r *Reconciler) Invalidate(slot string) {
	r.forced[slot] = true
}

// Token returns the current generation of slot.
func (r *Reconciler) Token(slot string) uint64 {
	return r.tokens[slot]
}

// Slots returns the managed slots in order.
func (r *Reconciler) Slots() []string {
	return r.slots
}
