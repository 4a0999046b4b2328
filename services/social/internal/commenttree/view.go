package commenttree

// ViewState is the client-side expand/collapse state of a rendered tree.
// Threads are collapsed until toggled.
type ViewState struct {
	expanded map[string]bool
}

func (v *ViewState) Expanded(id string) bool {
	return v.expanded[id]
}

// Toggle flips id and returns the new expanded state.
func (v *ViewState) Toggle(id string) bool {
	if v.expanded == nil {
		v.expanded = make(map[string]bool)
	}
	if v.expanded[id] {
		delete(v.expanded, id)
		return false
	}
	v.expanded[id] = true
	return true
}

// Forget drops state for ids no longer present in f, e.g. after a refetch.
func (v *ViewState) Forget(f *Forest) {
	for id := range v.expanded {
		if _, ok := f.nodes[id]; !ok {
			delete(v.expanded, id)
		}
	}
}
