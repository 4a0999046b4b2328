package engagement

// Optimistic is the caller-side view of one relation: whether it is active
// and the displayed count. Flip applies the expected change before the
// toggle resolves; Settle keeps it on success and reverts it on failure.
// Counts are recomputed from rows on the next read, so a wrong guess never
// accumulates.
type Optimistic struct {
	Active bool
	Count  int

	prev    *Optimistic
	pending bool
}

// Flip applies the optimistic change and remembers the previous values.
func (o *Optimistic) Flip() {
	snap := Optimistic{Active: o.Active, Count: o.Count}
	o.prev = &snap
	o.pending = true
	o.Active = !o.Active
	if o.Active {
		o.Count++
	} else if o.Count > 0 {
		o.Count--
	}
}

// Settle resolves the pending flip with the toggle outcome and returns err.
// On error both fields go back to their values before Flip. On success the
// boolean follows the server's state.
func (o *Optimistic) Settle(res Result, err error) error {
	if !o.pending {
		return err
	}
	prev := o.prev
	o.prev, o.pending = nil, false
	if err != nil {
		o.Active, o.Count = prev.Active, prev.Count
		return err
	}
	if server := res.Active(); server != o.Active {
		o.Active = server
		o.Count = prev.Count
	}
	return nil
}

// Pending reports whether a flip is awaiting Settle.
func (o *Optimistic) Pending() bool { return o.pending }
