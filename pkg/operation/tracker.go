package operation

// Tracker drives one operation through its lifecycle. A Tracker built on a
// nil Store records nothing, so callers need not check whether tracking is
// enabled.
//
// Store failures are ignored: a broken store must not fail the transfer it
// is observing.
type Tracker struct {
	store Store
	id    string
}

// Track creates an operation for a transfer from source to destination and
// marks it running.
func Track(store Store, source, destination string) *Tracker {
	t := &Tracker{store: store}
	if store == nil {
		return t
	}

	op, err := store.Create(source, destination)
	if err != nil {
		// If we cannot even create it the store is broken; nothing to do.
		t.store = nil
		return t
	}
	t.id = op.ID
	_ = store.MarkRunning(op.ID)
	return t
}

// ID returns the operation ID, or "" when nothing is being recorded.
func (t *Tracker) ID() string {
	return t.id
}

// Attempt records a single backend call and its outcome.
func (t *Tracker) Attempt(err error) {
	if t.store == nil {
		return
	}
	_ = t.store.RecordAttempt(t.id, err)
}

// Done transitions the operation to complete or failed depending on err.
func (t *Tracker) Done(uri string, err error) {
	if t.store == nil {
		return
	}
	if err != nil {
		_ = t.store.MarkFailed(t.id, err)
		return
	}
	_ = t.store.MarkComplete(t.id, uri)
}
