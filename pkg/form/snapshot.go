package form

// Snapshot is a copy of the whole form state at one version.
type Snapshot struct {
	Version    uint64            `json:"version"`
	Values     Values            `json:"values"`
	Errors     map[string]string `json:"errors"`
	Touched    map[string]bool   `json:"touched"`
	Dirty      map[string]bool   `json:"dirty"`
	Submitting bool              `json:"isSubmitting"`
	Validating bool              `json:"isValidating"`
	IsDirty    bool              `json:"isDirty"`
	IsValid    bool              `json:"isValid"`
}

// Snapshot returns the current state.
func (f *Form) Snapshot() Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	return Snapshot{
		Version:    f.version,
		Values:     f.values.Clone(),
		Errors:     cloneMap(f.errors),
		Touched:    cloneMap(f.touched),
		Dirty:      cloneMap(f.dirty),
		Submitting: f.submitting,
		Validating: len(f.inflight) > 0,
		IsDirty:    len(f.dirty) > 0,
		IsValid:    f.validLocked(),
	}
}

// Subscribe registers fn to receive the state after changes. Calls happen
// on a dispatch goroutine, one at a time; bursts of changes are coalesced
// so fn always sees the latest state. fn receives the current state once
// right after subscribing. The returned function unsubscribes.
func (f *Form) Subscribe(fn func(Snapshot)) (unsubscribe func()) {
	f.listenMu.Lock()
	id := f.nextListen
	f.nextListen++
	f.listeners[id] = fn
	f.listenMu.Unlock()

	f.mu.Lock()
	if !f.dispatching && !f.closed {
		f.dispatching = true
		f.jobs.Add(1)
		go f.dispatch()
	}
	f.poke()
	f.mu.Unlock()

	return func() {
		f.listenMu.Lock()
		delete(f.listeners, id)
		f.listenMu.Unlock()
	}
}

func (f *Form) dispatch() {
	defer f.jobs.Done()
	for {
		select {
		case <-f.ctx.Done():
			return
		case <-f.wake:
		}

		snap := f.Snapshot()

		f.listenMu.Lock()
		ls := make([]func(Snapshot), 0, len(f.listeners))
		for _, l := range f.listeners {
			ls = append(ls, l)
		}
		f.listenMu.Unlock()

		for _, l := range ls {
			f.notifyOne(l, snap)
		}
	}
}

func (f *Form) notifyOne(l func(Snapshot), snap Snapshot) {
	defer func() {
		if r := recover(); r != nil {
			f.logger.Error("form listener panicked", "panic", r)
		}
	}()
	l(snap)
}

// poke wakes the dispatcher without blocking.
func (f *Form) poke() {
	select {
	case f.wake <- struct{}{}:
	default:
	}
}
