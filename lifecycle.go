package di

// lifecycleManager tracks cleanups for instances created during one Build
// call that are not yet owned by a constructed consumer.
// It is confined to a single request and is not safe for concurrent use.
type lifecycleManager struct {
	cleanups []func() error
}

// track adds a cleanup to be run if the request fails
func (m *lifecycleManager) track(cleanup func() error) {
	m.cleanups = append(m.cleanups, cleanup)
}

// trackInstance tracks the stored instance if it is disposable
func (m *lifecycleManager) trackInstance(st storage) {
	if d, ok := asDisposable(st.value); ok {
		m.track(d.Close)
	}
}

// mark returns the current position of the stack.
func (m *lifecycleManager) mark() int {
	return len(m.cleanups)
}

// commit drops the cleanups tracked since mark. Ownership of those instances
// has passed to the consumer that was just constructed.
func (m *lifecycleManager) commit(mark int) {
	if mark < len(m.cleanups) {
		m.cleanups = m.cleanups[:mark]
	}
}

// dispose runs all tracked cleanups in reverse order
func (m *lifecycleManager) dispose() []error {
	cleanups := m.cleanups
	m.cleanups = nil

	var errs []error

	// Dispose in reverse order (LIFO)
	for i := len(cleanups) - 1; i >= 0; i-- {
		if err := cleanups[i](); err != nil {
			errs = append(errs, err)
		}
	}

	return errs
}

// clear removes all tracked cleanups without running them
func (m *lifecycleManager) clear() {
	m.cleanups = nil
}
