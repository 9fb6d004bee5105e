package progress

// Monotonic enforces the ordering rules of a single job's update stream:
// stages never move backwards and percent never decreases within a stage.
// Updates that would violate either rule are dropped rather than rewritten,
// so the message always matches the percent it carries.
// Reset marks the start of a new attempt (a fallback strategy), after which
// percent may restart from zero in the current stage.
//
// Monotonic is not safe for concurrent use; each job owns one.
type Monotonic struct {
	started bool
	stage   Stage
	percent float64
}

// Admit returns the update to emit and whether it should be emitted at all.
func (m *Monotonic) Admit(u Update) (Update, bool) {
	if !m.started {
		m.started = true
		m.stage = u.Stage
		m.percent = u.Percent
		return u, true
	}

	switch {
	case u.Stage.Rank() < m.stage.Rank():
		return Update{}, false
	case u.Stage != m.stage:
		m.stage = u.Stage
		m.percent = u.Percent
	case u.Percent < m.percent:
		return Update{}, false
	default:
		m.percent = u.Percent
	}
	return u, true
}

// Reset allows percent to restart within the current stage.
func (m *Monotonic) Reset() {
	m.percent = 0
}

// Stage returns the last admitted stage.
func (m *Monotonic) Stage() Stage {
	return m.stage
}
