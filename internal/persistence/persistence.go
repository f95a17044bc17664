package persistence

// Persistence bundles the store interfaces so the engine
// can depend on a single abstraction.
type Persistence struct {
	Orders    OrderStore
	PrintJobs PrintJobStore
	Settings  SettingsStore
}

// FromStore builds a Persistence whose three stores are the same backend.
func FromStore[S interface {
	OrderStore
	PrintJobStore
	SettingsStore
}](s S) Persistence {
	return Persistence{Orders: s, PrintJobs: s, Settings: s}
}
