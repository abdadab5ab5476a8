package ledger

// AuthFunc is the authorization guard injected into ledger components.
// It reports whether identity holds the given capability. Evaluated
// synchronously before any mutation.
type AuthFunc func(identity Identity, cap Capability) bool
