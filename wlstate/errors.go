package wlstate

// DestroyedError is returned by dispatch operations once a State has
// been destroyed, grounded on the `remote_destructor` test's
// `dispatch_available().unwrap_err().is_destroyed()` assertion.
type DestroyedError struct{}

func (*DestroyedError) Error() string { return "state has been destroyed" }

// Destroyed reports true, letting callers mirror the Rust source's
// StateError::is_destroyed() without a type switch.
func (*DestroyedError) Destroyed() bool { return true }

// ReentrantError is returned when DispatchAvailable is called again
// from within a handler it is already running underneath, grounded on
// state/tests.rs's `recursive_dispatch` test and spec.md §8 scenario 4
// ("recursive dispatch attempt").
type ReentrantError struct{}

func (*ReentrantError) Error() string { return "state is already dispatching" }
