// Package endpoint implements the object table, per-object identity and
// handler discipline, and the socket endpoint that owns them -- the
// "Object table & core", "Handler holder" and "Endpoint" components of
// spec.md §4.2, §4.4 and §4.5. Object and Endpoint are kept in one Go
// package (rather than split as in the Rust source's object.rs /
// endpoint.rs) because they reference each other directly; Rust allows
// that cycle within one crate, Go does not allow it across packages,
// see DESIGN.md.
package endpoint

// Interface identifies which protocol interface a concrete object
// implements. Unlike the Rust source's compile-time enum, new
// interfaces are registered at init time by the protocol package; see
// protocol.RegisterInterface.
type Interface struct {
	name       string
	maxVersion uint32
}

// Name returns the Wayland protocol interface name, e.g. "wl_display".
func (i Interface) Name() string {
	return i.name
}

// MaxVersion returns the highest version this build of the library
// supports for the interface.
func (i Interface) MaxVersion() uint32 {
	return i.maxVersion
}

// NewInterface returns an interface descriptor for name and
// maxVersion. It records nothing; making an interface constructible by
// name is protocol.RegisterInterface's job.
func NewInterface(name string, maxVersion uint32) Interface {
	return Interface{name: name, maxVersion: maxVersion}
}
