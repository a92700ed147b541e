// Package baseline implements version-capped interface tables,
// grounded on original_source/wl-proxy/src/baseline.rs and
// .../baseline/versions/v0.rs.
//
// A Baseline bounds the globals and global versions a State will ever
// advertise to a client. This lets new protocols and new protocol
// versions be added to this module without changing the behavior of
// applications that pin an older baseline -- if an application turns
// xdg_toplevel objects into zwlr_layer_surface_v1 objects, it should
// pin a baseline that predates whatever newer protocol also touches
// xdg_toplevel, rather than filter every future global by hand.
package baseline

import "fmt"

// Baseline is an immutable interface-name -> max-version table.
type Baseline struct {
	name     string
	versions map[string]uint32
}

// Name identifies the baseline, e.g. "V0" or "ALL_OF_THEM", for
// diagnostics.
func (b Baseline) Name() string { return b.name }

// MaxVersion returns the highest version of iface this baseline
// allows advertising, and whether iface appears in it at all.
func (b Baseline) MaxVersion(iface string) (uint32, bool) {
	v, ok := b.versions[iface]
	return v, ok
}

// Cap returns min(requested, the baseline's cap for iface), or 0 with
// ok=false if the baseline does not know iface at all -- the global
// should not be advertised.
func (b Baseline) Cap(iface string, requested uint32) (capped uint32, ok bool) {
	max, known := b.versions[iface]
	if !known {
		return 0, false
	}
	if requested > max {
		return max, true
	}
	return requested, true
}

func (b Baseline) String() string {
	return fmt.Sprintf("Baseline::%s", b.name)
}

// V0 is the first stable baseline, grounded on v0.rs's const table.
var V0 = Baseline{name: "V0", versions: map[string]uint32{
	"wl_buffer":               1,
	"wl_callback":             1,
	"wl_compositor":           6,
	"wl_data_device":          3,
	"wl_data_device_manager":  3,
	"wl_data_offer":           3,
	"wl_data_source":          3,
	"wl_display":              1,
	"wl_fixes":                1,
	"wl_keyboard":             10,
	"wl_output":               4,
	"wl_pointer":              10,
	"wl_region":                1,
	"wl_registry":             1,
	"wl_seat":                 10,
	"wl_shell":                1,
	"wl_shell_surface":        1,
	"wl_shm":                  2,
	"wl_shm_pool":             2,
	"wl_subcompositor":        1,
	"wl_subsurface":           1,
	"wl_surface":              6,
	"wl_touch":                10,
}}

// allOfThemVersions is populated at init by every interface the
// protocol package registers, giving ALL_OF_THEM the widest possible
// reach without requiring a second hand-maintained table.
var allOfThemVersions = map[string]uint32{}

// ALL_OF_THEM always contains every protocol interface this module
// supports at its highest supported version. Do not use this outside
// prototyping or very simple proxies: use the highest numbered
// baseline available at development time instead, and move to a
// newer one deliberately.
var ALLOfThem = Baseline{name: "ALL_OF_THEM", versions: allOfThemVersions}

// Register adds iface at maxVersion to ALL_OF_THEM. Called once per
// interface by the protocol package's init functions; not meant to be
// called by applications directly.
func Register(iface string, maxVersion uint32) {
	allOfThemVersions[iface] = maxVersion
}
