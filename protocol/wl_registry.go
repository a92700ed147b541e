package protocol

import (
	"fmt"

	"github.com/go-wlproxy/wlproxy/endpoint"
	"github.com/go-wlproxy/wlproxy/wire"
)

func init() {
	RegisterInterface("wl_registry", 1, func(core *endpoint.Core) endpoint.Object {
		return &WlRegistry{
			core:    core,
			handler: endpoint.NewHandlerHolder[WlRegistryHandler](defaultRegistryHandler{}),
			globals: make(map[uint32]registryGlobal),
		}
	})
}

// WlRegistry advertises the compositor's global objects and lets a
// client bind to them, grounded on spec.md §8 scenarios 2 and 3
// ("filtered global", "version downgrade").
type WlRegistry struct {
	core    *endpoint.Core
	handler *endpoint.HandlerHolder[WlRegistryHandler]

	// globals remembers, for every name this registry has advertised
	// to its client, the interface and the baseline-capped version it
	// was advertised at -- the information bind needs to translate a
	// client's new_id into a concrete object and reject a version the
	// client was never shown.
	globals map[uint32]registryGlobal
}

type registryGlobal struct {
	iface   string
	version uint32
}

// WlRegistryHandler reacts to global/global_remove events. A
// proxy application typically installs one of these to filter globals
// (spec.md scenario 2) or cap their advertised version (scenario 3)
// before they reach the client.
type WlRegistryHandler interface {
	HandleGlobal(registry *WlRegistry, name uint32, iface string, version uint32)
	HandleGlobalRemove(registry *WlRegistry, name uint32)
}

type defaultRegistryHandler struct{}

func (defaultRegistryHandler) HandleGlobal(r *WlRegistry, name uint32, iface string, version uint32) {
	if !r.core.ForwardToClient {
		return
	}
	_ = r.TrySendGlobal(name, iface, version)
}

func (defaultRegistryHandler) HandleGlobalRemove(r *WlRegistry, name uint32) {
	if !r.core.ForwardToClient {
		return
	}
	_ = r.TrySendGlobalRemove(name)
}

func (r *WlRegistry) ObjectCore() *endpoint.Core { return r.core }

// SetHandler installs a new handler.
func (r *WlRegistry) SetHandler(h WlRegistryHandler) { r.handler.Set(h) }

// TrySendGlobal announces one global to the client.
func (r *WlRegistry) TrySendGlobal(name uint32, iface string, version uint32) error {
	w := wire.NewWriter(nil)
	w.Uint32(name)
	w.String(iface)
	w.Uint32(version)
	return sendToClient(r.core, 0, w.Bytes())
}

// TrySendGlobalRemove retracts a previously announced global.
func (r *WlRegistry) TrySendGlobalRemove(name uint32) error {
	return sendToClient(r.core, 1, writeUint32s(name))
}

func (r *WlRegistry) HandleRequest(client *endpoint.Client, hdr wire.Header, payload []byte, fds *wire.FDQueue) error {
	rd := wire.NewReader(payload, fds, "wl_registry.bind")
	switch hdr.Opcode {
	case 0: // bind
		name, err := rd.Uint32()
		if err != nil {
			return err
		}
		iface, err := rd.String()
		if err != nil {
			return err
		}
		version, err := rd.Uint32()
		if err != nil {
			return err
		}
		newID, err := rd.NewIDRaw()
		if err != nil {
			return err
		}
		return r.bind(client, name, iface, version, newID)
	default:
		return &endpoint.Error{Kind: endpoint.KindUnknownOpcode, ID: uint32(hdr.Opcode)}
	}
}

// bind is wl_registry's request handler proper (opcode 0): the heart
// of proxying (spec.md §4.5). It translates the client-allocated
// new_id into a freshly constructed object of the bound interface,
// inserted into the client endpoint's object map, and -- when this
// registry itself has an upstream counterpart -- allocates a matching
// id from the server endpoint's own allocator and forwards the same
// bind request to the real compositor, so the proxied object exists in
// both id spaces exactly as spec.md §4.5 step 2 describes.
func (r *WlRegistry) bind(client *endpoint.Client, name uint32, iface string, version, newID uint32) error {
	g, known := r.globals[name]
	if !known || g.iface != iface {
		return fmt.Errorf("wl_registry.bind: name %d is not a known %s global", name, iface)
	}
	if version == 0 || version > g.version {
		return fmt.Errorf("wl_registry.bind: %s requested at version %d, advertised at %d", iface, version, g.version)
	}

	core := endpoint.NewCore(endpoint.NewInterface(iface, version), version, r.core.State)
	core.ForwardToClient = r.core.ForwardToClient
	core.ForwardToServer = r.core.ForwardToServer
	core.Client = client
	obj, err := New(iface, core)
	if err != nil {
		return err
	}
	if err := client.Endpoint.RegisterAt(newID, obj); err != nil {
		return err
	}
	core.ClientObjID = newID
	core.HasClientObjID = true

	serverEP, ok := r.core.State.ServerEndpoint()
	if !ok || !r.core.HasServerObjID {
		return nil
	}
	serverID := serverEP.Register(obj)
	core.ServerObjID = serverID
	core.HasServerObjID = true

	w := wire.NewWriter(nil)
	w.Uint32(name)
	w.String(iface)
	w.Uint32(version)
	w.Uint32(serverID)
	return sendToServer(r.core, serverEP, 0, w.Bytes())
}

func (r *WlRegistry) HandleEvent(ep *endpoint.Endpoint, hdr wire.Header, payload []byte, fds *wire.FDQueue) error {
	handler, release, err := r.handler.Borrow()
	if err != nil {
		return err
	}
	defer release()

	rd := wire.NewReader(payload, fds, "wl_registry event")
	switch hdr.Opcode {
	case 0: // global
		name, err := rd.Uint32()
		if err != nil {
			return err
		}
		iface, err := rd.String()
		if err != nil {
			return err
		}
		version, err := rd.Uint32()
		if err != nil {
			return err
		}
		// spec.md §4.9: clamp to min(server_version, baseline[interface])
		// and hide interfaces whose baseline is zero or unknown.
		capped, ok := r.core.State.Baseline().Cap(iface, version)
		if !ok || capped == 0 {
			return nil
		}
		r.globals[name] = registryGlobal{iface: iface, version: capped}
		handler.HandleGlobal(r, name, iface, capped)
		return nil
	case 1: // global_remove
		name, err := rd.Uint32()
		if err != nil {
			return err
		}
		if _, known := r.globals[name]; !known {
			return nil // baseline-hidden or never advertised; nothing to retract
		}
		delete(r.globals, name)
		handler.HandleGlobalRemove(r, name)
		return nil
	default:
		return &endpoint.Error{Kind: endpoint.KindUnknownOpcode, ID: uint32(hdr.Opcode)}
	}
}

func (r *WlRegistry) RequestName(opcode uint16) (string, bool) {
	if opcode == 0 {
		return "bind", true
	}
	return "", false
}

func (r *WlRegistry) EventName(opcode uint16) (string, bool) {
	switch opcode {
	case 0:
		return "global", true
	case 1:
		return "global_remove", true
	default:
		return "", false
	}
}
