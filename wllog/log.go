// Package wllog builds the zerolog.Logger every other package in this
// module accepts as a constructor parameter (see acceptor.New,
// wlpoll.Poller.Unregister, wlstate.StateBuilder.WithLogger), replacing
// the Rust source's `log`/`env_logger` crates plus its
// WL_PROXY_DEBUG/WL_PROXY_PREFIX environment variables (spec.md §6, §9).
package wllog

import (
	"os"

	"github.com/rs/zerolog"

	"github.com/go-wlproxy/wlproxy/wlconfig"
)

// New builds a logger from WL_PROXY_DEBUG and WL_PROXY_PREFIX,
// writing to stderr.
func New() zerolog.Logger {
	return NewWithOptions(wlconfig.DebugEnabled(), os.Getenv(wlconfig.ProxyPrefix))
}

// NewWithOptions builds a logger explicitly, bypassing the
// environment. debug raises the level to trace, matching spec.md
// §9's "WL_PROXY_DEBUG=1: enables wire trace logging". prefix, if
// non-empty, is attached to every line the way WL_PROXY_PREFIX tags
// output from multiple proxy instances sharing one terminal.
func NewWithOptions(debug bool, prefix string) zerolog.Logger {
	level := zerolog.InfoLevel
	if debug {
		level = zerolog.TraceLevel
	}
	ctx := zerolog.New(os.Stderr).Level(level).With().Timestamp()
	if prefix != "" {
		ctx = ctx.Str("prefix", prefix)
	}
	return ctx.Logger()
}

// Direction labels a wire trace line's flow relative to the proxy.
type Direction string

const (
	// Inbound marks a message read from a peer.
	Inbound Direction = "in"
	// Outbound marks a message written to a peer.
	Outbound Direction = "out"
)

// TraceMessage logs one dispatched message at trace level; it is a
// no-op unless the logger's level is at or below trace, so callers can
// call it unconditionally on every message without measurably slowing
// down the common case where WL_PROXY_DEBUG is unset.
func TraceMessage(log zerolog.Logger, dir Direction, interfaceName string, objectID uint32, opcode uint16, messageName string) {
	log.Trace().
		Str("dir", string(dir)).
		Str("interface", interfaceName).
		Uint32("object", objectID).
		Uint16("opcode", opcode).
		Str("message", messageName).
		Msg("wire")
}
