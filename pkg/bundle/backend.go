package bundle

import (
	"context"

	"google.golang.org/protobuf/proto"
)

// RenderOptions controls the rendering of a NetJSON message into a bundle.
type RenderOptions struct {
	Strict        bool   // fail on any warnings if true
	GenerationTag string // optional tag recorded in bundle metadata
}

// Backend renders a NetJSON proto message into native configuration. The
// reverse direction, native text back into the object graph, is the uci
// core's Import; backends only own the proto→graph mapping.
type Backend interface {
	// Name returns the backend identifier (e.g. "openwrt").
	Name() string
	// ToNative renders a NetJSON proto message into a bundle of UCI
	// packages and auxiliary files.
	ToNative(ctx context.Context, cfg proto.Message, opts RenderOptions) (*Bundle, error)
}
