package graph

import "errors"

var (
	// ErrNilNode means a nil node was passed to a graph operation.
	ErrNilNode = errors.New("nil node")

	// ErrSelfConnection means a node was asked to feed itself.
	ErrSelfConnection = errors.New("node cannot connect to itself")

	// ErrAlreadyAttached means the node is already part of the graph.
	ErrAlreadyAttached = errors.New("node already attached")

	// ErrNotAttached means the node is not part of the graph.
	ErrNotAttached = errors.New("node not attached")

	// ErrMutation means a live graph rewiring failed at the driver level.
	// Once seen, further equalizer mutations are latched off until the
	// engine is explicitly reset.
	ErrMutation = errors.New("graph mutation failed")
)
