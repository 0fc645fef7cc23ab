// Package graph owns the live rendering graph: source, optional
// equalizer, mixer and output nodes. The graph may be mutated while
// rendering; every mutation here happens on the engine's serialized
// control context, never on the render thread.
package graph

import (
	"sync"

	"github.com/shaban/hifi/format"
)

// Node is any unit in the signal graph.
type Node interface {
	// Name identifies the node in logs and errors.
	Name() string

	// OutputFormat is the node's native output format, used when wiring
	// its downstream connection.
	OutputFormat() format.Format
}

// SourceNode feeds decoded buffers into the graph.
type SourceNode struct {
	mu   sync.Mutex
	name string
	fmtF format.Format
}

// NewSourceNode creates a source node producing the given format.
func NewSourceNode(name string, f format.Format) *SourceNode {
	return &SourceNode{name: name, fmtF: f}
}

func (s *SourceNode) Name() string { return s.name }

func (s *SourceNode) OutputFormat() format.Format {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fmtF
}

// SetFormat updates the produced format; called on track changes.
func (s *SourceNode) SetFormat(f format.Format) {
	s.mu.Lock()
	s.fmtF = f
	s.mu.Unlock()
}

// MixerNode sums its single upstream connection into the output chain.
type MixerNode struct {
	name string
	fmtF format.Format
}

// NewMixerNode creates the main mixer running at the given format.
func NewMixerNode(f format.Format) *MixerNode {
	return &MixerNode{name: "main-mixer", fmtF: f}
}

func (m *MixerNode) Name() string                { return m.name }
func (m *MixerNode) OutputFormat() format.Format { return m.fmtF }

// OutputNode hands buffers to the hardware session.
type OutputNode struct {
	name string
	fmtF format.Format
}

// NewOutputNode creates the hardware output node.
func NewOutputNode(f format.Format) *OutputNode {
	return &OutputNode{name: "output", fmtF: f}
}

func (o *OutputNode) Name() string                { return o.name }
func (o *OutputNode) OutputFormat() format.Format { return o.fmtF }

// Graph is a DAG of audio nodes where every node has at most one
// upstream connection. The render thread reads connections; the control
// context mutates them under the graph lock.
type Graph struct {
	mu       sync.Mutex
	nodes    map[Node]bool
	upstream map[Node]Node          // dst -> src
	connFmt  map[Node]format.Format // dst -> connection format

	// connectHook, when set, can veto a connection. Used to model
	// driver-level connection faults.
	connectHook func(src, dst Node) error
}

// New creates an empty graph.
func New() *Graph {
	return &Graph{
		nodes:    make(map[Node]bool),
		upstream: make(map[Node]Node),
		connFmt:  make(map[Node]format.Format),
	}
}

// Attach adds a node to the graph without connecting it.
func (g *Graph) Attach(n Node) error {
	if n == nil {
		return ErrNilNode
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.nodes[n] {
		return ErrAlreadyAttached
	}
	g.nodes[n] = true
	return nil
}

// Detach removes a node and severs any connections touching it.
func (g *Graph) Detach(n Node) error {
	if n == nil {
		return ErrNilNode
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.nodes[n] {
		return ErrNotAttached
	}
	delete(g.upstream, n)
	delete(g.connFmt, n)
	for dst, src := range g.upstream {
		if src == n {
			delete(g.upstream, dst)
			delete(g.connFmt, dst)
		}
	}
	delete(g.nodes, n)
	return nil
}

// Attached reports whether n is part of the graph.
func (g *Graph) Attached(n Node) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.nodes[n]
}

// Connect wires src into dst's single input using format f, replacing any
// existing upstream connection of dst.
func (g *Graph) Connect(src, dst Node, f format.Format) error {
	if src == nil || dst == nil {
		return ErrNilNode
	}
	if src == dst {
		return ErrSelfConnection
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.nodes[src] || !g.nodes[dst] {
		return ErrNotAttached
	}
	if g.connectHook != nil {
		if err := g.connectHook(src, dst); err != nil {
			return err
		}
	}
	g.upstream[dst] = src
	g.connFmt[dst] = f
	return nil
}

// Disconnect severs dst's upstream connection, if any.
func (g *Graph) Disconnect(dst Node) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.upstream, dst)
	delete(g.connFmt, dst)
}

// UpstreamOf returns the node feeding dst, or nil.
func (g *Graph) UpstreamOf(dst Node) Node {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.upstream[dst]
}

// DownstreamOf returns the node dst feeds, or nil.
func (g *Graph) DownstreamOf(src Node) Node {
	g.mu.Lock()
	defer g.mu.Unlock()
	for dst, s := range g.upstream {
		if s == src {
			return dst
		}
	}
	return nil
}

// ConnectionFormat returns the format of dst's upstream connection.
func (g *Graph) ConnectionFormat(dst Node) (format.Format, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	f, ok := g.connFmt[dst]
	return f, ok
}

// Sources returns all attached SourceNodes, the candidates for "most
// plausible rendering source" when the mixer input cannot be identified.
func (g *Graph) Sources() []*SourceNode {
	g.mu.Lock()
	defer g.mu.Unlock()
	var out []*SourceNode
	for n := range g.nodes {
		if s, ok := n.(*SourceNode); ok {
			out = append(out, s)
		}
	}
	return out
}

// ReachesFrom reports whether dst is reachable from src by following
// downstream connections.
func (g *Graph) ReachesFrom(src, dst Node) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	seen := make(map[Node]bool)
	cur := src
	for cur != nil && !seen[cur] {
		if cur == dst {
			return true
		}
		seen[cur] = true
		next := Node(nil)
		for d, s := range g.upstream {
			if s == cur {
				next = d
				break
			}
		}
		cur = next
	}
	return false
}
