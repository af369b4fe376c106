package node

import (
	"fmt"
	"sort"
	"sync"
)

// Manager tracks all active nodes and enforces the max-nodes limit.
type Manager struct {
	mu       sync.RWMutex
	nodes    map[int]*Node
	maxNodes int
}

// NewManager creates a new node manager.
func NewManager(maxNodes int) *Manager {
	return &Manager{
		nodes:    make(map[int]*Node),
		maxNodes: maxNodes,
	}
}

// Acquire reserves the lowest free node ID if capacity allows.
// Returns the node ID and true, or 0 and false if full.
func (m *Manager) Acquire() (int, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.nodes) >= m.maxNodes {
		return 0, false
	}
	for id := 1; ; id++ {
		if _, taken := m.nodes[id]; !taken {
			m.nodes[id] = nil
			return id, true
		}
	}
}

// Add registers a node under its reserved ID.
func (m *Manager) Add(n *Node) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nodes[n.ID] = n
}

// Remove frees a node ID.
func (m *Manager) Remove(id int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.nodes, id)
}

// Get returns a node by ID, or nil if not found.
func (m *Manager) Get(id int) *Node {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.nodes[id]
}

// Count returns the number of reserved and active nodes.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.nodes)
}

// List returns a snapshot of all active nodes ordered by ID.
func (m *Manager) List() []*Node {
	m.mu.RLock()
	defer m.mu.RUnlock()
	nodes := make([]*Node, 0, len(m.nodes))
	for _, n := range m.nodes {
		if n != nil {
			nodes = append(nodes, n)
		}
	}
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].ID < nodes[j].ID })
	return nodes
}

// NodeInfo holds summary information about a connected node.
type NodeInfo struct {
	ID       int
	UserName string
	Remote   string
}

// ListInfo returns summary info for all active nodes.
func (m *Manager) ListInfo() []NodeInfo {
	nodes := m.List()
	info := make([]NodeInfo, 0, len(nodes))
	for _, n := range nodes {
		_, name := n.User()
		if name == "" {
			name = "(logging in)"
		}
		info = append(info, NodeInfo{ID: n.ID, UserName: name, Remote: n.Remote})
	}
	return info
}

// Broadcast prints a notice on every connected node.
func (m *Manager) Broadcast(msg string) {
	for _, n := range m.List() {
		n.Term.Notify("*** " + msg)
	}
}

// SendTo prints a notice on one node.
func (m *Manager) SendTo(nodeID int, msg string) error {
	n := m.Get(nodeID)
	if n == nil {
		return fmt.Errorf("node %d not found", nodeID)
	}
	return n.Term.Notify("*** " + msg)
}

// DisconnectAll closes every node.
func (m *Manager) DisconnectAll() {
	for _, n := range m.List() {
		n.Disconnect()
	}
}
