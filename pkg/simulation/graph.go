package simulation

import "github.com/kharnos-labs/overlaysim/internal/overlay"

// Edge is one directed adjacency entry in a graph snapshot: from is
// connected to to, from from's own point of view (the Connection from
// and to's bandwidth/latency may differ between directions, see
// overlay.Connect).
type Edge struct {
	From overlay.PeerID
	To   overlay.PeerID
}

// GetGraph returns a snapshot of every current connection, one Edge per
// directed side of each edge. When includeBootstrap is false, edges
// touching a peer of type "bootstrap" on either end are omitted —
// spec.md's original visualization tooling (out of scope per
// SPEC_FULL.md's Non-goals) filtered bootstrap nodes the same way so a
// rendered graph shows only the organic overlay.
func (s *Simulation) GetGraph(includeBootstrap bool) []Edge {
	edges := make([]Edge, 0)
	for id, p := range s.peers {
		if !includeBootstrap && p.Type == "bootstrap" {
			continue
		}
		for _, nid := range p.Connections() {
			if !includeBootstrap {
				if neighbor, ok := s.peers[nid]; ok && neighbor.Type == "bootstrap" {
					continue
				}
			}
			edges = append(edges, Edge{From: id, To: nid})
		}
	}
	return edges
}

// Degrees returns the current connection count of every peer, keyed by
// id — the raw data a caller would otherwise have to loop GetGraph to
// derive.
func (s *Simulation) Degrees() map[overlay.PeerID]int {
	out := make(map[overlay.PeerID]int, len(s.peers))
	for id, p := range s.peers {
		out[id] = p.Degree()
	}
	return out
}
