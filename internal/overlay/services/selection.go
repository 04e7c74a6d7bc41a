package services

import (
	"sort"

	"github.com/kharnos-labs/overlaysim/internal/overlay"
)

// Selector picks up to n peers out of candidates, in preference
// order — supplemented from p2psimpy's selection.py, whose Selection
// classes let a connection manager or producer choose *which*
// neighbors to favor instead of always sampling uniformly. Used
// optionally by P2PConnectionManager to order outbound candidates.
type Selector interface {
	Select(ctx *overlay.Context, candidates []overlay.PeerID, n int) []overlay.PeerID
}

// UniformSelector shuffles candidates with the simulation's RNG and
// takes the first n — a uniform random pick, unlike the ascending-id
// order P2PConnectionManager uses when no Selector is configured.
type UniformSelector struct{}

func (UniformSelector) Select(ctx *overlay.Context, candidates []overlay.PeerID, n int) []overlay.PeerID {
	out := append([]overlay.PeerID{}, candidates...)
	ctx.Net.Rand().Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	if n > len(out) {
		n = len(out)
	}
	return out[:n]
}

// LatencyAwareSelector orders candidates by the latency oracle's
// estimate between this peer's location and each candidate's, closest
// first (or farthest first, if PreferFar is set) — p2psimpy's
// distance-biased selection, ported from its locality-aware variant.
type LatencyAwareSelector struct {
	PreferFar bool
}

func (s LatencyAwareSelector) Select(ctx *overlay.Context, candidates []overlay.PeerID, n int) []overlay.PeerID {
	type scored struct {
		id  overlay.PeerID
		lat int64
	}
	scoredList := make([]scored, 0, len(candidates))
	for _, id := range candidates {
		neighbor, ok := ctx.Net.Peer(id)
		if !ok {
			continue
		}
		lat, err := ctx.Net.Latency(ctx.Peer.Location, neighbor.Location)
		if err != nil {
			continue
		}
		scoredList = append(scoredList, scored{id: id, lat: int64(lat)})
	}
	sort.Slice(scoredList, func(i, j int) bool {
		if s.PreferFar {
			return scoredList[i].lat > scoredList[j].lat
		}
		return scoredList[i].lat < scoredList[j].lat
	})
	if n > len(scoredList) {
		n = len(scoredList)
	}
	out := make([]overlay.PeerID, n)
	for i := 0; i < n; i++ {
		out[i] = scoredList[i].id
	}
	return out
}
