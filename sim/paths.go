package sim

import (
	"container/heap"
	"sort"
)

// PathMap holds one shortest path per ordered node pair, origin and
// destination included.
type PathMap map[NodeID]map[NodeID][]NodeID

type pathQueueItem struct {
	node NodeID
	dist float64
	seq  uint64
}

type pathQueue []pathQueueItem

func (q pathQueue) Len() int { return len(q) }
func (q pathQueue) Less(i, j int) bool {
	if q[i].dist != q[j].dist {
		return q[i].dist < q[j].dist
	}
	return q[i].seq < q[j].seq
}
func (q pathQueue) Swap(i, j int) { q[i], q[j] = q[j], q[i] }

func (q *pathQueue) Push(x any) { *q = append(*q, x.(pathQueueItem)) }

func (q *pathQueue) Pop() any {
	old := *q
	n := len(old)
	item := old[n-1]
	*q = old[0 : n-1]
	return item
}

// dijkstraFrom computes delay-weighted shortest paths from src over the
// current links. Neighbors are scanned in sorted order and the priority
// queue breaks distance ties by push order, so equal-cost alternatives
// resolve the same way on every run. Ranking queries depend on that.
func dijkstraFrom(topo *Topology, src NodeID, delays map[LinkKey]float64) map[NodeID][]NodeID {
	dist := map[NodeID]float64{src: 0}
	prev := map[NodeID]NodeID{}
	visited := map[NodeID]bool{}

	var seq uint64
	pq := &pathQueue{}
	heap.Push(pq, pathQueueItem{node: src, dist: 0})
	for pq.Len() > 0 {
		item := heap.Pop(pq).(pathQueueItem)
		u := item.node
		if visited[u] {
			continue
		}
		visited[u] = true
		for _, v := range topo.Neighbors(u) {
			w, ok := delays[LinkKey{u, v}]
			if !ok {
				continue
			}
			alt := dist[u] + w
			if d, seen := dist[v]; !seen || alt < d {
				dist[v] = alt
				prev[v] = u
				seq++
				heap.Push(pq, pathQueueItem{node: v, dist: alt, seq: seq})
			}
		}
	}

	paths := make(map[NodeID][]NodeID, len(dist))
	for node := range dist {
		var rev []NodeID
		for at := node; ; {
			rev = append(rev, at)
			if at == src {
				break
			}
			at = prev[at]
		}
		path := make([]NodeID, len(rev))
		for i, n := range rev {
			path[len(rev)-1-i] = n
		}
		paths[node] = path
	}
	return paths
}

// AllPairsShortestPaths computes delay-weighted shortest paths between all
// reachable node pairs and symmetrizes the result.
func AllPairsShortestPaths(topo *Topology, delays map[LinkKey]float64) PathMap {
	paths := make(PathMap, len(topo.Nodes))
	for _, src := range topo.NodeIDs() {
		paths[src] = dijkstraFrom(topo, src, delays)
	}
	return SymmetrifyPaths(paths)
}

// SymmetrifyPaths edits the path map in place so that for every pair,
// path(u,v) is the reverse of path(v,u). Pairs are visited in sorted order
// and the path computed for the lexically smaller origin wins, making the
// outcome independent of map iteration.
func SymmetrifyPaths(paths PathMap) PathMap {
	origins := make([]NodeID, 0, len(paths))
	for u := range paths {
		origins = append(origins, u)
	}
	sortNodeIDs(origins)
	for _, u := range origins {
		for _, v := range origins {
			if v <= u {
				continue
			}
			forward, ok := paths[u][v]
			if !ok {
				continue
			}
			rev := make([]NodeID, len(forward))
			for i, n := range forward {
				rev[len(forward)-1-i] = n
			}
			if paths[v] == nil {
				paths[v] = make(map[NodeID][]NodeID)
			}
			paths[v][u] = rev
		}
	}
	return paths
}

func sortNodeIDs(ids []NodeID) {
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
}
