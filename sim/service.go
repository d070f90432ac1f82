package sim

import "math/rand"

// Service catalog generation constants. Processing time is currently a
// point distribution; deadlines widen with topology depth so deeper
// topologies get looser deadlines by construction.
const (
	serviceTimeMin = 0.10
	serviceTimeMax = 0.10

	// Delay between a receiver and its access router.
	receiverLinkDelay = 0.001
)

// Service describes one service type of the population: the computation
// time to process a request, and the total time budget (network plus
// computation) within which a request must complete for acceptable QoS.
// Immutable once generated.
type Service struct {
	ServiceTime float64
	Deadline    float64
	Labels      []string
}

// GenerateServices builds the service catalog deterministically from a
// seed. Deadline bounds derive from the topology: the minimum covers the
// receiver access round trip plus the worst-case service time, the maximum
// additionally covers a round trip across the full topology depth. When the
// topology carries no depth attribute, the router and source population
// stands in for depth.
func GenerateServices(n int, topo *Topology, seed int64) []*Service {
	rng := rand.New(rand.NewSource(seed))

	delayMin := 2*topo.Graph.ReceiverAccessDelay + serviceTimeMax
	depth := topo.Graph.Depth
	if depth == 0 {
		depth = len(topo.NodesWithRole(RoleRouter)) + len(topo.NodesWithRole(RoleSource))
	}
	delayMax := delayMin + 2*float64(depth)*topo.Graph.LinkDelay + 0.005

	services := make([]*Service, 0, n)
	for i := 0; i < n; i++ {
		serviceTime := serviceTimeMin + rng.Float64()*(serviceTimeMax-serviceTimeMin)
		deadline := delayMin + rng.Float64()*(delayMax-delayMin) + 2*receiverLinkDelay
		services = append(services, &Service{ServiceTime: serviceTime, Deadline: deadline})
	}
	return services
}
