package kb

import (
	"fmt"
	"math"
)

// ResolveDrillTool picks the drill for a hole diameter. The key drill_<N>mm for
// the truncated diameter wins outright; otherwise the drill with the closest
// diameter is chosen. On equal distance the smaller drill wins, then the
// lexicographically smaller key, so the result never depends on table order.
func (k *KnowledgeBase) ResolveDrillTool(diameter float64) (string, Tool, error) {
	preferred := fmt.Sprintf("drill_%dmm", int(diameter))
	if t, ok := k.tools[preferred]; ok {
		return preferred, t, nil
	}

	var (
		bestKey  string
		bestTool Tool
		bestDist = math.Inf(1)
		found    bool
	)
	for _, key := range k.toolKeys {
		t := k.tools[key]
		if !t.IsDrill() {
			continue
		}
		dist := math.Abs(*t.DiameterMM - diameter)
		switch {
		case !found, dist < bestDist:
		case dist == bestDist && *t.DiameterMM < *bestTool.DiameterMM:
		default:
			continue
		}
		bestKey, bestTool, bestDist, found = key, t, dist, true
	}

	if !found {
		return "", Tool{}, ErrNoDrillToolsAvailable
	}
	return bestKey, bestTool, nil
}
