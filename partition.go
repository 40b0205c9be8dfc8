package webparazzi

import "github.com/ChoiSG/webparazzi/pkg/resolver"

// Partition splits resolver results into final URLs and broken targets,
// keeping the order of results within each list.
func Partition(results []resolver.Result) (reachable, broken []string) {
	reachable = make([]string, 0, len(results))
	broken = make([]string, 0)

	for _, result := range results {
		if result.Resolved {
			reachable = append(reachable, result.FinalURL)
		} else {
			broken = append(broken, result.Target)
		}
	}

	return reachable, broken
}
