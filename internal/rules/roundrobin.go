package rules

// SelectRoundRobin returns the member with the fewest open tickets. Ties go
// to the member who joined first. An empty member list yields none.
func SelectRoundRobin(members []string, openCounts map[string]int) (string, bool) {
	if len(members) == 0 {
		return "", false
	}
	best := members[0]
	bestCount := openCounts[best]
	for _, id := range members[1:] {
		if c := openCounts[id]; c < bestCount {
			best, bestCount = id, c
		}
	}
	return best, true
}
