package rules

import "github.com/spec-kit/servicedesk/internal/domain"

// Directory is the team and workload snapshot used to dereference team
// based targets.
type Directory struct {
	// Teams by ID.
	Teams map[string]domain.Team
	// Members maps a team ID to its member user IDs in join order.
	Members map[string][]string
	// OpenCounts maps a user ID to the number of load-bearing tickets
	// currently assigned to them. Missing users count as zero.
	OpenCounts map[string]int
}

// NewDirectory builds a Directory from teams and their memberships.
// Memberships must already be in join order.
func NewDirectory(teams []domain.Team, members []domain.TeamMember, openCounts map[string]int) Directory {
	dir := Directory{
		Teams:      make(map[string]domain.Team, len(teams)),
		Members:    make(map[string][]string, len(teams)),
		OpenCounts: openCounts,
	}
	for _, team := range teams {
		dir.Teams[team.ID] = team
	}
	for _, m := range members {
		if _, ok := dir.Teams[m.TeamID]; !ok {
			continue
		}
		dir.Members[m.TeamID] = append(dir.Members[m.TeamID], m.UserID)
	}
	if dir.OpenCounts == nil {
		dir.OpenCounts = map[string]int{}
	}
	return dir
}
