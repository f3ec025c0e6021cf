package scheduling

import (
	"calbook/src/models"
	"calbook/src/types"
	"errors"
	"sort"
)

var ErrNoEligibleHosts = errors.New("no eligible hosts for event type")

// SelectHosts picks the host(s) a booking is assigned to. Hosts must be
// passed in attach order; round-robin ties fall back to that ordering, so
// selection is deterministic for identical inputs.
//
// futureBookings maps host id to that host's count of future confirmed
// bookings. Past engagements are excluded so they do not penalize a host
// indefinitely.
func SelectHosts(schedulingType types.SchedulingType, hosts []*models.User, requestedUsernames []string, futureBookings map[uint]int) ([]*models.User, error) {
	if len(hosts) == 0 {
		return nil, ErrNoEligibleHosts
	}

	switch schedulingType {
	case types.SCHEDULING_COLLECTIVE:
		return hosts, nil

	case types.SCHEDULING_ROUND_ROBIN:
		candidates := filterByUsername(hosts, requestedUsernames)
		if len(candidates) == 0 {
			candidates = hosts
		}
		ranked := make([]*models.User, len(candidates))
		copy(ranked, candidates)
		sort.SliceStable(ranked, func(i, j int) bool {
			return futureBookings[ranked[i].ID] < futureBookings[ranked[j].ID]
		})
		return ranked[:1], nil

	default:
		return hosts[:1], nil
	}
}

func filterByUsername(hosts []*models.User, usernames []string) []*models.User {
	if len(usernames) == 0 {
		return nil
	}
	wanted := make(map[string]bool, len(usernames))
	for _, username := range usernames {
		wanted[username] = true
	}
	var filtered []*models.User
	for _, host := range hosts {
		if wanted[host.Username] {
			filtered = append(filtered, host)
		}
	}
	return filtered
}
