package availability

import (
	"calbook/src/integrations"
	"calbook/src/models"
	"calbook/src/types"
	"context"
	"log"
	"sync"
	"time"
)

// A single slow provider must not hold up the whole aggregation; past this
// deadline its contribution degrades to zero intervals.
const providerQueryTimeout = 10 * time.Second

// Busy-time queries fan out per host and credential, bounded to keep
// provider rate limits honest.
const maxConcurrentQueries = 5

// Degradation records a provider whose busy times could not be fetched.
// The aggregation proceeds without it; callers log or count these.
type Degradation struct {
	HostID   uint
	Provider types.ProviderKind
	Err      error
}

// AggregateBusy fans out to every connected provider of every host and
// merges the results per host, padded by that host's buffer minutes.
// A provider failure degrades availability accuracy, never the request:
// the failing provider simply contributes nothing.
func AggregateBusy(ctx context.Context, registry *integrations.Registry, hosts []*models.User, dateFrom, dateTo time.Time) (map[uint][]types.BusyInterval, []Degradation) {
	busyByHost := make(map[uint][]types.BusyInterval, len(hosts))
	var degradations []Degradation

	var mu sync.Mutex
	var wg sync.WaitGroup
	sem := make(chan struct{}, maxConcurrentQueries)

	for _, host := range hosts {
		busyByHost[host.ID] = []types.BusyInterval{}
		for _, cred := range host.Credentials {
			adapter := registry.Resolve(cred)
			if adapter == nil {
				continue
			}
			wg.Add(1)
			go func(hostID uint, adapter integrations.Adapter) {
				defer wg.Done()
				sem <- struct{}{}
				defer func() { <-sem }()

				queryCtx, cancel := context.WithTimeout(ctx, providerQueryTimeout)
				defer cancel()
				intervals, err := adapter.ListBusy(queryCtx, dateFrom, dateTo)
				mu.Lock()
				defer mu.Unlock()
				if err != nil {
					log.Printf("Busy query degraded for host %d provider %s: %s\n", hostID, adapter.Kind(), err.Error())
					degradations = append(degradations, Degradation{HostID: hostID, Provider: adapter.Kind(), Err: err})
					return
				}
				busyByHost[hostID] = append(busyByHost[hostID], intervals...)
			}(host.ID, adapter)
		}
	}
	wg.Wait()

	for _, host := range hosts {
		busyByHost[host.ID] = PadIntervals(busyByHost[host.ID], host.BufferTime)
	}
	return busyByHost, degradations
}

// UnionBusy flattens per-host intervals into one list, used for collective
// event types where every host must be simultaneously free.
func UnionBusy(busyByHost map[uint][]types.BusyInterval) []types.BusyInterval {
	var all []types.BusyInterval
	for _, intervals := range busyByHost {
		all = append(all, intervals...)
	}
	return all
}
