package availability

import (
	"calbook/src/integrations"
	"calbook/src/models"
	"calbook/src/types"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type stubAdapter struct {
	kind     types.ProviderKind
	busy     []types.BusyInterval
	listErr  error
	listCall func()
}

func (s *stubAdapter) Kind() types.ProviderKind { return s.kind }
func (s *stubAdapter) CreateMeeting(ctx context.Context, event *types.MeetingEvent) (*integrations.Artifact, error) {
	return nil, nil
}
func (s *stubAdapter) UpdateMeeting(ctx context.Context, ref *models.BookingReference, event *types.MeetingEvent) (*integrations.Artifact, error) {
	return nil, nil
}
func (s *stubAdapter) DeleteMeeting(ctx context.Context, ref *models.BookingReference) error {
	return nil
}
func (s *stubAdapter) ListBusy(ctx context.Context, dateFrom, dateTo time.Time) ([]types.BusyInterval, error) {
	if s.listCall != nil {
		s.listCall()
	}
	return s.busy, s.listErr
}

func registryWith(t *testing.T, adapters map[types.ProviderKind]*stubAdapter) *integrations.Registry {
	t.Helper()
	registry := integrations.NewRegistry()
	for kind, adapter := range adapters {
		a := adapter
		registry.Register(kind, func(cred *models.Credential) integrations.Adapter { return a })
	}
	return registry
}

func TestAggregateBusyMergesProviders(t *testing.T) {
	base := time.Date(2026, 9, 7, 9, 0, 0, 0, time.UTC)
	registry := registryWith(t, map[types.ProviderKind]*stubAdapter{
		"cal_stub": {kind: "cal_stub", busy: []types.BusyInterval{{Start: base, End: base.Add(time.Hour), Source: "cal_stub"}}},
		"vid_stub": {kind: "vid_stub", busy: []types.BusyInterval{{Start: base.Add(2 * time.Hour), End: base.Add(3 * time.Hour), Source: "vid_stub"}}},
	})
	host := &models.User{
		ID: 1,
		Credentials: []*models.Credential{
			{ID: 1, Type: "cal_stub"},
			{ID: 2, Type: "vid_stub"},
		},
	}

	busy, degradations := AggregateBusy(context.Background(), registry, []*models.User{host}, base, base.Add(8*time.Hour))

	assert.Empty(t, degradations)
	assert.Len(t, busy[1], 2)
}

func TestAggregateBusyAppliesBuffer(t *testing.T) {
	base := time.Date(2026, 9, 7, 9, 0, 0, 0, time.UTC)
	registry := registryWith(t, map[types.ProviderKind]*stubAdapter{
		"cal_stub": {kind: "cal_stub", busy: []types.BusyInterval{{Start: base, End: base.Add(time.Hour)}}},
	})
	host := &models.User{
		ID:          7,
		BufferTime:  15,
		Credentials: []*models.Credential{{ID: 1, Type: "cal_stub"}},
	}

	busy, _ := AggregateBusy(context.Background(), registry, []*models.User{host}, base, base.Add(8*time.Hour))

	assert.Equal(t, base.Add(-15*time.Minute), busy[7][0].Start)
	assert.Equal(t, base.Add(75*time.Minute), busy[7][0].End)
}

func TestAggregateBusyDegradesOnProviderFailure(t *testing.T) {
	base := time.Date(2026, 9, 7, 9, 0, 0, 0, time.UTC)
	registry := registryWith(t, map[types.ProviderKind]*stubAdapter{
		"cal_stub": {kind: "cal_stub", busy: []types.BusyInterval{{Start: base, End: base.Add(time.Hour)}}},
		"vid_stub": {kind: "vid_stub", listErr: errors.New("provider outage")},
	})
	host := &models.User{
		ID: 3,
		Credentials: []*models.Credential{
			{ID: 1, Type: "cal_stub"},
			{ID: 2, Type: "vid_stub"},
		},
	}

	busy, degradations := AggregateBusy(context.Background(), registry, []*models.User{host}, base, base.Add(8*time.Hour))

	assert.Len(t, busy[3], 1, "healthy provider still contributes")
	assert.Len(t, degradations, 1)
	assert.Equal(t, types.ProviderKind("vid_stub"), degradations[0].Provider)
	assert.Equal(t, uint(3), degradations[0].HostID)
}

func TestAggregateBusyNoProviders(t *testing.T) {
	base := time.Date(2026, 9, 7, 9, 0, 0, 0, time.UTC)
	registry := integrations.NewRegistry()
	host := &models.User{ID: 9}

	busy, degradations := AggregateBusy(context.Background(), registry, []*models.User{host}, base, base.Add(8*time.Hour))

	assert.Empty(t, degradations)
	assert.Empty(t, busy[9], "zero connected providers means unconditional availability")
}

func TestUnionBusy(t *testing.T) {
	base := time.Date(2026, 9, 7, 9, 0, 0, 0, time.UTC)
	byHost := map[uint][]types.BusyInterval{
		1: {{Start: base, End: base.Add(time.Hour)}},
		2: {{Start: base.Add(time.Hour), End: base.Add(2 * time.Hour)}},
	}

	assert.Len(t, UnionBusy(byHost), 2)
}
