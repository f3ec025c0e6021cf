package events

import (
	"calbook/src/integrations"
	"calbook/src/models"
	"calbook/src/types"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type stubAdapter struct {
	kind       types.ProviderKind
	artifact   *integrations.Artifact
	err        error
	deleted    []string
	deleteErr  error
	updateSeen []string
}

func (s *stubAdapter) Kind() types.ProviderKind { return s.kind }
func (s *stubAdapter) CreateMeeting(ctx context.Context, event *types.MeetingEvent) (*integrations.Artifact, error) {
	return s.artifact, s.err
}
func (s *stubAdapter) UpdateMeeting(ctx context.Context, ref *models.BookingReference, event *types.MeetingEvent) (*integrations.Artifact, error) {
	s.updateSeen = append(s.updateSeen, ref.MeetingID)
	return s.artifact, s.err
}
func (s *stubAdapter) DeleteMeeting(ctx context.Context, ref *models.BookingReference) error {
	s.deleted = append(s.deleted, ref.MeetingID)
	return s.deleteErr
}
func (s *stubAdapter) ListBusy(ctx context.Context, dateFrom, dateTo time.Time) ([]types.BusyInterval, error) {
	return nil, nil
}

func managerWith(adapters ...*stubAdapter) *Manager {
	registry := integrations.NewRegistry()
	creds := make([]*models.Credential, 0, len(adapters))
	for i, adapter := range adapters {
		a := adapter
		registry.Register(a.kind, func(cred *models.Credential) integrations.Adapter { return a })
		creds = append(creds, &models.Credential{ID: uint(i + 1), Type: a.kind})
	}
	return NewManager(registry, creds)
}

func event() *types.MeetingEvent {
	start := time.Date(2026, 9, 14, 9, 0, 0, 0, time.UTC)
	return &types.MeetingEvent{
		Title:     "Intro Call",
		StartTime: start,
		EndTime:   start.Add(30 * time.Minute),
	}
}

func TestCreatePartialFailure(t *testing.T) {
	calendarAdapter := &stubAdapter{
		kind: "cal_stub",
		err:  integrations.NewProviderError("cal_stub", integrations.ErrUnavailable, assert.AnError),
	}
	videoAdapter := &stubAdapter{
		kind:     "vid_stub",
		artifact: &integrations.Artifact{MeetingID: "m-1", MeetingURL: "https://video.example/m-1"},
	}
	manager := managerWith(calendarAdapter, videoAdapter)

	out := manager.Create(context.Background(), event())

	assert.Len(t, out.Results, 2)
	assert.False(t, out.Results[0].Success)
	assert.Equal(t, "unavailable", out.Results[0].Error)
	assert.True(t, out.Results[1].Success)
	assert.Len(t, out.References, 1, "only the successful provider yields a reference")
	assert.Equal(t, types.ProviderKind("vid_stub"), out.References[0].Type)
	assert.True(t, out.Succeeded())
	assert.False(t, out.AllFailed())
}

func TestCreateZeroAdapters(t *testing.T) {
	manager := managerWith()

	out := manager.Create(context.Background(), event())

	assert.Empty(t, out.Results)
	assert.Empty(t, out.References)
	assert.False(t, out.AllFailed(), "zero connected providers is not an integration failure")
}

func TestCreateAllFailed(t *testing.T) {
	manager := managerWith(&stubAdapter{
		kind: "cal_stub",
		err:  integrations.NewProviderError("cal_stub", integrations.ErrAuthFailed, assert.AnError),
	})

	out := manager.Create(context.Background(), event())

	assert.True(t, out.AllFailed())
	assert.Equal(t, "auth_failed", out.Results[0].Error)
}

func TestUpdateSkipsDisconnectedReference(t *testing.T) {
	videoAdapter := &stubAdapter{
		kind:     "vid_stub",
		artifact: &integrations.Artifact{MeetingID: "m-2", MeetingURL: "https://video.example/m-2"},
	}
	manager := managerWith(videoAdapter)
	refs := []*models.BookingReference{
		{Type: "vid_stub", MeetingID: "m-1"},
		{Type: "gone_provider", MeetingID: "x-9"},
	}

	out := manager.Update(context.Background(), event(), refs)

	assert.Len(t, out.Results, 1, "disconnected reference is skipped, not failed")
	assert.True(t, out.Results[0].Success)
	assert.Equal(t, []string{"m-1"}, videoAdapter.updateSeen)
	assert.Len(t, out.References, 2, "stale reference is carried forward for a later reconnect")
}

func TestDeleteLogsFailuresAndContinues(t *testing.T) {
	failing := &stubAdapter{kind: "cal_stub", deleteErr: assert.AnError}
	healthy := &stubAdapter{kind: "vid_stub"}
	manager := managerWith(failing, healthy)
	refs := []*models.BookingReference{
		{Type: "cal_stub", MeetingID: "c-1"},
		{Type: "vid_stub", MeetingID: "v-1"},
	}

	results := manager.Delete(context.Background(), refs)

	assert.Len(t, results, 2)
	assert.False(t, results[0].Success)
	assert.True(t, results[1].Success)
	assert.Equal(t, []string{"v-1"}, healthy.deleted)
}
