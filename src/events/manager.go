package events

import (
	"calbook/src/integrations"
	"calbook/src/models"
	"calbook/src/types"
	"context"
	"errors"
	"log"
)

// Result is the outcome of one adapter call. The booking itself never fails
// on a Result; callers report the list alongside the persisted record.
type Result struct {
	Provider types.ProviderKind     `json:"provider"`
	Success  bool                   `json:"success"`
	Error    string                 `json:"error,omitempty"`
	Artifact *integrations.Artifact `json:"-"`
}

// CreateUpdateResult aggregates per-provider outcomes plus the references
// the ledger should store for successful artifacts.
type CreateUpdateResult struct {
	Results    []Result
	References []*models.BookingReference
}

// Succeeded reports whether at least one provider call went through.
func (r *CreateUpdateResult) Succeeded() bool {
	for _, res := range r.Results {
		if res.Success {
			return true
		}
	}
	return false
}

// AllFailed reports total integration failure: results exist and none
// succeeded. Zero adapters is not a failure.
func (r *CreateUpdateResult) AllFailed() bool {
	return len(r.Results) > 0 && !r.Succeeded()
}

// Manager drives the externally visible artifacts of one booking across
// every connected provider of the assigned hosts. Adapter failures are
// recorded per provider and never abort the ledger record; third-party
// sync is best-effort and eventually consistent.
type Manager struct {
	adapters []integrations.Adapter
}

func NewManager(registry *integrations.Registry, creds []*models.Credential) *Manager {
	return &Manager{adapters: registry.ForCredentials(creds)}
}

func providerErrorString(err error) string {
	var perr *integrations.ProviderError
	if errors.As(err, &perr) {
		return string(perr.Code)
	}
	return err.Error()
}

// Create runs every adapter independently. Each success becomes a
// BookingReference; each failure becomes a failed Result and nothing more.
func (m *Manager) Create(ctx context.Context, event *types.MeetingEvent) *CreateUpdateResult {
	out := &CreateUpdateResult{}
	for _, adapter := range m.adapters {
		artifact, err := adapter.CreateMeeting(ctx, event)
		if err != nil {
			log.Printf("createMeeting failed for %s: %s\n", adapter.Kind(), err.Error())
			out.Results = append(out.Results, Result{Provider: adapter.Kind(), Error: providerErrorString(err)})
			continue
		}
		out.Results = append(out.Results, Result{Provider: adapter.Kind(), Success: true, Artifact: artifact})
		out.References = append(out.References, &models.BookingReference{
			Type:            adapter.Kind(),
			MeetingID:       artifact.MeetingID,
			MeetingPassword: artifact.MeetingPassword,
			MeetingURL:      artifact.MeetingURL,
		})
	}
	return out
}

// CreateMissing runs only the adapters that have no stored reference yet.
// The reconciliation job uses it to backfill artifacts that failed at
// booking time without duplicating the ones that succeeded.
func (m *Manager) CreateMissing(ctx context.Context, event *types.MeetingEvent, existing []*models.BookingReference) *CreateUpdateResult {
	have := make(map[types.ProviderKind]bool, len(existing))
	for _, ref := range existing {
		have[ref.Type] = true
	}
	out := &CreateUpdateResult{}
	for _, adapter := range m.adapters {
		if have[adapter.Kind()] {
			continue
		}
		artifact, err := adapter.CreateMeeting(ctx, event)
		if err != nil {
			log.Printf("createMeeting backfill failed for %s: %s\n", adapter.Kind(), err.Error())
			out.Results = append(out.Results, Result{Provider: adapter.Kind(), Error: providerErrorString(err)})
			continue
		}
		out.Results = append(out.Results, Result{Provider: adapter.Kind(), Success: true, Artifact: artifact})
		out.References = append(out.References, &models.BookingReference{
			Type:            adapter.Kind(),
			MeetingID:       artifact.MeetingID,
			MeetingPassword: artifact.MeetingPassword,
			MeetingURL:      artifact.MeetingURL,
		})
	}
	return out
}

// Update replays against previously stored references. A reference whose
// provider is no longer connected is skipped, not failed.
func (m *Manager) Update(ctx context.Context, event *types.MeetingEvent, refs []*models.BookingReference) *CreateUpdateResult {
	byKind := make(map[types.ProviderKind]integrations.Adapter, len(m.adapters))
	for _, adapter := range m.adapters {
		byKind[adapter.Kind()] = adapter
	}

	out := &CreateUpdateResult{}
	for _, ref := range refs {
		adapter, ok := byKind[ref.Type]
		if !ok {
			log.Printf("No adapter connected for stored reference %s, skipping\n", ref.Type)
			out.References = append(out.References, ref)
			continue
		}
		artifact, err := adapter.UpdateMeeting(ctx, ref, event)
		if err != nil {
			log.Printf("updateMeeting failed for %s: %s\n", adapter.Kind(), err.Error())
			out.Results = append(out.Results, Result{Provider: adapter.Kind(), Error: providerErrorString(err)})
			out.References = append(out.References, ref)
			continue
		}
		out.Results = append(out.Results, Result{Provider: adapter.Kind(), Success: true, Artifact: artifact})
		out.References = append(out.References, &models.BookingReference{
			BookingID:       ref.BookingID,
			Type:            ref.Type,
			MeetingID:       artifact.MeetingID,
			MeetingPassword: artifact.MeetingPassword,
			MeetingURL:      artifact.MeetingURL,
		})
	}
	return out
}

// Delete tears down every stored artifact. Provider failures are logged,
// never escalated; cancellation of the ledger record always proceeds.
func (m *Manager) Delete(ctx context.Context, refs []*models.BookingReference) []Result {
	byKind := make(map[types.ProviderKind]integrations.Adapter, len(m.adapters))
	for _, adapter := range m.adapters {
		byKind[adapter.Kind()] = adapter
	}

	var results []Result
	for _, ref := range refs {
		adapter, ok := byKind[ref.Type]
		if !ok {
			log.Printf("No adapter connected for stored reference %s, skipping delete\n", ref.Type)
			continue
		}
		if err := adapter.DeleteMeeting(ctx, ref); err != nil {
			log.Printf("deleteMeeting failed for %s: %s\n", adapter.Kind(), err.Error())
			results = append(results, Result{Provider: adapter.Kind(), Error: providerErrorString(err)})
			continue
		}
		results = append(results, Result{Provider: adapter.Kind(), Success: true})
	}
	return results
}
