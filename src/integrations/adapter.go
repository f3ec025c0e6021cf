package integrations

import (
	"calbook/src/models"
	"calbook/src/types"
	"context"
	"log"
	"sync"
	"time"
)

// Artifact is the externally created meeting a successful adapter call
// hands back. It becomes a BookingReference once the ledger stores it.
type Artifact struct {
	MeetingID       string
	MeetingPassword string
	MeetingURL      string
}

// Adapter is the uniform contract every calendar/video provider satisfies.
// Implementations own their credential refresh; callers never see tokens.
type Adapter interface {
	Kind() types.ProviderKind
	CreateMeeting(ctx context.Context, event *types.MeetingEvent) (*Artifact, error)
	UpdateMeeting(ctx context.Context, ref *models.BookingReference, event *types.MeetingEvent) (*Artifact, error)
	DeleteMeeting(ctx context.Context, ref *models.BookingReference) error
	ListBusy(ctx context.Context, dateFrom, dateTo time.Time) ([]types.BusyInterval, error)
}

type Factory func(cred *models.Credential) Adapter

// Registry maps provider kinds to adapter factories. It is populated once at
// startup; resolution after that is a plain map lookup.
type Registry struct {
	mu        sync.RWMutex
	factories map[types.ProviderKind]Factory
}

func NewRegistry() *Registry {
	return &Registry{factories: make(map[types.ProviderKind]Factory)}
}

func (r *Registry) Register(kind types.ProviderKind, f Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[kind] = f
}

// Resolve returns an adapter bound to the credential, or nil when the
// provider kind has no registered factory (e.g. a payment credential).
func (r *Registry) Resolve(cred *models.Credential) Adapter {
	r.mu.RLock()
	f, ok := r.factories[cred.Type]
	r.mu.RUnlock()
	if !ok {
		return nil
	}
	return f(cred)
}

// ForCredentials resolves every credential that has a registered adapter,
// preserving the credential order.
func (r *Registry) ForCredentials(creds []*models.Credential) []Adapter {
	adapters := make([]Adapter, 0, len(creds))
	for _, cred := range creds {
		if a := r.Resolve(cred); a != nil {
			adapters = append(adapters, a)
		}
	}
	return adapters
}

var defaultRegistry = NewRegistry()

func DefaultRegistry() *Registry {
	return defaultRegistry
}

// RegisterDefaults wires the concrete providers into the default registry.
// Called once from boot.
func RegisterDefaults() {
	defaultRegistry.Register(types.PROVIDER_GOOGLE_CALENDAR, func(cred *models.Credential) Adapter {
		return NewGoogleCalendarAdapter(cred)
	})
	defaultRegistry.Register(types.PROVIDER_ZOOM_VIDEO, func(cred *models.Credential) Adapter {
		return NewZoomVideoAdapter(cred)
	})
	log.Println("Registered provider adapters: google_calendar, zoom_video")
}
