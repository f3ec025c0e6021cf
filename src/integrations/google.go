package integrations

import (
	"calbook/src/models"
	"calbook/src/types"
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

const primaryCalendarID = "primary"

type GoogleCalendarAdapter struct {
	cred *models.Credential
}

func NewGoogleCalendarAdapter(cred *models.Credential) *GoogleCalendarAdapter {
	return &GoogleCalendarAdapter{cred: cred}
}

func (a *GoogleCalendarAdapter) Kind() types.ProviderKind {
	return types.PROVIDER_GOOGLE_CALENDAR
}

func googleOAuthConfig() *oauth2.Config {
	return &oauth2.Config{
		ClientID:     os.Getenv("GOOGLE_CLIENT_ID"),
		ClientSecret: os.Getenv("GOOGLE_CLIENT_SECRET"),
		Endpoint:     google.Endpoint,
		Scopes:       []string{calendar.CalendarScope},
	}
}

// service decrypts the credential, refreshing and persisting the token set
// when expired, and returns a calendar client bound to the fresh token.
func (a *GoogleCalendarAdapter) service(ctx context.Context) (*calendar.Service, error) {
	tok, err := decryptToken(a.cred)
	if err != nil {
		return nil, NewProviderError(a.Kind(), ErrAuthFailed, err)
	}
	if !tok.Valid() {
		release := acquireRefreshSlot()
		fresh, err := googleOAuthConfig().TokenSource(ctx, tok).Token()
		release()
		if err != nil {
			return nil, NewProviderError(a.Kind(), ErrAuthFailed, err)
		}
		if fresh.AccessToken != tok.AccessToken {
			persistToken(a.cred, fresh)
		}
		tok = fresh
	}
	svc, err := calendar.NewService(ctx, option.WithTokenSource(oauth2.StaticTokenSource(tok)))
	if err != nil {
		return nil, NewProviderError(a.Kind(), ErrUnavailable, err)
	}
	return svc, nil
}

func (a *GoogleCalendarAdapter) classify(err error) error {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		switch {
		case gerr.Code == http.StatusUnauthorized || gerr.Code == http.StatusForbidden:
			return NewProviderError(a.Kind(), ErrAuthFailed, err)
		case gerr.Code == http.StatusTooManyRequests:
			return NewProviderError(a.Kind(), ErrRateLimited, err)
		case gerr.Code >= http.StatusInternalServerError:
			return NewProviderError(a.Kind(), ErrUnavailable, err)
		default:
			return NewProviderError(a.Kind(), ErrRejected, err)
		}
	}
	return NewProviderError(a.Kind(), ErrUnavailable, err)
}

func (a *GoogleCalendarAdapter) translateEvent(event *types.MeetingEvent) *calendar.Event {
	attendees := make([]*calendar.EventAttendee, 0, len(event.Attendees))
	for _, p := range event.Attendees {
		attendees = append(attendees, &calendar.EventAttendee{
			DisplayName: p.Name,
			Email:       p.Email,
		})
	}
	return &calendar.Event{
		Summary:     event.Title,
		Description: event.Description,
		Location:    event.Location,
		Start: &calendar.EventDateTime{
			DateTime: event.StartTime.Format(time.RFC3339),
			TimeZone: event.Organizer.TimeZone,
		},
		End: &calendar.EventDateTime{
			DateTime: event.EndTime.Format(time.RFC3339),
			TimeZone: event.Organizer.TimeZone,
		},
		Attendees: attendees,
	}
}

func (a *GoogleCalendarAdapter) CreateMeeting(ctx context.Context, event *types.MeetingEvent) (*Artifact, error) {
	svc, err := a.service(ctx)
	if err != nil {
		return nil, err
	}
	created, err := svc.Events.Insert(primaryCalendarID, a.translateEvent(event)).Context(ctx).Do()
	if err != nil {
		return nil, a.classify(err)
	}
	return &Artifact{MeetingID: created.Id, MeetingURL: created.HtmlLink}, nil
}

func (a *GoogleCalendarAdapter) UpdateMeeting(ctx context.Context, ref *models.BookingReference, event *types.MeetingEvent) (*Artifact, error) {
	svc, err := a.service(ctx)
	if err != nil {
		return nil, err
	}
	updated, err := svc.Events.Update(primaryCalendarID, ref.MeetingID, a.translateEvent(event)).Context(ctx).Do()
	if err != nil {
		return nil, a.classify(err)
	}
	return &Artifact{MeetingID: updated.Id, MeetingURL: updated.HtmlLink}, nil
}

func (a *GoogleCalendarAdapter) DeleteMeeting(ctx context.Context, ref *models.BookingReference) error {
	svc, err := a.service(ctx)
	if err != nil {
		return err
	}
	if err := svc.Events.Delete(primaryCalendarID, ref.MeetingID).Context(ctx).Do(); err != nil {
		return a.classify(err)
	}
	return nil
}

// ListBusy queries the freebusy endpoint for the primary calendar. Failures
// are returned to the aggregator, which treats them as zero intervals.
func (a *GoogleCalendarAdapter) ListBusy(ctx context.Context, dateFrom, dateTo time.Time) ([]types.BusyInterval, error) {
	svc, err := a.service(ctx)
	if err != nil {
		return nil, err
	}
	resp, err := svc.Freebusy.Query(&calendar.FreeBusyRequest{
		TimeMin: dateFrom.Format(time.RFC3339),
		TimeMax: dateTo.Format(time.RFC3339),
		Items:   []*calendar.FreeBusyRequestItem{{Id: primaryCalendarID}},
	}).Context(ctx).Do()
	if err != nil {
		return nil, a.classify(err)
	}
	cal, ok := resp.Calendars[primaryCalendarID]
	if !ok {
		return nil, nil
	}
	busy := make([]types.BusyInterval, 0, len(cal.Busy))
	for _, period := range cal.Busy {
		start, err := time.Parse(time.RFC3339, period.Start)
		if err != nil {
			log.Printf("Skipping unparsable busy start %q: %s\n", period.Start, err.Error())
			continue
		}
		end, err := time.Parse(time.RFC3339, period.End)
		if err != nil {
			log.Printf("Skipping unparsable busy end %q: %s\n", period.End, err.Error())
			continue
		}
		busy = append(busy, types.BusyInterval{Start: start, End: end, Source: string(a.Kind())})
	}
	return busy, nil
}
