package integrations

import (
	"bytes"
	"calbook/src/models"
	"calbook/src/types"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"golang.org/x/oauth2"
)

const (
	zoomAPIBaseURL  = "https://api.zoom.us/v2"
	zoomTokenURL    = "https://zoom.us/oauth/token"
	zoomMeetingType = 2 // scheduled meeting
)

type ZoomVideoAdapter struct {
	cred   *models.Credential
	client *http.Client
}

func NewZoomVideoAdapter(cred *models.Credential) *ZoomVideoAdapter {
	return &ZoomVideoAdapter{cred: cred, client: &http.Client{Timeout: 15 * time.Second}}
}

func (a *ZoomVideoAdapter) Kind() types.ProviderKind {
	return types.PROVIDER_ZOOM_VIDEO
}

// accessToken returns a usable bearer token, refreshing and persisting the
// credential when the stored one is expired.
func (a *ZoomVideoAdapter) accessToken(ctx context.Context) (string, error) {
	tok, err := decryptToken(a.cred)
	if err != nil {
		return "", NewProviderError(a.Kind(), ErrAuthFailed, err)
	}
	if tok.Valid() {
		return tok.AccessToken, nil
	}

	release := acquireRefreshSlot()
	defer release()

	form := url.Values{
		"grant_type":    {"refresh_token"},
		"refresh_token": {tok.RefreshToken},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, zoomTokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", NewProviderError(a.Kind(), ErrUnavailable, err)
	}
	req.SetBasicAuth(os.Getenv("ZOOM_CLIENT_ID"), os.Getenv("ZOOM_CLIENT_SECRET"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := a.client.Do(req)
	if err != nil {
		return "", NewProviderError(a.Kind(), ErrUnavailable, err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return "", NewProviderError(a.Kind(), ErrAuthFailed, fmt.Errorf("token refresh returned status %d", resp.StatusCode))
	}

	parsed := gjson.ParseBytes(body)
	fresh := &oauth2.Token{
		AccessToken:  parsed.Get("access_token").String(),
		RefreshToken: parsed.Get("refresh_token").String(),
		TokenType:    parsed.Get("token_type").String(),
		Expiry:       time.Now().Add(time.Duration(parsed.Get("expires_in").Int()) * time.Second),
	}
	if fresh.AccessToken == "" {
		return "", NewProviderError(a.Kind(), ErrAuthFailed, fmt.Errorf("token refresh response missing access_token"))
	}
	persistToken(a.cred, fresh)
	return fresh.AccessToken, nil
}

func (a *ZoomVideoAdapter) do(ctx context.Context, method, path string, payload any) (gjson.Result, error) {
	token, err := a.accessToken(ctx)
	if err != nil {
		return gjson.Result{}, err
	}
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return gjson.Result{}, NewProviderError(a.Kind(), ErrRejected, err)
		}
		body = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, zoomAPIBaseURL+path, body)
	if err != nil {
		return gjson.Result{}, NewProviderError(a.Kind(), ErrUnavailable, err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return gjson.Result{}, NewProviderError(a.Kind(), ErrUnavailable, err)
	}
	defer resp.Body.Close()
	raw, _ := io.ReadAll(resp.Body)

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return gjson.Result{}, NewProviderError(a.Kind(), ErrAuthFailed, fmt.Errorf("%s %s: status %d", method, path, resp.StatusCode))
	case resp.StatusCode == http.StatusTooManyRequests:
		return gjson.Result{}, NewProviderError(a.Kind(), ErrRateLimited, fmt.Errorf("%s %s: status %d", method, path, resp.StatusCode))
	case resp.StatusCode >= http.StatusInternalServerError:
		return gjson.Result{}, NewProviderError(a.Kind(), ErrUnavailable, fmt.Errorf("%s %s: status %d", method, path, resp.StatusCode))
	case resp.StatusCode >= http.StatusBadRequest:
		return gjson.Result{}, NewProviderError(a.Kind(), ErrRejected, fmt.Errorf("%s %s: status %d: %s", method, path, resp.StatusCode, string(raw)))
	}
	return gjson.ParseBytes(raw), nil
}

func (a *ZoomVideoAdapter) translateEvent(event *types.MeetingEvent) map[string]any {
	timeZone := event.Organizer.TimeZone
	if len(event.Attendees) > 0 {
		timeZone = event.Attendees[0].TimeZone
	}
	return map[string]any{
		"topic":      event.Title,
		"type":       zoomMeetingType,
		"start_time": event.StartTime.UTC().Format(time.RFC3339),
		"duration":   int(event.EndTime.Sub(event.StartTime) / time.Minute),
		"timezone":   timeZone,
		"agenda":     event.Description,
		"settings": map[string]any{
			"host_video":        true,
			"participant_video": true,
			"join_before_host":  true,
		},
	}
}

func (a *ZoomVideoAdapter) CreateMeeting(ctx context.Context, event *types.MeetingEvent) (*Artifact, error) {
	res, err := a.do(ctx, http.MethodPost, "/users/me/meetings", a.translateEvent(event))
	if err != nil {
		return nil, err
	}
	return &Artifact{
		MeetingID:       res.Get("id").String(),
		MeetingPassword: res.Get("password").String(),
		MeetingURL:      res.Get("join_url").String(),
	}, nil
}

func (a *ZoomVideoAdapter) UpdateMeeting(ctx context.Context, ref *models.BookingReference, event *types.MeetingEvent) (*Artifact, error) {
	if _, err := a.do(ctx, http.MethodPatch, "/meetings/"+ref.MeetingID, a.translateEvent(event)); err != nil {
		return nil, err
	}
	return &Artifact{
		MeetingID:       ref.MeetingID,
		MeetingPassword: ref.MeetingPassword,
		MeetingURL:      ref.MeetingURL,
	}, nil
}

func (a *ZoomVideoAdapter) DeleteMeeting(ctx context.Context, ref *models.BookingReference) error {
	_, err := a.do(ctx, http.MethodDelete, "/meetings/"+ref.MeetingID, nil)
	return err
}

// ListBusy treats every scheduled meeting on the account as a busy interval.
func (a *ZoomVideoAdapter) ListBusy(ctx context.Context, dateFrom, dateTo time.Time) ([]types.BusyInterval, error) {
	res, err := a.do(ctx, http.MethodGet, "/users/me/meetings?type=scheduled&page_size=300", nil)
	if err != nil {
		return nil, err
	}
	var busy []types.BusyInterval
	for _, meeting := range res.Get("meetings").Array() {
		start, err := time.Parse(time.RFC3339, meeting.Get("start_time").String())
		if err != nil {
			continue
		}
		end := start.Add(time.Duration(meeting.Get("duration").Int()) * time.Minute)
		if end.Before(dateFrom) || start.After(dateTo) {
			continue
		}
		busy = append(busy, types.BusyInterval{Start: start, End: end, Source: string(a.Kind())})
	}
	return busy, nil
}
