package googlecalendar

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"hkulib-booker/config"
)

// ErrNoToken means the OAuth flow has not been completed yet. Visit the URL
// from AuthURL and let the status server receive the callback.
var ErrNoToken = errors.New("no Google OAuth token; authorization required")

func getConfig(cfg *config.CommonConfig) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     cfg.GoogleClientID,
		ClientSecret: cfg.GoogleClientSecret,
		RedirectURL:  cfg.GoogleRedirectURI,
		Scopes:       []string{calendar.CalendarEventsScope},
		Endpoint:     google.Endpoint,
	}
}

// Enabled reports whether Google OAuth client settings are configured.
func Enabled(cfg *config.CommonConfig) bool {
	return cfg.GoogleClientID != "" && cfg.GoogleClientSecret != ""
}

// AuthURL returns the consent page URL for the offline-access flow.
func AuthURL(cfg *config.CommonConfig, state string) string {
	return getConfig(cfg).AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce)
}

// Exchange trades an authorization code for a token and stores it in the
// configured token file.
func Exchange(ctx context.Context, cfg *config.CommonConfig, code string) error {
	tok, err := getConfig(cfg).Exchange(ctx, code)
	if err != nil {
		return fmt.Errorf("unable to retrieve token from web: %w", err)
	}
	return saveToken(cfg.GoogleTokenFile, tok)
}

func tokenFromFile(file string) (*oauth2.Token, error) {
	f, err := os.Open(file)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	tok := &oauth2.Token{}
	err = json.NewDecoder(f).Decode(tok)
	return tok, err
}

func saveToken(path string, token *oauth2.Token) error {
	log.Info().Str("path", path).Msg("Saving Google credential file")
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("unable to cache oauth token: %w", err)
	}
	defer f.Close()
	return json.NewEncoder(f).Encode(token)
}

// GetCalendarService builds a Calendar client from the stored token. The
// token source refreshes the access token as needed.
func GetCalendarService(ctx context.Context, cfg *config.CommonConfig) (*calendar.Service, error) {
	tok, err := tokenFromFile(cfg.GoogleTokenFile)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNoToken
		}
		return nil, fmt.Errorf("error reading token file: %w", err)
	}

	client := getConfig(cfg).Client(ctx, tok)
	srv, err := calendar.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return nil, fmt.Errorf("unable to retrieve Calendar client: %w", err)
	}
	log.Debug().Msg("Google Calendar client retrieved successfully")
	return srv, nil
}

// GetAllEvents retrieves the events this program created in the calendar.
func GetAllEvents(service *calendar.Service, calendarID string) ([]*calendar.Event, error) {
	var allEvents []*calendar.Event
	pageToken := ""
	for {
		events, err := service.Events.List(calendarID).
			PrivateExtendedProperty(sourceKey + "=" + sourceValue).
			PageToken(pageToken).
			Do()
		if err != nil {
			return nil, fmt.Errorf("error fetching events from Google Calendar: %w", err)
		}
		allEvents = append(allEvents, events.Items...)

		pageToken = events.NextPageToken
		if pageToken == "" {
			break
		}
	}
	log.Debug().Int("events", len(allEvents)).Str("calendar_id", calendarID).Msg("Fetched events from Google Calendar")
	return allEvents, nil
}

// ClearCalendar deletes the events this program created.
func ClearCalendar(service *calendar.Service, calendarID string) error {
	events, err := GetAllEvents(service, calendarID)
	if err != nil {
		return err
	}
	for _, event := range events {
		if event == nil || event.Status == "cancelled" {
			continue
		}
		if err := deleteEvent(service, calendarID, event); err != nil {
			return err
		}
	}
	log.Info().Str("calendar_id", calendarID).Msg("Booking events cleared from Google Calendar")
	return nil
}

func deleteEvent(service *calendar.Service, calendarID string, event *calendar.Event) error {
	err := service.Events.Delete(calendarID, event.Id).Do()
	if err != nil {
		var gerr *googleapi.Error
		if errors.As(err, &gerr) && gerr.Code == 410 {
			log.Debug().Str("event_id", event.Id).Msg("Event already deleted from Google Calendar")
			return nil
		}
		return fmt.Errorf("error deleting event from Google Calendar: %w", err)
	}
	log.Info().Str("summary", event.Summary).Str("event_id", event.Id).Msg("Event removed from Google Calendar")
	return nil
}
