package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"hkulib-booker/config"
	"hkulib-booker/googlecalendar"
	"hkulib-booker/icsfile"
	"hkulib-booker/metrics"
	"hkulib-booker/scraper"
	"hkulib-booker/site"
	"hkulib-booker/uploader"
)

// userRunner runs the scheduled work of one portal account.
type userRunner struct {
	common *config.CommonConfig
	user   *config.UserConfig
	loc    *time.Location
	store  *site.Store
	now    func() time.Time

	// newClient returns a fresh, logged-out portal session
	newClient func() *scraper.Client
}

func newUserRunner(common *config.CommonConfig, user *config.UserConfig, loc *time.Location, store *site.Store) *userRunner {
	return &userRunner{
		common: common,
		user:   user,
		loc:    loc,
		store:  store,
		now:    time.Now,
		newClient: func() *scraper.Client {
			return newPortalClient(common)
		},
	}
}

func newPortalClient(common *config.CommonConfig) *scraper.Client {
	opts := []scraper.Option{
		scraper.WithTimeout(common.HTTPTimeout()),
		scraper.WithAuthenticator(&scraper.FormLogin{
			LoginURL:      common.LoginURL,
			UserField:     common.LoginUserField,
			PasswordField: common.LoginPasswordField,
			FailureMarker: common.LoginFailureMarker,
		}),
	}
	if common.BookingBaseURL != "" {
		opts = append(opts, scraper.WithBaseURL(common.BookingBaseURL))
	}
	return scraper.NewClient(opts...)
}

func buildRequest(job config.BookingJob, date string) (scraper.BookingRequest, error) {
	if job.Strict {
		return scraper.NewStrictBookingRequest(date, job.Time, job.FacilityID)
	}
	return scraper.NewBookingRequest(date, job.Time, job.FacilityID)
}

func (u *userRunner) login(ctx context.Context) (*scraper.Client, error) {
	c := u.newClient()
	if err := c.Login(ctx, u.user.Username, u.user.Password); err != nil {
		return nil, err
	}
	return c, nil
}

// book logs in and makes the booking described by job.
func (u *userRunner) book(ctx context.Context, job config.BookingJob) error {
	date := job.BookingDate(u.now().In(u.loc))
	logger := log.With().
		Str("job_name", job.JobName(u.user.Username)).
		Str("date", date).
		Logger()

	req, err := buildRequest(job, date)
	if err != nil {
		logger.Error().Err(err).Msg("Invalid booking job")
		return err
	}

	c, err := u.login(ctx)
	if err != nil {
		logger.Error().Err(err).Msg("Login failed")
		return err
	}

	if err := c.Book(ctx, req); err != nil {
		var rejected *scraper.RejectedError
		if errors.As(err, &rejected) {
			logger.Warn().Int("body_bytes", len(rejected.Body)).Msg("Portal rejected the booking")
		} else {
			logger.Error().Err(err).Msg("Booking failed")
		}
		return err
	}

	logger.Info().Msg("Booked")
	return nil
}

// sync fetches the booking list and publishes it.
func (u *userRunner) sync(ctx context.Context) error {
	c, err := u.login(ctx)
	if err != nil {
		return err
	}

	records, err := c.ListBookings(ctx)
	if err != nil {
		return fmt.Errorf("error listing bookings: %w", err)
	}
	metrics.RecordsFetched.WithLabelValues(u.user.Username).Set(float64(len(records)))
	u.store.Put(u.user.Username, records, u.now())
	log.Info().Str("user", u.user.Username).Int("records", len(records)).Msg("Fetched booking records")

	if u.user.ICSFile == "" {
		return nil
	}
	if err := icsfile.Write(u.user.ICSFile, records, u.loc); err != nil {
		return err
	}

	if u.user.GithubPath != "" && u.common.GithubToken != "" && u.common.GithubRepo != "" {
		gh := uploader.NewGitHub(u.common.GithubToken, u.common.GithubRepo)
		if err := gh.Upload(ctx, u.user.GithubPath, u.user.ICSFile); err != nil {
			return fmt.Errorf("error uploading ICS file: %w", err)
		}
	}

	if u.user.GoogleCalendarID != "" && googlecalendar.Enabled(u.common) {
		service, err := googlecalendar.GetCalendarService(ctx, u.common)
		if err != nil {
			if errors.Is(err, googlecalendar.ErrNoToken) {
				log.Warn().Str("auth_url", googlecalendar.AuthURL(u.common, "hkulib-booker")).Msg("Google Calendar not authorized yet")
				return nil
			}
			return err
		}
		if err := googlecalendar.AddICSEventsToCalendar(service, u.user.GoogleCalendarID, u.user.ICSFile, u.loc, false); err != nil {
			return fmt.Errorf("error syncing bookings with Google Calendar: %w", err)
		}
	}
	return nil
}
