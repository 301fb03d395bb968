package scraper

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"hkulib-booker/metrics"
)

// Book reserves the slot described by r. It replays the two partial
// postbacks the booking page performs in a browser: Submit, then the "Yes"
// of the confirmation dialog. The session must already be logged in.
//
// A nil error means the portal reported success. A rejected booking returns
// a *RejectedError with the portal's response.
func (c *Client) Book(ctx context.Context, r BookingRequest) error {
	c.bookMu.Lock()
	defer c.bookMu.Unlock()

	err := c.book(ctx, r)
	metrics.BookingAttempts.WithLabelValues(bookingOutcome(err)).Inc()
	return err
}

func (c *Client) book(ctx context.Context, r BookingRequest) error {
	bookURL := r.bookingURL(c.baseURL)
	logger := log.With().
		Str("facility_id", r.facilityID).
		Str("date", r.date).
		Str("time", r.slot).
		Str("session", r.session).
		Logger()

	// Fetch
	start := time.Now()
	page, err := c.get(ctx, bookURL)
	observeStep("fetch", start)
	if err != nil {
		return fmt.Errorf("error fetching booking page: %w", err)
	}

	// ExtractTokens
	tokens, err := extractTokens(page)
	if err != nil {
		logger.Error().Err(err).Str("url", bookURL).Msg("Booking page is missing postback fields")
		return err
	}

	// SubmitHold: the response only advances server-side state
	hold := newHoldForm(tokens, r)
	start = time.Now()
	_, err = c.postForm(ctx, bookURL, hold.Encode())
	observeStep("hold", start)
	if err != nil {
		return fmt.Errorf("error submitting booking: %w", err)
	}
	logger.Debug().Msg("Booking submitted, confirming")

	// SubmitConfirm
	start = time.Now()
	body, err := c.postForm(ctx, bookURL, hold.confirm().Encode())
	observeStep("confirm", start)
	if err != nil {
		return fmt.Errorf("error confirming booking: %w", err)
	}

	if !strings.Contains(body, SuccessMarker) {
		logger.Warn().Msg("Booking rejected by portal")
		return &RejectedError{Body: body}
	}

	logger.Info().Msg("Booking successful")
	return nil
}

func observeStep(step string, start time.Time) {
	metrics.StepDuration.WithLabelValues(step).Observe(time.Since(start).Seconds())
}

func bookingOutcome(err error) string {
	switch {
	case err == nil:
		return metrics.OutcomeSuccess
	case errors.Is(err, ErrBookingRejected):
		return metrics.OutcomeRejected
	case errors.Is(err, ErrProtocolTokenMissing):
		return metrics.OutcomeTokenMissing
	default:
		return metrics.OutcomeError
	}
}
