package notify

import (
	"bytes"
	"context"
	"encoding/json/v2"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/titlekeep/titlekeep-server/internal/domain"
)

// CRM mirrors committed bookings to an external sink. Mirroring is
// best-effort and runs after the storage transaction has committed.
type CRM interface {
	MirrorBooking(ctx context.Context, res *domain.Reservation) error
}

// NoopCRM is used when no CRM endpoint is configured.
type NoopCRM struct{}

// MirrorBooking does nothing.
func (NoopCRM) MirrorBooking(_ context.Context, _ *domain.Reservation) error { return nil }

// HTTPCRM posts booking records to a configured endpoint.
type HTTPCRM struct {
	endpoint string
	client   *http.Client
	logger   *slog.Logger
}

// NewHTTPCRM creates a CRM sink for the given endpoint.
func NewHTTPCRM(endpoint string, logger *slog.Logger) *HTTPCRM {
	return &HTTPCRM{
		endpoint: endpoint,
		client:   &http.Client{Timeout: 5 * time.Second},
		logger:   logger,
	}
}

type crmBooking struct {
	Timestamp string `json:"timestamp"`
	TitleName string `json:"title_name"`
	Holder    string `json:"holder"`
	Location  string `json:"location"`
	SlotStart string `json:"slot_start"`
}

// MirrorBooking posts one committed booking.
func (c *HTTPCRM) MirrorBooking(ctx context.Context, res *domain.Reservation) error {
	var body bytes.Buffer
	err := json.MarshalWrite(&body, crmBooking{
		Timestamp: res.CreatedAt.UTC().Format(time.RFC3339),
		TitleName: res.TitleName,
		Holder:    res.Holder,
		Location:  res.Location,
		SlotStart: res.SlotStart.UTC().Format(time.RFC3339),
	})
	if err != nil {
		return fmt.Errorf("marshal booking: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, &body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("post booking: %w", err)
	}
	defer func() {
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("crm returned status %d", resp.StatusCode)
	}
	return nil
}
