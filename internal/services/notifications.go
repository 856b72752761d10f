package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/harentsoaR/clinic-api/internal/models"
	"github.com/rs/zerolog"
)

const (
	EventAccountRegistered    = "account.registered"
	EventAppointmentBooked    = "appointment.booked"
	EventAppointmentCancelled = "appointment.cancelled"

	deliveryTimeout = 10 * time.Second
)

// Event is a domain event fanned out to notification channels.
type Event struct {
	Type        string                 `json:"type"`
	OccurredAt  time.Time              `json:"occurredAt"`
	Account     *models.Account        `json:"account,omitempty"`
	Patient     *models.PatientProfile `json:"patient,omitempty"`
	Appointment *models.Appointment    `json:"appointment,omitempty"`
}

// Notifier accepts events. Delivery is best-effort and never blocks the caller.
type Notifier interface {
	Notify(ev Event)
}

type NopNotifier struct{}

func (NopNotifier) Notify(Event) {}

// Channel delivers one event synchronously.
type Channel interface {
	Name() string
	Send(ctx context.Context, ev Event) error
}

// NotificationService fans events out to every channel in the background.
type NotificationService struct {
	channels []Channel
	log      zerolog.Logger
	wg       sync.WaitGroup
}

func NewNotificationService(log zerolog.Logger, channels ...Channel) *NotificationService {
	return &NotificationService{channels: channels, log: log.With().Str("component", "notify").Logger()}
}

func (s *NotificationService) Notify(ev Event) {
	if ev.OccurredAt.IsZero() {
		ev.OccurredAt = time.Now().UTC()
	}
	for _, ch := range s.channels {
		s.wg.Add(1)
		// Send in a goroutine so it doesn't block the API response
		go func(ch Channel) {
			defer s.wg.Done()
			ctx, cancel := context.WithTimeout(context.Background(), deliveryTimeout)
			defer cancel()
			if err := ch.Send(ctx, ev); err != nil {
				s.log.Warn().Err(err).Str("channel", ch.Name()).Str("event", ev.Type).Msg("notification not delivered")
				return
			}
			s.log.Debug().Str("channel", ch.Name()).Str("event", ev.Type).Msg("notification delivered")
		}(ch)
	}
}

// Wait blocks until every in-flight delivery has finished.
func (s *NotificationService) Wait() {
	s.wg.Wait()
}

const defaultTextbeltURL = "https://textbelt.com/text"

// SMSChannel texts patients about their appointments through the Textbelt API.
type SMSChannel struct {
	Key    string
	URL    string
	Client *http.Client
}

func NewSMSChannel(key string) *SMSChannel {
	return &SMSChannel{Key: key, URL: defaultTextbeltURL, Client: &http.Client{Timeout: deliveryTimeout}}
}

func (c *SMSChannel) Name() string { return "sms" }

func (c *SMSChannel) Send(ctx context.Context, ev Event) error {
	if ev.Patient == nil || ev.Appointment == nil {
		return nil
	}
	if ev.Patient.Phone == "" {
		return nil
	}

	var body string
	when := ev.Appointment.StartTime.Format("Jan 2 at 3:04 PM")
	switch ev.Type {
	case EventAppointmentBooked:
		body = fmt.Sprintf("Appointment confirmed for %s on %s.", ev.Patient.FullName, when)
	case EventAppointmentCancelled:
		body = fmt.Sprintf("Your appointment on %s has been cancelled.", when)
	default:
		return nil
	}

	payload, err := json.Marshal(map[string]string{
		"phone":   ev.Patient.Phone,
		"message": body,
		"key":     c.Key,
	})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.URL, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.Client.Do(req)
	if err != nil {
		return fmt.Errorf("textbelt request: %w", err)
	}
	defer resp.Body.Close()

	var result struct {
		Success bool   `json:"success"`
		Error   string `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return fmt.Errorf("decode textbelt response: %w", err)
	}
	if !result.Success {
		return fmt.Errorf("textbelt rejected sms: %s", result.Error)
	}
	return nil
}
