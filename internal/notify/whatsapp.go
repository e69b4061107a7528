package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pbaille/portfolio/internal/config"
	"github.com/pbaille/portfolio/internal/domain"
)

// WhatsApp sends the visitor a thank-you message through Twilio
type WhatsApp struct {
	cfg    config.Twilio
	owner  string
	client *http.Client
}

// NewWhatsApp creates the WhatsApp channel
func NewWhatsApp(cfg config.Twilio, owner string, timeout time.Duration) *WhatsApp {
	return &WhatsApp{
		cfg:    cfg,
		owner:  owner,
		client: &http.Client{Timeout: timeout},
	}
}

// Name returns "whatsapp"
func (w *WhatsApp) Name() string { return "whatsapp" }

type messageResponse struct {
	SID    string `json:"sid"`
	Status string `json:"status"`
}

type apiError struct {
	Code     int    `json:"code"`
	Message  string `json:"message"`
	MoreInfo string `json:"more_info"`
	Status   int    `json:"status"`
}

// Send posts one message to the visitor's normalized number
func (w *WhatsApp) Send(ctx context.Context, c domain.Contact) error {
	form := url.Values{
		"From": {whatsappAddress(w.cfg.From)},
		"To":   {"whatsapp:" + NormalizePhone(c.Phone, w.cfg.DefaultCountryCode)},
		"Body": {fmt.Sprintf("Hello %s, thank you for contacting %s! We will reach out to you soon.", c.Name, w.owner)},
	}

	endpoint := fmt.Sprintf("%s/2010-04-01/Accounts/%s/Messages.json",
		strings.TrimRight(w.cfg.APIURL, "/"), url.PathEscape(w.cfg.AccountSID))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	req.SetBasicAuth(w.cfg.AccountSID, w.cfg.AuthToken)

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var apiErr apiError
		if json.Unmarshal(body, &apiErr) == nil && apiErr.Message != "" {
			return fmt.Errorf("api error (status %d, code %d): %s", resp.StatusCode, apiErr.Code, apiErr.Message)
		}
		return fmt.Errorf("api error (status %d): %s", resp.StatusCode, string(body))
	}

	var msg messageResponse
	if err := json.Unmarshal(body, &msg); err != nil {
		return fmt.Errorf("unmarshal response: %w", err)
	}
	if msg.Status == "failed" || msg.Status == "undelivered" {
		return fmt.Errorf("message %s %s", msg.SID, msg.Status)
	}

	return nil
}

func whatsappAddress(addr string) string {
	if strings.HasPrefix(addr, "whatsapp:") {
		return addr
	}
	return "whatsapp:" + addr
}

// NormalizePhone reduces phone to digits, keeping a leading '+'. Numbers
// without one get defaultCC prepended.
func NormalizePhone(phone, defaultCC string) string {
	phone = strings.TrimSpace(phone)

	var sb strings.Builder
	for i, r := range phone {
		switch {
		case r >= '0' && r <= '9':
			sb.WriteRune(r)
		case r == '+' && i == 0:
			sb.WriteRune(r)
		}
	}
	number := sb.String()
	if strings.HasPrefix(number, "+") {
		return number
	}

	cc := strings.TrimSpace(defaultCC)
	if cc != "" && !strings.HasPrefix(cc, "+") {
		cc = "+" + cc
	}
	return cc + number
}
