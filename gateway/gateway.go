// Package gateway holds the outbound HTTP clients for the sibling
// services: send-mail, auto-followup, gmail-notifier, mail-writer and
// the Odoo CRM. Every call carries a short-lived bearer token minted for
// the target service's audience; calls have a bounded timeout and are
// never retried here.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

const requestTimeout = 30 * time.Second

// UpstreamError reports a gateway call that failed, timed out or
// returned a non-success status.
type UpstreamError struct {
	Service    string
	StatusCode int
	Message    string
	Err        error
}

func (e *UpstreamError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Service, e.Err)
	}
	return fmt.Sprintf("%s returned %d: %s", e.Service, e.StatusCode, e.Message)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// TokenMinter mints a bearer token for one target audience. The real
// implementation defers to the hosting platform's credentials; tests
// inject a static minter.
type TokenMinter interface {
	MintToken(ctx context.Context, audience string) (string, error)
}

// Config carries the service endpoints. Empty URLs disable the matching
// operations; calling one reports a configuration error rather than
// dialing nowhere.
type Config struct {
	SendMailURL      string
	AutoFollowupURL  string
	GmailNotifierURL string
	MailWriterURL    string
	OdooURL          string
	OdooSecret       string
}

// Client is the outbound gateway.
type Client struct {
	cfg    Config
	http   *http.Client
	tokens TokenMinter
	log    *logrus.Logger
}

func NewClient(cfg Config, tokens TokenMinter, log *logrus.Logger) *Client {
	cfg.SendMailURL = strings.TrimRight(cfg.SendMailURL, "/")
	cfg.AutoFollowupURL = strings.TrimRight(cfg.AutoFollowupURL, "/")
	cfg.GmailNotifierURL = strings.TrimRight(cfg.GmailNotifierURL, "/")
	cfg.MailWriterURL = strings.TrimRight(cfg.MailWriterURL, "/")
	cfg.OdooURL = strings.TrimRight(cfg.OdooURL, "/")
	return &Client{
		cfg:    cfg,
		http:   &http.Client{Timeout: requestTimeout},
		tokens: tokens,
		log:    log,
	}
}

// SendResult is the send-mail service's success payload.
type SendResult struct {
	MessageID string `json:"message_id"`
	PixelID   string `json:"pixel_id,omitempty"`
}

// SendDraft asks the send-mail service to send a draft. In test mode the
// mail goes to testEmail and no draft state changes anywhere.
func (c *Client) SendDraft(ctx context.Context, draftID string, testMode bool, testEmail string) (*SendResult, error) {
	if c.cfg.SendMailURL == "" {
		return nil, &UpstreamError{Service: "send-mail", Err: fmt.Errorf("service URL not configured")}
	}
	payload := map[string]interface{}{"draft_id": draftID}
	if testMode {
		payload["test_mode"] = true
		payload["test_email"] = testEmail
	}
	var result SendResult
	if err := c.post(ctx, "send-mail", c.cfg.SendMailURL, c.cfg.SendMailURL+"/send-draft", payload, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// ResendToAnother asks the send-mail service to re-send an already sent
// draft to a different address.
func (c *Client) ResendToAnother(ctx context.Context, draftID, newEmail string) error {
	if c.cfg.SendMailURL == "" {
		return &UpstreamError{Service: "send-mail", Err: fmt.Errorf("service URL not configured")}
	}
	payload := map[string]interface{}{"draft_id": draftID, "new_email": newEmail}
	return c.post(ctx, "send-mail", c.cfg.SendMailURL, c.cfg.SendMailURL+"/resend-to-another", payload, nil)
}

// ScheduleFollowups asks the auto-followup service to plan the follow-up
// sequence for a freshly sent draft. Returns the number created.
func (c *Client) ScheduleFollowups(ctx context.Context, draftID string) (int, error) {
	if c.cfg.AutoFollowupURL == "" {
		return 0, &UpstreamError{Service: "auto-followup", Err: fmt.Errorf("service URL not configured")}
	}
	var result struct {
		FollowupsCreated int `json:"followups_created"`
	}
	payload := map[string]interface{}{"draft_id": draftID}
	if err := c.post(ctx, "auto-followup", c.cfg.AutoFollowupURL, c.cfg.AutoFollowupURL+"/schedule-followups", payload, &result); err != nil {
		return 0, err
	}
	return result.FollowupsCreated, nil
}

// FetchReply asks gmail-notifier to pull a missing reply body into the
// draft document.
func (c *Client) FetchReply(ctx context.Context, draftID string) error {
	if c.cfg.GmailNotifierURL == "" {
		return &UpstreamError{Service: "gmail-notifier", Err: fmt.Errorf("service URL not configured")}
	}
	payload := map[string]interface{}{"draft_id": draftID}
	return c.post(ctx, "gmail-notifier", c.cfg.GmailNotifierURL, c.cfg.GmailNotifierURL+"/fetch-reply", payload, nil)
}

// FetchThread asks gmail-notifier to mirror a draft's whole Gmail thread.
// Returns the number of messages fetched.
func (c *Client) FetchThread(ctx context.Context, draftID string) (int, error) {
	if c.cfg.GmailNotifierURL == "" {
		return 0, &UpstreamError{Service: "gmail-notifier", Err: fmt.Errorf("service URL not configured")}
	}
	var result struct {
		MessageCount int `json:"message_count"`
	}
	payload := map[string]interface{}{"draft_id": draftID}
	if err := c.post(ctx, "gmail-notifier", c.cfg.GmailNotifierURL, c.cfg.GmailNotifierURL+"/fetch-thread", payload, &result); err != nil {
		return 0, err
	}
	return result.MessageCount, nil
}

// Lead is the subset of a CRM lead the regeneration flow needs.
type Lead struct {
	ID          int64  `json:"id"`
	Email       string `json:"email_normalized"`
	Website     string `json:"website"`
	ContactName string `json:"contact_name"`
	PartnerName string `json:"partner_name"`
	Function    string `json:"function"`
	Description string `json:"description"`
}

// SearchLead looks up a CRM lead by its external id. Odoo authenticates
// with a static secret, not a minted token.
func (c *Client) SearchLead(ctx context.Context, xExternalID string) (*Lead, error) {
	if c.cfg.OdooURL == "" || c.cfg.OdooSecret == "" {
		return nil, &UpstreamError{Service: "odoo", Err: fmt.Errorf("odoo URL or secret not configured")}
	}
	payload := map[string]interface{}{
		"domain": [][]interface{}{{"x_external_id", "ilike", xExternalID}},
		"fields": []string{"id", "email_normalized", "website", "contact_name", "partner_name", "function", "description"},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.OdooURL+"/json/2/crm.lead/search_read", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.OdooSecret)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &UpstreamError{Service: "odoo", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &UpstreamError{Service: "odoo", StatusCode: resp.StatusCode, Message: readErrorMessage(resp.Body)}
	}

	var leads []Lead
	if err := json.NewDecoder(resp.Body).Decode(&leads); err != nil {
		return nil, &UpstreamError{Service: "odoo", Err: fmt.Errorf("decoding response: %w", err)}
	}
	if len(leads) == 0 {
		return nil, &UpstreamError{Service: "odoo", StatusCode: resp.StatusCode, Message: fmt.Sprintf("no lead matches x_external_id %q", xExternalID)}
	}
	return &leads[0], nil
}

// Regenerate asks the mail-writer to generate a fresh draft for a lead,
// joining the given version group. Returns the new draft id.
func (c *Client) Regenerate(ctx context.Context, lead *Lead, xExternalID, versionGroupID string) (string, error) {
	if c.cfg.MailWriterURL == "" {
		return "", &UpstreamError{Service: "mail-writer", Err: fmt.Errorf("service URL not configured")}
	}

	firstName, lastName := splitName(lead.ContactName)
	payload := map[string]interface{}{
		"first_name":       firstName,
		"last_name":        lastName,
		"email":            lead.Email,
		"website":          lead.Website,
		"partner_name":     lead.PartnerName,
		"function":         lead.Function,
		"description":      lead.Description,
		"x_external_id":    xExternalID,
		"version_group_id": versionGroupID,
		"odoo_id":          lead.ID,
	}

	var result struct {
		Draft struct {
			DraftID string `json:"draft_id"`
		} `json:"draft"`
	}
	if err := c.post(ctx, "mail-writer", c.cfg.MailWriterURL, c.cfg.MailWriterURL, payload, &result); err != nil {
		return "", err
	}
	return result.Draft.DraftID, nil
}

func (c *Client) post(ctx context.Context, service, audience, url string, payload interface{}, out interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	token, err := c.tokens.MintToken(ctx, audience)
	if err != nil {
		return &UpstreamError{Service: service, Err: fmt.Errorf("minting token: %w", err)}
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.http.Do(req)
	if err != nil {
		return &UpstreamError{Service: service, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &UpstreamError{Service: service, StatusCode: resp.StatusCode, Message: readErrorMessage(resp.Body)}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &UpstreamError{Service: service, Err: fmt.Errorf("decoding response: %w", err)}
	}
	return nil
}

// readErrorMessage pulls the upstream "error" field when the body is
// JSON, otherwise the raw body, capped.
func readErrorMessage(r io.Reader) string {
	raw, err := io.ReadAll(io.LimitReader(r, 4096))
	if err != nil || len(raw) == 0 {
		return "unknown error"
	}
	var parsed struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(raw, &parsed) == nil && parsed.Error != "" {
		return parsed.Error
	}
	return strings.TrimSpace(string(raw))
}

func splitName(full string) (string, string) {
	full = strings.TrimSpace(full)
	if full == "" {
		return "", ""
	}
	parts := strings.SplitN(full, " ", 2)
	if len(parts) == 1 {
		return parts[0], ""
	}
	return parts[0], parts[1]
}
