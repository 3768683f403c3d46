package whatsapp

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rpggio/kinboard/internal/domain/phone"
)

// DetailNotConfigured is the Result detail when no credentials are set.
const DetailNotConfigured = "not configured"

// DefaultBaseURL is the Twilio REST API root.
const DefaultBaseURL = "https://api.twilio.com"

// Result is the outcome of a single send. It is logged, never raised.
type Result struct {
	Delivered bool   `json:"delivered"`
	Detail    string `json:"detail"`
}

// Sender delivers a text message to a phone number.
type Sender interface {
	Send(ctx context.Context, to, text string) Result
}

// Config holds provider credentials and client tuning. From is sent as
// given and must already carry its country code.
type Config struct {
	AccountSID         string
	AuthToken          string
	From               string
	BaseURL            string
	DefaultCountryCode string
	Timeout            time.Duration
	Retries            int
}

// Configured reports whether all credentials are present.
func (c Config) Configured() bool {
	return c.AccountSID != "" && c.AuthToken != "" && c.From != ""
}

// Disabled is the Sender used when no credentials are configured.
type Disabled struct{}

// Send always reports "not configured" without touching the network.
func (Disabled) Send(context.Context, string, string) Result {
	return Result{Delivered: false, Detail: DetailNotConfigured}
}

// New returns a Client when cfg is complete and Disabled otherwise.
func New(cfg Config, logger *slog.Logger) Sender {
	if !cfg.Configured() {
		return Disabled{}
	}
	return NewClient(cfg, logger)
}

type messageResponse struct {
	SID     string `json:"sid"`
	Status  string `json:"status"`
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Client sends WhatsApp messages through the Twilio Messages API.
type Client struct {
	httpClient *resty.Client
	cfg        Config
	logger     *slog.Logger
}

// NewClient creates a Twilio-backed client.
func NewClient(cfg Config, logger *slog.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.DefaultCountryCode == "" {
		cfg.DefaultCountryCode = phone.DefaultCountryCode
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	client := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.Timeout).
		SetRetryCount(cfg.Retries).
		SetRetryWaitTime(500 * time.Millisecond).
		SetRetryMaxWaitTime(3 * time.Second).
		SetBasicAuth(cfg.AccountSID, cfg.AuthToken).
		SetHeader("Accept", "application/json")

	return &Client{httpClient: client, cfg: cfg, logger: logger}
}

// Send posts text to the normalized number. Transport and provider errors
// come back as an undelivered Result.
func (c *Client) Send(ctx context.Context, to, text string) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			res = Result{Delivered: false, Detail: fmt.Sprintf("panic: %v", r)}
		}
	}()

	dest := phone.Normalize(to, c.cfg.DefaultCountryCode)

	var body messageResponse
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetPathParam("sid", c.cfg.AccountSID).
		SetFormData(map[string]string{
			"From": "whatsapp:" + strings.TrimSpace(c.cfg.From),
			"To":   "whatsapp:" + dest,
			"Body": text,
		}).
		SetResult(&body).
		SetError(&body).
		Post("/2010-04-01/Accounts/{sid}/Messages.json")
	if err != nil {
		c.logger.Warn("whatsapp send failed", "to", dest, "error", err)
		return Result{Delivered: false, Detail: err.Error()}
	}

	if resp.IsError() {
		detail := body.Message
		if detail == "" {
			detail = http.StatusText(resp.StatusCode())
		}
		if body.Code != 0 {
			detail = fmt.Sprintf("%s (code %d)", detail, body.Code)
		}
		c.logger.Warn("whatsapp provider rejected message", "to", dest, "status_code", resp.StatusCode(), "detail", detail)
		return Result{Delivered: false, Detail: detail}
	}

	c.logger.Info("whatsapp message accepted", "to", dest, "sid", body.SID, "status", body.Status)
	return Result{Delivered: true, Detail: body.SID}
}
