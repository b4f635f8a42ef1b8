package smssvc

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/plagcheck/core"
)

const maxBackoff = 10 * time.Second

// mockable
var sleepFunc = time.Sleep

type (
	twilioService struct {
		accountSID string
		authToken  string
		from       string
		baseURL    string
		maxRetries int
		httpClient *http.Client
		logger     core.Logger
	}

	Message struct {
		SID    string `json:"sid"`
		To     string `json:"to"`
		From   string `json:"from"`
		Body   string `json:"body"`
		Status string `json:"status"`
	}

	apiError struct {
		Code     int    `json:"code"`
		Message  string `json:"message"`
		MoreInfo string `json:"more_info"`
		Status   int    `json:"status"`
	}

	HTTPError struct {
		StatusCode int
		Body       string
		APIError   *apiError
	}
)

var _ core.SMSService = (*twilioService)(nil)

func (e *HTTPError) Error() string {
	if e.APIError != nil && e.APIError.Message != "" {
		return fmt.Sprintf("twilio http %d: %s (code=%d)", e.StatusCode, e.APIError.Message, e.APIError.Code)
	}
	msg := strings.TrimSpace(e.Body)
	if msg == "" {
		msg = "<empty body>"
	}
	return fmt.Sprintf("twilio http %d: %s", e.StatusCode, core.TruncateRunes(msg, 500))
}

func (e *HTTPError) retryable() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= http.StatusInternalServerError
}

// NewTwilioService sends SMS through the Twilio REST API. The account must be configured (see Config.TwilioEnabled).
func NewTwilioService(conf *core.Config, logger core.Logger) core.SMSService {
	timeout := conf.Twilio.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	baseURL := conf.Twilio.BaseURL
	if baseURL == "" {
		baseURL = "https://api.twilio.com/2010-04-01"
	}
	return &twilioService{
		accountSID: conf.Twilio.AccountSID,
		authToken:  conf.Twilio.AuthToken,
		from:       conf.Twilio.From,
		baseURL:    strings.TrimRight(baseURL, "/"),
		maxRetries: conf.Twilio.MaxRetries,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger.With("client", "twilio"),
	}
}

func (svc *twilioService) SendSMS(ctx context.Context, to, body string) error {
	to = core.E164(to)
	if to == "" {
		return errors.New("twilio: recipient required")
	}
	body = strings.TrimSpace(body)
	if body == "" {
		return errors.New("twilio: body required")
	}

	form := url.Values{}
	form.Set("To", to)
	form.Set("From", svc.from)
	form.Set("Body", body)
	endpoint := fmt.Sprintf("%s/Accounts/%s/Messages.json", svc.baseURL, url.PathEscape(svc.accountSID))

	msg, err := svc.post(ctx, endpoint, form)
	if err != nil {
		return err
	}
	svc.logger.Info("sms sent", "to", to, "sid", msg.SID, "status", msg.Status)
	return nil
}

func (svc *twilioService) post(ctx context.Context, endpoint string, form url.Values) (*Message, error) {
	backoff := time.Second
	for attempt := 0; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		msg, resp, err := svc.postOnce(ctx, endpoint, form)
		if err == nil {
			return msg, nil
		}
		if !isRetryable(err) || attempt >= svc.maxRetries {
			return nil, err
		}

		wait := retryAfter(resp, backoff)
		svc.logger.Warn("twilio request retrying", "attempt", attempt+1, "sleep", wait.String(), "err", err)
		sleepFunc(wait)
		if backoff *= 2; backoff > maxBackoff {
			backoff = maxBackoff
		}
	}
}

func (svc *twilioService) postOnce(ctx context.Context, endpoint string, form url.Values) (*Message, *http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	req.SetBasicAuth(svc.accountSID, svc.authToken)

	resp, err := svc.httpClient.Do(req)
	if err != nil {
		return nil, nil, err
	}
	raw, err := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if err != nil {
		return nil, resp, err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		herr := &HTTPError{StatusCode: resp.StatusCode, Body: string(raw)}
		var ae apiError
		if json.Unmarshal(raw, &ae) == nil && ae.Message != "" {
			herr.APIError = &ae
		}
		return nil, resp, herr
	}

	var msg Message
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &msg); err != nil {
			return nil, resp, errors.Wrap(err, "twilio decode")
		}
	}
	return &msg, resp, nil
}

func isRetryable(err error) bool {
	if herr, ok := err.(*HTTPError); ok {
		return herr.retryable()
	}
	var nerr net.Error
	return errors.As(err, &nerr)
}

func retryAfter(resp *http.Response, fallback time.Duration) time.Duration {
	if resp != nil {
		if secs, err := strconv.Atoi(resp.Header.Get("Retry-After")); err == nil && secs >= 0 {
			if d := time.Duration(secs) * time.Second; d < maxBackoff {
				return d
			}
			return maxBackoff
		}
	}
	return fallback
}
