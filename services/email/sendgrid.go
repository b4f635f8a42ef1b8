package emailsvc

import (
	"encoding/base64"
	"fmt"
	"net/http"
	"net/mail"
	"time"

	"github.com/pkg/errors"
	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"

	"github.com/trezcool/plagcheck/core"
)

const (
	sendEndpoint    = "/v3/mail/send"
	sendMaxAttempts = 3
)

var sleepFunc = time.Sleep // mockable

// StatusError is a mail send rejected by SendGrid.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("sendgrid: http %d: %s", e.StatusCode, e.Body)
}

func (e *StatusError) retryable() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= http.StatusInternalServerError
}

type sendgridService struct {
	key        string
	host       string
	from       *sgmail.Email
	subjPrefix string
	logger     core.Logger
}

var _ core.EmailService = (*sendgridService)(nil)

// NewSendgridService sends the notification emails through the SendGrid v3 API.
func NewSendgridService(conf *core.Config, logger core.Logger) core.EmailService {
	from := conf.Email.DefaultFrom()
	return &sendgridService{
		key:        conf.Email.SendgridAPIKey,
		host:       conf.Email.SendgridBaseURL,
		from:       sgmail.NewEmail(from.Name, from.Address),
		subjPrefix: "[" + conf.AppName + "] ",
		logger:     logger.With("service", "sendgrid"),
	}
}

func (svc *sendgridService) SendMessages(messages ...*core.EmailMessage) {
	for _, msg := range messages {
		go func(msg *core.EmailMessage) {
			if err := svc.deliver(msg); err != nil {
				svc.logger.Error("sending email", "subject", msg.Subject, "err", err)
			}
		}(msg)
	}
}

// deliver renders msg and posts it, retrying throttled and failed requests.
// Messages with nothing to send are dropped.
func (svc *sendgridService) deliver(msg *core.EmailMessage) error {
	if err := msg.Render(); err != nil {
		return err
	}
	if !msg.HasRecipients() || !(msg.HasContent() || msg.HasAttachments()) {
		svc.logger.Warn("email dropped, no recipient or content", "subject", msg.Subject)
		return nil
	}

	body := sgmail.GetRequestBody(svc.prepare(*msg))
	var err error
	for attempt := 1; attempt <= sendMaxAttempts; attempt++ {
		if err = svc.post(body); err == nil {
			return nil
		}
		var se *StatusError
		if errors.As(err, &se) && !se.retryable() {
			return err
		}
		if attempt < sendMaxAttempts {
			wait := time.Duration(attempt) * time.Second
			svc.logger.Warn("email not sent, retrying", "subject", msg.Subject, "attempt", attempt, "wait", wait.String(), "err", err)
			sleepFunc(wait)
		}
	}
	return errors.Wrapf(err, "giving up after %d attempts", sendMaxAttempts)
}

func (svc *sendgridService) post(body []byte) error {
	req := sendgrid.GetRequest(svc.key, sendEndpoint, svc.host)
	req.Method = rest.Post
	req.Body = body

	res, err := sendgrid.API(req)
	if err != nil {
		return errors.Wrap(err, "sendgrid request")
	}
	if res.StatusCode >= http.StatusBadRequest {
		return &StatusError{StatusCode: res.StatusCode, Body: res.Body}
	}
	return nil
}

func (svc *sendgridService) prepare(msg core.EmailMessage) *sgmail.SGMailV3 {
	p := sgmail.NewPersonalization()
	p.Subject = svc.subjPrefix + msg.Subject
	p.AddTos(sgEmails(msg.To)...)
	p.AddCCs(sgEmails(msg.Cc)...)
	p.AddBCCs(sgEmails(msg.Bcc)...)

	m := sgmail.NewV3Mail().SetFrom(svc.from)
	m.AddPersonalizations(p)

	// SendGrid wants text/plain first
	m.AddContent(sgmail.NewContent("text/plain", msg.TextContent))
	if msg.HTMLContent != "" {
		m.AddContent(sgmail.NewContent("text/html", msg.HTMLContent))
	}

	for _, at := range msg.Attachments {
		m.AddAttachment(&sgmail.Attachment{
			Content:     base64.StdEncoding.EncodeToString(at.Content),
			Type:        at.ContentType,
			Filename:    at.Filename,
			Disposition: "attachment",
		})
	}
	return m
}

func sgEmails(addrs []mail.Address) []*sgmail.Email {
	emails := make([]*sgmail.Email, 0, len(addrs))
	for _, a := range addrs {
		emails = append(emails, sgmail.NewEmail(a.Name, a.Address))
	}
	return emails
}
