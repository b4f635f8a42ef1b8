package smssvc

import (
	"context"
	"sync"

	"github.com/trezcool/plagcheck/core"
)

type consoleService struct {
	logger core.Logger
}

var _ core.SMSService = (*consoleService)(nil)

// NewConsoleService logs text messages instead of sending them.
func NewConsoleService(logger core.Logger) core.SMSService {
	return &consoleService{logger: logger}
}

func (svc *consoleService) SendSMS(_ context.Context, to, body string) error {
	svc.logger.Info("sms", "to", core.E164(to), "body", body)
	return nil
}

type SentSMS struct {
	To   string
	Body string
}

// ServiceMock keeps the text messages it is asked to send.
type ServiceMock struct {
	mu   sync.Mutex
	Err  error
	Sent []SentSMS
}

var _ core.SMSService = (*ServiceMock)(nil)

func (svc *ServiceMock) SendSMS(_ context.Context, to, body string) error {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	if svc.Err != nil {
		return svc.Err
	}
	svc.Sent = append(svc.Sent, SentSMS{To: core.E164(to), Body: body})
	return nil
}
