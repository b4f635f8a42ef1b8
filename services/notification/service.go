package notificationsvc

import (
	"context"
	"fmt"
	"net/mail"

	"github.com/pkg/errors"

	"github.com/trezcool/plagcheck/core"
	"github.com/trezcool/plagcheck/core/plagiarism"
	"github.com/trezcool/plagcheck/core/submission"
)

type (
	Service struct {
		email           core.EmailService
		sms             core.SMSService // optional
		frontendBaseURL string
		logger          core.Logger
	}

	reportData struct {
		TeacherName string
		Title       string
		ReportURL   string
		ChartURL    string
	}
)

var _ plagiarism.Notifier = (*Service)(nil)

func NewService(email core.EmailService, sms core.SMSService, conf *core.Config, logger core.Logger) *Service {
	return &Service{
		email:           email,
		sms:             sms,
		frontendBaseURL: conf.Email.FrontendBaseURL,
		logger:          logger,
	}
}

func ReportURL(assignmentID int) string {
	return fmt.Sprintf("/v1/assignments/%d/plagiarism-report", assignmentID)
}

func ChartURL(assignmentID int) string {
	return fmt.Sprintf("/v1/assignments/%d/plagiarism-graph", assignmentID)
}

// NotifyPlagiarismReport emails the teacher of the assignment and, when a phone number is known, texts them.
func (svc *Service) NotifyPlagiarismReport(ctx context.Context, a submission.Assignment, notice plagiarism.Notice) error {
	tmpl := "plagiarism_none"
	if notice.Found {
		tmpl = "plagiarism_report"
	}

	if a.TeacherEmail != "" {
		svc.email.SendMessages(&core.EmailMessage{
			To:           []mail.Address{{Name: a.TeacherName, Address: a.TeacherEmail}},
			Subject:      fmt.Sprintf("Plagiarism Report for Assignment %s", a.Title),
			TemplateName: tmpl,
			TemplateData: reportData{
				TeacherName: a.TeacherName,
				Title:       a.Title,
				ReportURL:   ReportURL(a.ID),
				ChartURL:    ChartURL(a.ID),
			},
			FrontendBaseURL: svc.frontendBaseURL,
		})
	} else {
		svc.logger.Warn("no email address for teacher", "assignment", a.ID, "teacher", a.TeacherID)
	}

	if svc.sms == nil {
		return nil
	}
	if a.TeacherPhone == "" {
		svc.logger.Warn("no phone number for teacher", "assignment", a.ID, "teacher", a.TeacherID)
		return nil
	}
	if err := svc.sms.SendSMS(ctx, a.TeacherPhone, "Plagiarism check completed for assignment: "+a.Title); err != nil {
		return errors.Wrapf(err, "texting teacher %d", a.TeacherID)
	}
	return nil
}
