package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/njprem/Porder_APP_BackEnd/internal/domain"
	"github.com/njprem/Porder_APP_BackEnd/internal/repository/ports"
)

// DefaultEmailBody is used when a send request carries no body.
const DefaultEmailBody = "안녕하세요.\n\n발주서를 첨부파일로 보내드립니다.\n\n확인 후 회신 부탁드립니다.\n\n감사합니다."

var (
	ErrEmailMissingFields = errors.New("recipient, subject and attachment are required")
	ErrAttachmentNotFound = errors.New("attachment not found")
	ErrTemplateNameEmpty  = errors.New("template name is required")
)

type orderMailer interface {
	Send(ctx context.Context, msg domain.OutgoingEmail) (string, bool, error)
}

type SendInput struct {
	To            string
	Subject       string
	Body          string
	AttachmentKey string
	TemplateName  string
	ScheduleTime  *time.Time
}

type SendResult struct {
	MessageID    string     `json:"messageId,omitempty"`
	SentAt       time.Time  `json:"sentAt"`
	Simulation   bool       `json:"simulation,omitempty"`
	Scheduled    bool       `json:"scheduled,omitempty"`
	ScheduleTime *time.Time `json:"scheduleTime,omitempty"`
}

type EmailService struct {
	storage   ports.ObjectStorage
	bucket    string
	mailer    orderMailer
	history   ports.EmailHistoryRepository
	templates ports.EmailTemplateRepository
	now       func() time.Time
}

func NewEmailService(storage ports.ObjectStorage, generatedBucket string, mailer orderMailer, history ports.EmailHistoryRepository, templates ports.EmailTemplateRepository) *EmailService {
	return &EmailService{
		storage:   storage,
		bucket:    generatedBucket,
		mailer:    mailer,
		history:   history,
		templates: templates,
		now:       time.Now,
	}
}

// Send mails a generated purchase order. A schedule time in the future is
// acknowledged without sending. Every attempted send is recorded in the
// history, including failures.
func (s *EmailService) Send(ctx context.Context, in SendInput) (*SendResult, error) {
	in.To = strings.TrimSpace(in.To)
	in.Subject = strings.TrimSpace(in.Subject)
	in.AttachmentKey = strings.TrimSpace(in.AttachmentKey)
	if in.To == "" || in.Subject == "" || in.AttachmentKey == "" {
		return nil, ErrEmailMissingFields
	}

	attachment, err := s.storage.Get(ctx, s.bucket, in.AttachmentKey)
	if err != nil {
		if errors.Is(err, ports.ErrObjectNotFound) {
			return nil, ErrAttachmentNotFound
		}
		return nil, fmt.Errorf("load attachment: %w", err)
	}

	subject, body := in.Subject, in.Body
	if body == "" {
		body = DefaultEmailBody
	}
	if in.TemplateName != "" && s.templates != nil {
		tpl, err := s.templates.FindByName(ctx, in.TemplateName)
		switch {
		case err == nil:
			if tpl.Subject != "" {
				subject = tpl.Subject
			}
			if tpl.Body != "" {
				body = tpl.Body
			}
		case errors.Is(err, ports.ErrTemplateNotFound):
			log.Printf("email: template %q not found, sending as given", in.TemplateName)
		default:
			return nil, fmt.Errorf("load template: %w", err)
		}
	}

	now := s.now()
	if in.ScheduleTime != nil && in.ScheduleTime.After(now) {
		log.Printf("email: scheduled for %s to %s", in.ScheduleTime.Format(time.RFC3339), in.To)
		return &SendResult{SentAt: now, Scheduled: true, ScheduleTime: in.ScheduleTime}, nil
	}

	attachmentName := path.Base(in.AttachmentKey)
	messageID, simulated, sendErr := s.mailer.Send(ctx, domain.OutgoingEmail{
		To:             in.To,
		Subject:        subject,
		Body:           body,
		AttachmentName: attachmentName,
		Attachment:     attachment,
	})

	entry := domain.EmailHistoryEntry{
		ID:             uuid.New(),
		To:             in.To,
		Subject:        subject,
		AttachmentName: attachmentName,
		SentAt:         now.UTC(),
		MessageID:      messageID,
		Status:         domain.EmailStatusSuccess,
	}
	if simulated {
		entry.Status = domain.EmailStatusSimulation
	}
	if sendErr != nil {
		msg := sendErr.Error()
		entry.Status = domain.EmailStatusFailed
		entry.Error = &msg
	}
	if err := s.history.Append(ctx, entry); err != nil {
		log.Printf("email: record history: %v", err)
	}

	if sendErr != nil {
		return nil, fmt.Errorf("send email: %w", sendErr)
	}
	return &SendResult{MessageID: messageID, SentAt: entry.SentAt, Simulation: simulated}, nil
}

func (s *EmailService) SaveTemplate(ctx context.Context, tpl domain.EmailTemplate) (*domain.EmailTemplate, error) {
	tpl.Name = strings.TrimSpace(tpl.Name)
	if tpl.Name == "" {
		return nil, ErrTemplateNameEmpty
	}
	if tpl.Recipients == nil {
		tpl.Recipients = []string{}
	}
	return s.templates.Upsert(ctx, &tpl)
}

// History lists send attempts newest first.
func (s *EmailService) History(ctx context.Context) ([]domain.EmailHistoryEntry, error) {
	entries, err := s.history.List(ctx)
	if err != nil {
		return nil, err
	}
	domain.SortHistoryDesc(entries)
	return entries, nil
}

// DeleteHistory removes the entries at the given positions of the list
// returned by History.
func (s *EmailService) DeleteHistory(ctx context.Context, indices []int) (int, error) {
	if len(indices) == 0 {
		return 0, nil
	}
	return s.history.DeleteByIndices(ctx, indices)
}

func (s *EmailService) ClearHistory(ctx context.Context) error {
	return s.history.Clear(ctx)
}
