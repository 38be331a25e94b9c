package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"github.com/sirupsen/logrus"
)

var (
	ErrUnknownTemplate = errors.New("unknown email template")
	ErrInvalidPayload  = errors.New("invalid email payload")
)

// Payload is the input of the send-email function. Data is a flat map.
type Payload struct {
	To       string            `json:"to" validate:"required,email"`
	ToName   string            `json:"to_name,omitempty"`
	Template string            `json:"template" validate:"required"`
	Data     map[string]string `json:"data"`
	SMSTo    string            `json:"sms_to,omitempty"`
}

// Receipt reports what happened on each channel.
type Receipt struct {
	Template  string `json:"template"`
	Email     string `json:"email"` // sent, logged
	MessageID string `json:"message_id,omitempty"`
	SMS       string `json:"sms"` // sent, skipped, failed
	SMSError  string `json:"sms_error,omitempty"`
}

// Email is one outgoing message handed to an EmailSender.
type Email struct {
	To         string
	ToName     string
	Subject    string
	TemplateID string
	Data       map[string]string
}

type EmailSender interface {
	Send(ctx context.Context, e Email) (string, error)
}

// MailerConfig configures the dispatcher.
type MailerConfig struct {
	FromEmail   string
	FromName    string
	TemplateIDs map[string]string
}

// Mailer validates send-email payloads against the catalog and dispatches
// them by email and, for flagged templates, SMS.
type Mailer struct {
	cfg      MailerConfig
	catalog  Catalog
	email    EmailSender
	sms      SMSSender
	validate *validator.Validate
	log      *logrus.Entry
}

// NewMailer builds a mailer. A nil email sender runs in console mode; a nil
// SMS sender disables the SMS channel.
func NewMailer(cfg MailerConfig, catalog Catalog, email EmailSender, sms SMSSender, log *logrus.Entry) *Mailer {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	log = log.WithField("component", "mailer")
	if email == nil {
		log.Warn("email dispatch in console-only mode (set SENDGRID_API_KEY for production)")
	}
	return &Mailer{
		cfg:      cfg,
		catalog:  catalog,
		email:    email,
		sms:      sms,
		validate: validator.New(),
		log:      log,
	}
}

func (m *Mailer) Catalog() Catalog {
	return m.catalog
}

// Handle decodes a raw payload and sends it. Its signature matches a store
// function so it can be registered as send-email.
func (m *Mailer) Handle(ctx context.Context, raw json.RawMessage) (interface{}, error) {
	var p Payload
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	return m.Send(ctx, p)
}

func (m *Mailer) Send(ctx context.Context, p Payload) (Receipt, error) {
	if err := m.validate.Struct(p); err != nil {
		return Receipt{}, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	tmpl, ok := m.catalog[p.Template]
	if !ok {
		return Receipt{}, fmt.Errorf("%w: %q", ErrUnknownTemplate, p.Template)
	}
	if missing := tmpl.Missing(p.Data); len(missing) > 0 {
		return Receipt{}, fmt.Errorf("%w: missing data %s", ErrInvalidPayload, strings.Join(missing, ", "))
	}

	r := Receipt{Template: tmpl.Key, SMS: "skipped"}
	e := Email{
		To:         p.To,
		ToName:     p.ToName,
		Subject:    fill(tmpl.Subject, p.Data),
		TemplateID: m.cfg.TemplateIDs[tmpl.Key],
		Data:       p.Data,
	}

	if m.email == nil {
		m.logToConsole(e)
		r.Email = "logged"
	} else {
		id, err := m.email.Send(ctx, e)
		if err != nil {
			m.log.WithError(err).WithFields(logrus.Fields{"template": tmpl.Key, "to": p.To}).Error("email send failed")
			return r, err
		}
		r.Email = "sent"
		r.MessageID = id
	}

	if tmpl.SMS && p.SMSTo != "" && m.sms != nil {
		sid, err := m.sms.SendSMS(ctx, p.SMSTo, fill(tmpl.SMSText, p.Data))
		if err != nil {
			m.log.WithError(err).WithField("template", tmpl.Key).Warn("sms send failed")
			r.SMS = "failed"
			r.SMSError = err.Error()
		} else {
			r.SMS = "sent"
			r.MessageID = firstNonEmpty(r.MessageID, sid)
		}
	}
	return r, nil
}

func (m *Mailer) logToConsole(e Email) {
	keys := make([]string, 0, len(e.Data))
	for k := range e.Data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	m.log.WithFields(logrus.Fields{
		"to":       e.To,
		"from":     m.cfg.FromEmail,
		"subject":  e.Subject,
		"template": e.TemplateID,
		"data":     strings.Join(keys, ","),
	}).Info("email not sent (console mode)")
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

// SendGridSender sends through SendGrid. Messages with a template id use a
// dynamic template; the rest go out as plain text built from the data.
type SendGridSender struct {
	client    *sendgrid.Client
	fromEmail string
	fromName  string
}

func NewSendGridSender(apiKey, fromEmail, fromName string) *SendGridSender {
	return &SendGridSender{
		client:    sendgrid.NewSendClient(apiKey),
		fromEmail: fromEmail,
		fromName:  fromName,
	}
}

func (s *SendGridSender) Send(ctx context.Context, e Email) (string, error) {
	from := mail.NewEmail(s.fromName, s.fromEmail)
	to := mail.NewEmail(e.ToName, e.To)

	var message *mail.SGMailV3
	if e.TemplateID != "" {
		message = mail.NewV3Mail()
		message.SetFrom(from)
		message.SetTemplateID(e.TemplateID)
		p := mail.NewPersonalization()
		p.AddTos(to)
		for k, v := range e.Data {
			p.SetDynamicTemplateData(k, v)
		}
		message.AddPersonalizations(p)
	} else {
		message = mail.NewSingleEmail(from, e.Subject, to, plainBody(e.Data), "")
	}

	response, err := s.client.SendWithContext(ctx, message)
	if err != nil {
		return "", fmt.Errorf("failed to send email: %w", err)
	}
	if response.StatusCode >= 400 {
		return "", fmt.Errorf("sendgrid returned error status: %d", response.StatusCode)
	}
	if ids := response.Headers["X-Message-Id"]; len(ids) > 0 {
		return ids[0], nil
	}
	return "", nil
}

func plainBody(data map[string]string) string {
	keys := make([]string, 0, len(data))
	for k := range data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var b strings.Builder
	for _, k := range keys {
		fmt.Fprintf(&b, "%s: %s\n", strings.ReplaceAll(k, "_", " "), data[k])
	}
	return b.String()
}

// ParseTemplateIDs reads "key=id,key=id" into a map.
func ParseTemplateIDs(s string) map[string]string {
	out := make(map[string]string)
	for _, pair := range strings.Split(s, ",") {
		k, v, ok := strings.Cut(strings.TrimSpace(pair), "=")
		if !ok || k == "" || v == "" {
			continue
		}
		out[strings.TrimSpace(k)] = strings.TrimSpace(v)
	}
	return out
}
