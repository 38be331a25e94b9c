// services/reminder_service.go
package services

import (
	"context"
	"strconv"
	"time"

	"agencydesk-backend/metrics"
	"agencydesk-backend/models"
	"agencydesk-backend/notify"
	"agencydesk-backend/store"
	"agencydesk-backend/utils"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// Days before an event that trigger a reminder.
const (
	domainNoticeLong   = 30
	domainNoticeShort  = 7
	hostingNotice      = 7
	invoiceReminderDue = 3
)

type ReminderService struct {
	store store.Client
	log   *logrus.Entry
	now   func() time.Time
	cron  *cron.Cron
}

// RunSummary counts what one reminder pass did.
type RunSummary struct {
	Sent          int `json:"sent"`
	Failed        int `json:"failed"`
	Skipped       int `json:"skipped"`
	DomainsLapsed int `json:"domains_lapsed"`
	InvoicesLate  int `json:"invoices_late"`
}

func NewReminderService(s store.Client, log *logrus.Logger, now func() time.Time) *ReminderService {
	if log == nil {
		log = logrus.StandardLogger()
	}
	if now == nil {
		now = time.Now
	}
	return &ReminderService{
		store: s,
		log:   log.WithField("component", "reminders"),
		now:   now,
	}
}

// StartScheduler runs SendDailyReminders on the cron schedule.
func (s *ReminderService) StartScheduler(schedule string) error {
	c := cron.New()
	if _, err := c.AddFunc(schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
		defer cancel()
		s.SendDailyReminders(ctx)
	}); err != nil {
		return err
	}
	c.Start()
	s.cron = c
	s.log.WithField("schedule", schedule).Info("reminder scheduler started")
	return nil
}

// Stop waits for a running pass to finish.
func (s *ReminderService) Stop() {
	if s.cron == nil {
		return
	}
	<-s.cron.Stop().Done()
}

func (s *ReminderService) SendDailyReminders(ctx context.Context) RunSummary {
	s.log.Info("starting daily reminder processing")
	var sum RunSummary

	if err := s.domainReminders(ctx, &sum); err != nil {
		s.log.WithError(err).Error("domain reminders failed")
	}
	if err := s.hostingReminders(ctx, &sum); err != nil {
		s.log.WithError(err).Error("hosting reminders failed")
	}
	if err := s.invoiceReminders(ctx, &sum); err != nil {
		s.log.WithError(err).Error("invoice reminders failed")
	}

	s.log.WithFields(logrus.Fields{
		"sent":           sum.Sent,
		"failed":         sum.Failed,
		"skipped":        sum.Skipped,
		"domains_lapsed": sum.DomainsLapsed,
		"invoices_late":  sum.InvoicesLate,
	}).Info("daily reminder processing completed")
	return sum
}

// domainReminders warns 30 and 7 days ahead and marks lapsed domains expired.
func (s *ReminderService) domainReminders(ctx context.Context, sum *RunSummary) error {
	var domains []models.Domain
	if err := s.store.Query(ctx, store.Domains, store.Where().Eq("status", "active").NotNull("expiry_date"), &domains); err != nil {
		return err
	}
	ids := make([]uuid.UUID, 0, len(domains))
	for _, d := range domains {
		ids = append(ids, d.CustomerID)
	}
	customers, err := s.customers(ctx, ids)
	if err != nil {
		return err
	}

	today := s.now()
	for _, d := range domains {
		days := utils.DaysBetween(today, *d.ExpiryDate)
		var template string
		switch {
		case days < 0:
			if err := store.UpdateByID(ctx, s.store, store.Domains, d.ID, map[string]interface{}{"status": "expired"}); err != nil {
				s.log.WithError(err).WithField("domain", d.DomainName).Warn("failed to mark domain expired")
				continue
			}
			sum.DomainsLapsed++
			template = "domain_expired"
		case days == domainNoticeLong:
			template = "domain_expiring_30"
		case days == domainNoticeShort:
			template = "domain_expiring_7"
		default:
			continue
		}
		s.dispatch(ctx, sum, customers[d.CustomerID], template, "domain", d.ID, map[string]string{
			"domain_name": d.DomainName,
			"expiry_date": utils.FormatDate(d.ExpiryDate),
		})
	}
	return nil
}

func (s *ReminderService) hostingReminders(ctx context.Context, sum *RunSummary) error {
	var accounts []models.HostingAccount
	if err := s.store.Query(ctx, store.HostingAccounts, store.Where().Eq("status", "active").NotNull("renewal_date"), &accounts); err != nil {
		return err
	}
	ids := make([]uuid.UUID, 0, len(accounts))
	for _, a := range accounts {
		ids = append(ids, a.CustomerID)
	}
	customers, err := s.customers(ctx, ids)
	if err != nil {
		return err
	}

	today := s.now()
	for _, a := range accounts {
		if utils.DaysBetween(today, *a.RenewalDate) != hostingNotice {
			continue
		}
		s.dispatch(ctx, sum, customers[a.CustomerID], "hosting_renewal_due", "hosting", a.ID, map[string]string{
			"plan_name":    a.PlanName,
			"renewal_date": utils.FormatDate(a.RenewalDate),
		})
	}
	return nil
}

// invoiceReminders nudges sent invoices before they fall due and flips past
// due ones to overdue.
func (s *ReminderService) invoiceReminders(ctx context.Context, sum *RunSummary) error {
	var invoices []models.Invoice
	if err := s.store.Query(ctx, store.Invoices, store.Where().Eq("status", models.InvoiceSent).NotNull("due_date"), &invoices); err != nil {
		return err
	}
	ids := make([]uuid.UUID, 0, len(invoices))
	for _, inv := range invoices {
		ids = append(ids, inv.CustomerID)
	}
	customers, err := s.customers(ctx, ids)
	if err != nil {
		return err
	}

	today := s.now()
	for _, inv := range invoices {
		days := utils.DaysBetween(today, *inv.DueDate)
		var template string
		switch {
		case days < 0:
			if err := store.UpdateByID(ctx, s.store, store.Invoices, inv.ID, map[string]interface{}{"status": models.InvoiceOverdue}); err != nil {
				s.log.WithError(err).WithField("invoice", inv.InvoiceNumber).Warn("failed to mark invoice overdue")
				continue
			}
			sum.InvoicesLate++
			template = "invoice_overdue"
		case days == invoiceReminderDue:
			template = "invoice_reminder"
		default:
			continue
		}
		s.dispatch(ctx, sum, customers[inv.CustomerID], template, "invoice", inv.ID, map[string]string{
			"invoice_number": inv.InvoiceNumber,
			"amount":         formatMoney(inv.Amount),
			"due_date":       utils.FormatDate(inv.DueDate),
		})
	}
	return nil
}

func (s *ReminderService) customers(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.Profile, error) {
	out := make(map[uuid.UUID]models.Profile, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var profiles []models.Profile
	if err := s.store.Query(ctx, store.Profiles, store.Where().In("id", ids), &profiles); err != nil {
		return nil, err
	}
	for _, p := range profiles {
		out[p.ID] = p
	}
	return out, nil
}

// dispatch sends one reminder and records it in the notification log.
func (s *ReminderService) dispatch(ctx context.Context, sum *RunSummary, to models.Profile, template, entityType string, entityID uuid.UUID, data map[string]string) {
	if to.Email == "" {
		sum.Skipped++
		return
	}
	data["name"] = to.FullName
	payload := notify.Payload{To: to.Email, ToName: to.FullName, Template: template, Data: data, SMSTo: to.Phone}

	var receipt notify.Receipt
	err := s.store.Invoke(ctx, store.FnSendEmail, payload, &receipt)
	entry := models.NotificationLog{
		Template:   template,
		Recipient:  to.Email,
		Channel:    "email",
		Status:     "sent",
		EntityType: entityType,
		EntityID:   &entityID,
		SentAt:     s.now(),
	}
	if err != nil {
		s.log.WithError(err).WithFields(logrus.Fields{"template": template, "to": to.Email}).Warn("reminder dispatch failed")
		entry.Status = "failed"
		entry.ErrorMessage = err.Error()
		sum.Failed++
	} else {
		sum.Sent++
	}
	s.record(ctx, entry)

	if receipt.SMS == "sent" || receipt.SMS == "failed" {
		sms := entry
		sms.ID = uuid.Nil
		sms.Recipient = to.Phone
		sms.Channel = "sms"
		sms.Status = receipt.SMS
		sms.ErrorMessage = receipt.SMSError
		s.record(ctx, sms)
	}
}

func (s *ReminderService) record(ctx context.Context, entry models.NotificationLog) {
	metrics.RecordNotification(entry.Template, entry.Status)
	if err := store.InsertRow(ctx, s.store, store.NotificationLogs, &entry); err != nil {
		s.log.WithError(err).WithField("template", entry.Template).Warn("failed to log notification")
	}
}

func formatMoney(v float64) string {
	return "£" + strconv.FormatFloat(v, 'f', 2, 64)
}
