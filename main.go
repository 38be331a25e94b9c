package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"agencydesk-backend/config"
	"agencydesk-backend/controllers"
	"agencydesk-backend/models"
	"agencydesk-backend/notify"
	"agencydesk-backend/routes"
	"agencydesk-backend/services"
	"agencydesk-backend/store"
	"agencydesk-backend/utils"

	"github.com/getsentry/sentry-go"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

var defaultStages = []struct{ name, color string }{
	{"New", "#6366f1"},
	{"Contacted", "#0ea5e9"},
	{"Qualified", "#f59e0b"},
	{"Proposal", "#8b5cf6"},
	{"Converted", "#22c55e"},
	{"Lost", "#ef4444"},
}

var defaultCategories = []struct{ name, color string }{
	{"General", "#64748b"},
	{"Billing", "#f59e0b"},
	{"Technical", "#0ea5e9"},
	{"Domains", "#8b5cf6"},
	{"Hosting", "#22c55e"},
}

func main() {
	cfg := config.Load()
	log := config.NewLogger(cfg.LogLevel, cfg.LogFormat)
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	log.WithField("environment", cfg.Environment).Info("configuration loaded")

	if cfg.SentryDSN != "" {
		err := sentry.Init(sentry.ClientOptions{
			Dsn:              cfg.SentryDSN,
			Environment:      cfg.Environment,
			AttachStacktrace: true,
			BeforeSend: func(event *sentry.Event, hint *sentry.EventHint) *sentry.Event {
				event.User.Email = ""
				event.User.IPAddress = ""
				return event
			},
		})
		if err != nil {
			log.WithError(err).Warn("failed to initialize sentry")
		} else {
			defer sentry.Flush(2 * time.Second)
		}
	}

	if err := config.ConnectDB(cfg, log); err != nil {
		log.WithError(err).Fatal("failed to connect to database")
	}
	if err := config.DB.AutoMigrate(models.All()...); err != nil {
		log.WithError(err).Fatal("failed to migrate database")
	}
	if err := seedDefaults(config.DB); err != nil {
		log.WithError(err).Fatal("failed to seed default data")
	}

	db := store.New(config.DB, logrus.NewEntry(log))
	mailer, err := newMailer(cfg, log)
	if err != nil {
		log.WithError(err).Fatal("failed to load email templates")
	}
	db.RegisterFunction(store.FnSendEmail, mailer.Handle)

	utils.RegisterValidators()
	hub := notify.NewHub(logrus.NewEntry(log), cfg.CORSOrigins...)
	handler, err := controllers.NewHandler(controllers.Options{
		Store:      db,
		Hub:        hub,
		Log:        log,
		FetchLimit: cfg.FetchLimit,
	})
	if err != nil {
		log.WithError(err).Fatal("failed to build handlers")
	}

	reminders := services.NewReminderService(db, log, nil)
	if err := reminders.StartScheduler(cfg.ReminderSchedule); err != nil {
		log.WithError(err).Fatal("invalid reminder schedule")
	}

	limiter := config.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
	stopCleanup := make(chan struct{})
	go func() {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				limiter.Cleanup(3 * time.Minute)
			case <-stopCleanup:
				return
			}
		}
	}()

	r := routes.SetupRouter(cfg, log, handler, limiter)
	printRoutes(log, r)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.WithField("port", cfg.Port).Info("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit
	log.Info("shutting down server")

	close(stopCleanup)
	reminders.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.WithError(err).Error("server forced to shutdown")
	}
	log.Info("server stopped")
}

func newMailer(cfg *config.Config, log *logrus.Logger) (*notify.Mailer, error) {
	catalog, err := notify.LoadCatalog()
	if err != nil {
		return nil, err
	}
	var email notify.EmailSender
	if cfg.SendGridAPIKey != "" {
		email = notify.NewSendGridSender(cfg.SendGridAPIKey, cfg.EmailFrom, cfg.EmailFromName)
	}
	var sms notify.SMSSender
	if cfg.TwilioEnabled() {
		sms = notify.NewTwilioSender(cfg.TwilioAccountSID, cfg.TwilioAuthToken, cfg.TwilioPhoneNumber)
	}
	return notify.NewMailer(notify.MailerConfig{
		FromEmail:   cfg.EmailFrom,
		FromName:    cfg.EmailFromName,
		TemplateIDs: notify.ParseTemplateIDs(cfg.SendGridTemplates),
	}, catalog, email, sms, logrus.NewEntry(log)), nil
}

// seedDefaults inserts the default pipeline stages and ticket categories
// into empty tables.
func seedDefaults(db *gorm.DB) error {
	var count int64
	if err := db.Model(&models.PipelineStage{}).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		for i, s := range defaultStages {
			if err := db.Create(&models.PipelineStage{Name: s.name, Color: s.color, StageOrder: i + 1}).Error; err != nil {
				return err
			}
		}
	}

	if err := db.Model(&models.TicketCategory{}).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		for _, c := range defaultCategories {
			if err := db.Create(&models.TicketCategory{Name: c.name, Color: c.color}).Error; err != nil {
				return err
			}
		}
	}
	return nil
}

func printRoutes(log *logrus.Logger, r *gin.Engine) {
	for _, route := range r.Routes() {
		log.Debugf("%-6s %s", route.Method, route.Path)
	}
}
