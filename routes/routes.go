package routes

import (
	"net/http"
	"time"

	"agencydesk-backend/config"
	"agencydesk-backend/controllers"
	"agencydesk-backend/utils"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

func SetupRouter(cfg *config.Config, log *logrus.Logger, h *controllers.Handler, limiter *config.RateLimiter) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Authorization", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	r.Use(config.PerformanceLogger(log))
	if limiter != nil {
		r.Use(limiter.Middleware())
	}

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	auth := utils.AuthMiddleware(cfg.JWTSecret)
	r.GET("/ws", auth, h.Realtime)

	api := r.Group("/api")
	api.Use(auth)
	{
		api.GET("/me", h.Me)

		// Customer-facing routes
		api.GET("/tickets", h.ListTickets)
		api.POST("/tickets", h.CreateTicket)
		api.GET("/tickets/:id/messages", h.ListTicketMessages)
		api.POST("/tickets/:id/messages", h.AddTicketMessage)

		api.GET("/knowledge-base", h.ListArticles)
		api.POST("/knowledge-base/:id/view", h.RecordArticleView)
	}

	admin := api.Group("")
	admin.Use(utils.RequireAdmin())
	{
		admin.GET("/dashboard", h.GetDashboardOverview)
		admin.GET("/analytics", h.GetAnalytics)

		customers := admin.Group("/customers")
		{
			customers.GET("", h.ListCustomers)
			customers.GET("/export", h.ExportCustomers)
			customers.POST("", h.CreateCustomer)
			customers.PUT("/:id", h.UpdateCustomer)
			customers.DELETE("/:id", h.DeleteCustomer)
		}

		leads := admin.Group("/leads")
		{
			leads.GET("", h.ListLeads)
			leads.POST("", h.CreateLead)
			leads.PUT("/:id", h.UpdateLead)
			leads.DELETE("/:id", h.DeleteLead)
			leads.PUT("/:id/stage", h.MoveLead)
			leads.POST("/:id/convert", h.ConvertLead)
		}

		projects := admin.Group("/projects")
		{
			projects.GET("", h.ListProjects)
			projects.POST("", h.CreateProject)
			projects.PUT("/:id", h.UpdateProject)
			projects.DELETE("/:id", h.DeleteProject)
		}

		tickets := admin.Group("/tickets")
		{
			tickets.PUT("/bulk/status", h.BulkTicketStatus)
			tickets.PUT("/:id", h.UpdateTicket)
			tickets.DELETE("/:id", h.DeleteTicket)
			tickets.PUT("/:id/status", h.SetTicketStatus)
		}

		invoices := admin.Group("/invoices")
		{
			invoices.GET("", h.ListInvoices)
			invoices.POST("", h.CreateInvoice)
			invoices.PUT("/:id", h.UpdateInvoice)
			invoices.DELETE("/:id", h.DeleteInvoice)
			invoices.POST("/:id/pay", h.MarkInvoicePaid)
		}

		domains := admin.Group("/domains")
		{
			domains.GET("", h.ListDomains)
			domains.POST("", h.CreateDomain)
			domains.PUT("/:id", h.UpdateDomain)
			domains.DELETE("/:id", h.DeleteDomain)
			domains.POST("/:id/renew", h.RenewDomain)
		}

		hosting := admin.Group("/hosting")
		{
			hosting.GET("", h.ListHosting)
			hosting.POST("", h.CreateHosting)
			hosting.PUT("/:id", h.UpdateHosting)
			hosting.DELETE("/:id", h.DeleteHosting)
			hosting.PUT("/:id/status", h.SetHostingStatus)
		}

		kb := admin.Group("/knowledge-base")
		{
			kb.POST("", h.CreateArticle)
			kb.PUT("/:id", h.UpdateArticle)
			kb.DELETE("/:id", h.DeleteArticle)
			kb.PUT("/:id/publish", h.ToggleArticlePublished)
		}

		// Settings routes
		settings := admin.Group("/settings")
		{
			settings.GET("/domain-pricing", h.ListDomainPricing)
			settings.POST("/domain-pricing", h.CreateDomainPricing)
			settings.PUT("/domain-pricing/bulk-adjust", h.BulkAdjustDomainPricing)
			settings.PUT("/domain-pricing/:id", h.UpdateDomainPricing)
			settings.DELETE("/domain-pricing/:id", h.DeleteDomainPricing)

			settings.GET("/service-defaults", h.ListServiceDefaults)
			settings.POST("/service-defaults", h.CreateServiceDefault)
			settings.PUT("/service-defaults/bulk-adjust", h.BulkAdjustServiceDefaults)
			settings.PUT("/service-defaults/:id", h.UpdateServiceDefault)
			settings.DELETE("/service-defaults/:id", h.DeleteServiceDefault)

			settings.GET("/integrations", h.ListIntegrations)
			settings.PUT("/integrations/:service", h.ConnectIntegration)
			settings.DELETE("/integrations/:service", h.DisconnectIntegration)
		}
	}

	return r
}
