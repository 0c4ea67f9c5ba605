package router

import (
	"github.com/crm/backend/internal/interfaces/http/handler"
	"github.com/crm/backend/internal/interfaces/http/middleware"
	"go.uber.org/zap"
)

// Handlers bundles every HTTP handler of the API
type Handlers struct {
	Auth         *handler.AuthHandler
	User         *handler.UserHandler
	Role         *handler.RoleHandler
	Lead         *handler.LeadHandler
	Deal         *handler.DealHandler
	Task         *handler.TaskHandler
	Note         *handler.NoteHandler
	Expense      *handler.ExpenseHandler
	Invoice      *handler.InvoiceHandler
	Quotation    *handler.QuotationHandler
	Notification *handler.NotificationHandler
	Settings     *handler.SettingsHandler
	Dashboard    *handler.DashboardHandler
	System       *handler.SystemHandler
}

// RegisterAPI registers the CRM resource groups. loginLimiter may be nil.
func RegisterAPI(r *Router, h Handlers, loginLimiter *middleware.RateLimiter, log *zap.Logger) {
	authPublic := NewDomainGroup("auth", "/auth")
	if loginLimiter != nil {
		authPublic.POST("/login", middleware.RateLimit(loginLimiter), h.Auth.Login)
	} else {
		authPublic.POST("/login", h.Auth.Login)
	}
	authPublic.POST("/refresh", h.Auth.RefreshToken)
	r.RegisterPublic(authPublic)

	system := NewDomainGroup("system", "/system").
		GET("/ping", h.System.Ping).
		GET("/info", h.System.GetSystemInfo)
	r.RegisterPublic(system)

	r.Register(NewDomainGroup("session", "/auth").
		POST("/logout", h.Auth.Logout).
		GET("/me", h.Auth.GetCurrentUser).
		PUT("/password", h.Auth.ChangePassword))

	r.Register(userRoutes(h.User, log))
	r.Register(roleRoutes(h.Role, log))
	r.Register(leadRoutes(h.Lead, h.Note))

	r.Register(NewDomainGroup("deals", "/deals").
		POST("", h.Deal.Create).
		GET("", h.Deal.List).
		GET("/:id", h.Deal.GetByID).
		PUT("/:id", h.Deal.Update).
		DELETE("/:id", h.Deal.Delete).
		PUT("/:id/stage", h.Deal.MoveStage))

	r.Register(NewDomainGroup("tasks", "/tasks").
		POST("", h.Task.Create).
		GET("", h.Task.List).
		GET("/:id", h.Task.GetByID).
		PUT("/:id", h.Task.Update).
		DELETE("/:id", h.Task.Delete).
		POST("/:id/complete", h.Task.Complete))

	r.Register(NewDomainGroup("notes", "/notes").
		GET("/:id", h.Note.GetByID).
		PUT("/:id", h.Note.Update).
		DELETE("/:id", h.Note.Delete))

	review := middleware.RequirePermission(middleware.PermExpenseReview, log)
	r.Register(NewDomainGroup("expenses", "/expenses").
		POST("", h.Expense.Create).
		GET("", h.Expense.List).
		GET("/:id", h.Expense.GetByID).
		PUT("/:id", h.Expense.Update).
		DELETE("/:id", h.Expense.Delete).
		POST("/:id/approve", review, h.Expense.Approve).
		POST("/:id/reject", review, h.Expense.Reject).
		POST("/:id/receipt/upload-url", h.Expense.InitiateReceiptUpload).
		POST("/:id/receipt/confirm", h.Expense.ConfirmReceipt).
		GET("/:id/receipt", h.Expense.ReceiptURL))

	r.Register(NewDomainGroup("invoices", "/invoices").
		POST("", h.Invoice.Create).
		GET("", h.Invoice.List).
		GET("/:id", h.Invoice.GetByID).
		PUT("/:id", h.Invoice.Update).
		DELETE("/:id", h.Invoice.Delete).
		POST("/:id/send", h.Invoice.MarkSent).
		POST("/:id/pay", h.Invoice.MarkPaid).
		POST("/:id/cancel", h.Invoice.Cancel).
		GET("/:id/pdf", h.Invoice.PDF))

	r.Register(NewDomainGroup("quotations", "/quotations").
		POST("", h.Quotation.Create).
		GET("", h.Quotation.List).
		GET("/:id", h.Quotation.GetByID).
		PUT("/:id", h.Quotation.Update).
		DELETE("/:id", h.Quotation.Delete).
		POST("/:id/send", h.Quotation.MarkSent).
		POST("/:id/accept", h.Quotation.Accept).
		POST("/:id/reject", h.Quotation.Reject).
		GET("/:id/pdf", h.Quotation.PDF))

	r.Register(NewDomainGroup("notifications", "/notifications").
		GET("", h.Notification.List).
		POST("/read-all", h.Notification.MarkAllRead).
		POST("/:id/read", h.Notification.MarkRead))

	r.Register(NewDomainGroup("settings", "/settings").
		GET("", h.Settings.Get).
		PUT("", middleware.RequirePermission(middleware.PermSettingsWrite, log), h.Settings.Update))

	r.Register(NewDomainGroup("reports", "/reports").
		Use(middleware.RequirePermission(middleware.PermReportRead, log)).
		GET("/dashboard", h.Dashboard.Get))
}

func leadRoutes(leads *handler.LeadHandler, notes *handler.NoteHandler) *DomainGroup {
	return NewDomainGroup("leads", "/leads").
		POST("", leads.Create).
		POST("/import", leads.Import).
		GET("", leads.List).
		GET("/:id", leads.GetByID).
		PUT("/:id", leads.Update).
		DELETE("/:id", leads.Delete).
		PUT("/:id/status", leads.ChangeStatus).
		PUT("/:id/assign", leads.Assign).
		POST("/:id/convert", leads.Convert).
		POST("/:id/notes", notes.Create).
		GET("/:id/notes", notes.ListByLead)
}

func userRoutes(h *handler.UserHandler, log *zap.Logger) *DomainGroup {
	read := middleware.RequireAnyPermission(log, middleware.PermUserRead, middleware.PermUserManage)
	manage := middleware.RequirePermission(middleware.PermUserManage, log)
	return NewDomainGroup("users", "/users").
		GET("", read, h.List).
		GET("/:id", read, h.GetByID).
		POST("", manage, h.Create).
		PUT("/:id", manage, h.Update).
		PUT("/:id/hierarchy", manage, h.UpdateHierarchy).
		PUT("/:id/roles", manage, h.AssignRoles).
		POST("/:id/activate", manage, h.Activate).
		POST("/:id/deactivate", manage, h.Deactivate).
		POST("/:id/force-logout", manage, h.ForceLogout).
		POST("/:id/reset-password", manage, h.ResetPassword).
		DELETE("/:id", manage, h.Delete).
		DELETE("/:id/permanent", manage, h.PermanentDelete)
}

func roleRoutes(h *handler.RoleHandler, log *zap.Logger) *DomainGroup {
	read := middleware.RequireAnyPermission(log, middleware.PermRoleManage, middleware.PermUserManage)
	manage := middleware.RequirePermission(middleware.PermRoleManage, log)
	return NewDomainGroup("roles", "/roles").
		GET("", read, h.List).
		GET("/:id", read, h.GetByID).
		POST("", manage, h.Create).
		PUT("/:id", manage, h.Update).
		POST("/:id/enable", manage, h.Enable).
		POST("/:id/disable", manage, h.Disable).
		DELETE("/:id", manage, h.Delete)
}
