package handler

import (
	"time"

	"github.com/crm/backend/internal/application/report"
	"github.com/gin-gonic/gin"
)

// dashboardMonths is the default window: the current month and the five before it
const dashboardMonths = 6

// DashboardHandler serves the analytics dashboard
type DashboardHandler struct {
	BaseHandler
	dashboardService *report.DashboardService
	now              func() time.Time
}

// NewDashboardHandler creates a new DashboardHandler
func NewDashboardHandler(dashboardService *report.DashboardService) *DashboardHandler {
	return &DashboardHandler{dashboardService: dashboardService, now: time.Now}
}

// DashboardQuery selects the reporting window; both days are inclusive
type DashboardQuery struct {
	From string `form:"from" binding:"omitempty,datetime=2006-01-02"`
	To   string `form:"to" binding:"omitempty,datetime=2006-01-02"`
}

// Get handles GET /reports/dashboard
func (h *DashboardHandler) Get(c *gin.Context) {
	actor, ok := h.Actor(c)
	if !ok {
		return
	}
	var query DashboardQuery
	if !h.BindQuery(c, &query) {
		return
	}

	today := h.now().UTC()
	to := today
	if query.To != "" {
		to, _ = parseDate(query.To)
	}
	from := time.Date(to.Year(), to.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, 1-dashboardMonths, 0)
	if query.From != "" {
		from, _ = parseDate(query.From)
	}

	dashboard, err := h.dashboardService.Dashboard(c.Request.Context(), actor.Scope, from, to)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, dashboard)
}
