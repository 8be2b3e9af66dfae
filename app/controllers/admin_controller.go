package controllers

import (
	"net/http"

	"github.com/charvilabs/charvi/app/services"
	"github.com/charvilabs/charvi/pkg/response"
)

// AdminController serves the analytics dashboard.
type AdminController struct {
	analytics *services.AnalyticsService
}

func NewAdminController(analytics *services.AnalyticsService) *AdminController {
	return &AdminController{analytics: analytics}
}

// Dashboard returns sales-by-day, revenue-by-category and status counts.
func (c *AdminController) Dashboard(w http.ResponseWriter, r *http.Request) {
	days := int(queryInt64(r, "days", 30))

	dash, err := c.analytics.Dashboard(r.Context(), days)
	if err != nil {
		response.FromError(w, err)
		return
	}
	response.Success(w, dash)
}
