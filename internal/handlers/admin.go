package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/sneadict/backend/internal/services"
)

type AdminHandler struct {
	statsService  services.StatsService
	exportService services.ExportService
}

func NewAdminHandler(statsService services.StatsService, exportService services.ExportService) *AdminHandler {
	return &AdminHandler{
		statsService:  statsService,
		exportService: exportService,
	}
}

func (ah *AdminHandler) Overview(c *gin.Context) {
	ov, err := ah.statsService.Overview(requestDBC(c))
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, ov)
}

func (ah *AdminHandler) ExportSource(c *gin.Context) {
	sourceID, ok := intParam(c, "sourceID")
	if !ok {
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=source-%d.mdf", sourceID))
	c.Header("Content-Type", "text/plain; charset=utf-8")
	c.Status(http.StatusOK)
	if err := ah.exportService.WriteSourceMDF(requestDBC(c), sourceID, c.Writer); err != nil {
		// Headers are already out; all we can do is log via gin's error list.
		_ = c.Error(err)
	}
}

func (ah *AdminHandler) ExportBundle(c *gin.Context) {
	c.Header("Content-Disposition", "attachment; filename=archive.zip")
	c.Header("Content-Type", "application/zip")
	c.Status(http.StatusOK)
	if err := ah.exportService.WriteBundle(requestDBC(c), c.Writer); err != nil {
		_ = c.Error(err)
	}
}
