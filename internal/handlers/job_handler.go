package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sjperalta/firma-api/internal/services"
)

type JobHandler struct {
	jobService *services.JobService
}

func NewJobHandler(jobSvc *services.JobService) *JobHandler {
	return &JobHandler{
		jobService: jobSvc,
	}
}

// Status returns the current worker status
// @Summary Get background job status
// @Description Worker statistics and the outcome of the latest integrity sweep
// @Tags Jobs
// @Produce json
// @Security BearerAuth
// @Success 200 {object} map[string]interface{}
// @Router /jobs/status [get]
func (h *JobHandler) Status(c *gin.Context) {
	status := h.jobService.GetStatus()
	c.JSON(http.StatusOK, status)
}

// IntegritySweep runs the integrity sweep now instead of waiting for the schedule
// @Summary Run integrity sweep
// @Tags Jobs
// @Produce json
// @Security BearerAuth
// @Success 200 {object} services.SweepStatus
// @Router /jobs/integrity-sweep [post]
func (h *JobHandler) IntegritySweep(c *gin.Context) {
	if err := h.jobService.RunIntegritySweep(c.Request.Context()); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.jobService.LastSweep())
}
