package handlers

import (
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"f2dhis2/internal/models"
)

// ProcessResponse reports a manual drain.
type ProcessResponse struct {
	Processed int `json:"processed"`
}

// listQueueHandler godoc
// @Summary List queued submissions
// @Tags queue
// @Produce json
// @Param processed query bool false "Filter by processed state"
// @Success 200 {array} models.DataQueue
// @Failure 400 {object} models.APIError "VALIDATION_ERROR"
// @Router /queue [get]
func (a *API) listQueueHandler(c *gin.Context) {
	var processed *bool
	if raw, ok := c.GetQuery("processed"); ok {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			RespondWithError(c, http.StatusBadRequest, models.ErrorCodeValidation, "Invalid processed parameter: must be true or false.", gin.H{"processed": raw})
			return
		}
		processed = &v
	}

	items, err := a.queue.List(c.Request.Context(), processed)
	if err != nil {
		RespondWithError(c, http.StatusInternalServerError, models.ErrorCodeInternalServerError, "Failed to list data queue.", nil)
		return
	}
	RespondWithSuccess(c, http.StatusOK, items)
}

// processQueueHandler godoc
// @Summary Drain the queue now
// @Description Runs one drain synchronously and reports how many submissions were delivered.
// @Tags queue
// @Produce json
// @Success 200 {object} ProcessResponse
// @Failure 500 {object} models.APIError
// @Router /queue/process [post]
func (a *API) processQueueHandler(c *gin.Context) {
	n, err := a.drainer.Drain(c.Request.Context())
	if err != nil {
		log.Printf("Manual drain failed: %v", err)
		RespondWithError(c, http.StatusInternalServerError, models.ErrorCodeInternalServerError, "Failed to process data queue.", nil)
		return
	}
	RespondWithSuccess(c, http.StatusOK, ProcessResponse{Processed: n})
}
