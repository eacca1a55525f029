package handlers

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"f2dhis2/internal/catalog"
)

// NotificationResponse is the answer to a Formhub notification.
type NotificationResponse struct {
	Status   bool   `json:"status"`
	Contents string `json:"contents"`
}

// notifyHandler godoc
// @Summary Notify of a new Formhub submission
// @Description Queues submission {uuid} of form {id_string} for delivery to DHIS2 and requests a background drain. The answer is JSONP when a callback query parameter is given.
// @Tags formhub
// @Produce json
// @Param id_string path string true "Formhub form id_string"
// @Param uuid path string true "Submission uuid"
// @Param callback query string false "JSONP callback"
// @Success 200 {object} NotificationResponse "status=false with contents 'Unknown Service' when the form is not registered"
// @Failure 500 {object} NotificationResponse
// @Router /formhub/{id_string}/{uuid} [get]
// @Router /formhub/{id_string}/{uuid} [post]
func (a *API) notifyHandler(c *gin.Context) {
	idString := c.Param("id_string")
	dataID := c.Param("uuid")
	ctx := c.Request.Context()

	service, err := a.catalog.FindServiceByIDString(ctx, idString)
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			c.JSONP(http.StatusOK, NotificationResponse{Status: false, Contents: "Unknown Service"})
			return
		}
		log.Printf("Notification for %s/%s: %v", idString, dataID, err)
		c.JSONP(http.StatusInternalServerError, NotificationResponse{Status: false, Contents: "Internal error"})
		return
	}

	item, err := a.queue.Enqueue(ctx, service.ID, dataID)
	if err != nil {
		log.Printf("Notification for %s/%s: %v", idString, dataID, err)
		c.JSONP(http.StatusInternalServerError, NotificationResponse{Status: false, Contents: "Internal error"})
		return
	}
	log.Printf("Queued submission %s of %s as item %s", dataID, idString, item.ID)

	// The item is stored; a failed trigger is picked up by the next sweep.
	if err := a.dispatcher.Trigger(ctx, "notification"); err != nil {
		log.Printf("Failed to request drain after notification %s/%s: %v", idString, dataID, err)
	}
	c.JSONP(http.StatusOK, NotificationResponse{Status: true, Contents: "OK"})
}
