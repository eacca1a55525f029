package handlers

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"f2dhis2/internal/catalog"
	"f2dhis2/internal/formhub"
	"f2dhis2/internal/models"
)

// respondUpstreamError maps a failed call to Formhub or DHIS2 onto 502/503.
func respondUpstreamError(c *gin.Context, system string, err error) {
	if errors.Is(err, formhub.ErrUnavailable) {
		RespondWithError(c, http.StatusServiceUnavailable, models.ErrorCodeServiceUnavailable, system+" is unreachable.", gin.H{"reason": err.Error()})
		return
	}
	RespondWithError(c, http.StatusBadGateway, models.ErrorCodeBadGateway, "Unexpected answer from "+system+".", gin.H{"reason": err.Error()})
}

// importServiceHandler godoc
// @Summary Import a Formhub form
// @Description Downloads form.json from the given form URL and registers the form as a service.
// @Tags services
// @Accept json
// @Produce json
// @Param request body models.ImportServiceRequest true "Form URL"
// @Success 201 {object} models.Service
// @Failure 400 {object} models.APIError "VALIDATION_ERROR"
// @Failure 409 {object} models.APIError "DUPLICATE"
// @Failure 502 {object} models.APIError "BAD_GATEWAY"
// @Failure 503 {object} models.APIError "SERVICE_UNAVAILABLE"
// @Router /services [post]
func (a *API) importServiceHandler(c *gin.Context) {
	var req models.ImportServiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondWithError(c, http.StatusBadRequest, models.ErrorCodeValidation, "Invalid request payload", gin.H{"reason": err.Error()})
		return
	}

	form, err := a.forms.LoadForm(c.Request.Context(), req.URL)
	if err != nil {
		respondUpstreamError(c, "Formhub", err)
		return
	}

	service := models.Service{
		IDString:   form.IDString,
		Name:       form.Title,
		URL:        form.URL,
		Descriptor: string(form.Raw),
	}
	if err := a.catalog.CreateService(c.Request.Context(), &service); err != nil {
		if errors.Is(err, catalog.ErrDuplicate) {
			RespondWithError(c, http.StatusConflict, models.ErrorCodeDuplicate, "This form is already registered.", gin.H{"id_string": service.IDString, "url": service.URL})
			return
		}
		log.Printf("Import service %s: %v", req.URL, err)
		RespondWithError(c, http.StatusInternalServerError, models.ErrorCodeInternalServerError, "Failed to register service.", nil)
		return
	}
	RespondWithSuccess(c, http.StatusCreated, service)
}

// listServicesHandler godoc
// @Summary List services
// @Tags services
// @Produce json
// @Success 200 {array} models.Service
// @Failure 500 {object} models.APIError
// @Router /services [get]
func (a *API) listServicesHandler(c *gin.Context) {
	services, err := a.catalog.ListServices(c.Request.Context())
	if err != nil {
		RespondWithError(c, http.StatusInternalServerError, models.ErrorCodeInternalServerError, "Failed to list services.", nil)
		return
	}
	RespondWithSuccess(c, http.StatusOK, services)
}

// getServiceHandler godoc
// @Summary Get a service
// @Tags services
// @Produce json
// @Param service_id path string true "Service ID (UUID)"
// @Success 200 {object} models.Service
// @Failure 400 {object} models.APIError "INVALID_ID_FORMAT"
// @Failure 404 {object} models.APIError "SERVICE_NOT_FOUND"
// @Router /services/{service_id} [get]
func (a *API) getServiceHandler(c *gin.Context) {
	service, ok := a.loadService(c)
	if !ok {
		return
	}
	RespondWithSuccess(c, http.StatusOK, service)
}

func (a *API) loadService(c *gin.Context) (*models.Service, bool) {
	id, ok := parseUUIDParam(c, "service_id")
	if !ok {
		return nil, false
	}
	service, err := a.catalog.GetService(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			RespondWithError(c, http.StatusNotFound, models.ErrorCodeServiceNotFound, "Service not found.", gin.H{"service_id": id})
			return nil, false
		}
		RespondWithError(c, http.StatusInternalServerError, models.ErrorCodeInternalServerError, "Failed to load service.", nil)
		return nil, false
	}
	return service, true
}

// refreshServiceHandler godoc
// @Summary Reload a service's form descriptor
// @Description Downloads form.json again and replaces the stored descriptor and title.
// @Tags services
// @Produce json
// @Param service_id path string true "Service ID (UUID)"
// @Success 200 {object} models.Service
// @Failure 404 {object} models.APIError "SERVICE_NOT_FOUND"
// @Failure 502 {object} models.APIError "BAD_GATEWAY"
// @Failure 503 {object} models.APIError "SERVICE_UNAVAILABLE"
// @Router /services/{service_id}/refresh [post]
func (a *API) refreshServiceHandler(c *gin.Context) {
	service, ok := a.loadService(c)
	if !ok {
		return
	}

	form, err := a.forms.LoadForm(c.Request.Context(), service.URL)
	if err != nil {
		respondUpstreamError(c, "Formhub", err)
		return
	}
	if form.IDString != service.IDString {
		RespondWithError(c, http.StatusConflict, models.ErrorCodeConflict, "The form at this URL is now a different form.",
			gin.H{"expected": service.IDString, "found": form.IDString})
		return
	}

	updated, err := a.catalog.UpdateDescriptor(c.Request.Context(), service.ID, form.Title, string(form.Raw))
	if err != nil {
		RespondWithError(c, http.StatusInternalServerError, models.ErrorCodeInternalServerError, "Failed to update service.", nil)
		return
	}
	RespondWithSuccess(c, http.StatusOK, updated)
}

// listFormFieldsHandler godoc
// @Summary List the fields of a service's form
// @Description Flattens the stored form descriptor into the field names used in submissions, for building mappings.
// @Tags services
// @Produce json
// @Param service_id path string true "Service ID (UUID)"
// @Success 200 {array} formhub.Field
// @Failure 404 {object} models.APIError "SERVICE_NOT_FOUND"
// @Router /services/{service_id}/fields [get]
func (a *API) listFormFieldsHandler(c *gin.Context) {
	service, ok := a.loadService(c)
	if !ok {
		return
	}
	if service.Descriptor == "" {
		RespondWithSuccess(c, http.StatusOK, []formhub.Field{})
		return
	}
	form, err := formhub.ParseForm([]byte(service.Descriptor))
	if err != nil {
		RespondWithError(c, http.StatusInternalServerError, models.ErrorCodeInternalServerError, "Stored form descriptor is unreadable; refresh the service.", gin.H{"reason": err.Error()})
		return
	}
	fields := form.Fields()
	if fields == nil {
		fields = []formhub.Field{}
	}
	RespondWithSuccess(c, http.StatusOK, fields)
}
