package handlers

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"f2dhis2/internal/catalog"
	"f2dhis2/internal/mapping"
	"f2dhis2/internal/models"
)

// createDataValueSetHandler godoc
// @Summary Bind a service to a data set
// @Tags datavaluesets
// @Accept json
// @Produce json
// @Param request body models.CreateDataValueSetRequest true "Binding"
// @Success 201 {object} models.DataValueSet
// @Failure 400 {object} models.APIError "VALIDATION_ERROR"
// @Failure 404 {object} models.APIError "NOT_FOUND"
// @Failure 409 {object} models.APIError "DUPLICATE"
// @Router /datavaluesets [post]
func (a *API) createDataValueSetHandler(c *gin.Context) {
	var req models.CreateDataValueSetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondWithError(c, http.StatusBadRequest, models.ErrorCodeValidation, "Invalid request payload", gin.H{"reason": err.Error()})
		return
	}
	serviceID := uuid.MustParse(req.ServiceID)
	dataSetID := uuid.MustParse(req.DataSetID)

	dvs, err := a.catalog.CreateDataValueSet(c.Request.Context(), serviceID, dataSetID, req.OrgUnit)
	switch {
	case err == nil:
		RespondWithSuccess(c, http.StatusCreated, dvs)
	case errors.Is(err, catalog.ErrNotFound):
		RespondWithError(c, http.StatusNotFound, models.ErrorCodeNotFound, "Service or data set not found.", gin.H{"reason": err.Error()})
	case errors.Is(err, catalog.ErrDuplicate):
		RespondWithError(c, http.StatusConflict, models.ErrorCodeDuplicate, "This service already reports to this data set.", gin.H{"service_id": serviceID, "data_set_id": dataSetID})
	default:
		log.Printf("Create data value set: %v", err)
		RespondWithError(c, http.StatusInternalServerError, models.ErrorCodeInternalServerError, "Failed to create data value set.", nil)
	}
}

// listDataValueSetsHandler godoc
// @Summary List data value sets
// @Tags datavaluesets
// @Produce json
// @Success 200 {array} models.DataValueSet
// @Router /datavaluesets [get]
func (a *API) listDataValueSetsHandler(c *gin.Context) {
	sets, err := a.catalog.ListDataValueSets(c.Request.Context())
	if err != nil {
		RespondWithError(c, http.StatusInternalServerError, models.ErrorCodeInternalServerError, "Failed to list data value sets.", nil)
		return
	}
	RespondWithSuccess(c, http.StatusOK, sets)
}

// getDataValueSetHandler godoc
// @Summary Get a data value set
// @Tags datavaluesets
// @Produce json
// @Param dvs_id path string true "Data value set ID (UUID)"
// @Success 200 {object} models.DataValueSet
// @Failure 404 {object} models.APIError "DATA_VALUE_SET_NOT_FOUND"
// @Router /datavaluesets/{dvs_id} [get]
func (a *API) getDataValueSetHandler(c *gin.Context) {
	dvs, ok := a.loadDataValueSet(c)
	if !ok {
		return
	}
	RespondWithSuccess(c, http.StatusOK, dvs)
}

func (a *API) loadDataValueSet(c *gin.Context) (*models.DataValueSet, bool) {
	id, ok := parseUUIDParam(c, "dvs_id")
	if !ok {
		return nil, false
	}
	dvs, err := a.catalog.GetDataValueSet(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			RespondWithError(c, http.StatusNotFound, models.ErrorCodeDataValueSetNotFound, "Data value set not found.", gin.H{"dvs_id": id})
			return nil, false
		}
		RespondWithError(c, http.StatusInternalServerError, models.ErrorCodeInternalServerError, "Failed to load data value set.", nil)
		return nil, false
	}
	return dvs, true
}

// createMappingHandler godoc
// @Summary Map a form field to a data element
// @Description Each data element can be mapped once per data value set.
// @Tags mappings
// @Accept json
// @Produce json
// @Param dvs_id path string true "Data value set ID (UUID)"
// @Param request body models.CreateMappingRequest true "Mapping"
// @Success 201 {object} models.FormDataElement
// @Failure 400 {object} models.APIError "VALIDATION_ERROR"
// @Failure 404 {object} models.APIError "DATA_VALUE_SET_NOT_FOUND or DATA_ELEMENT_NOT_FOUND"
// @Failure 409 {object} models.APIError "MAPPING_CONFLICT"
// @Router /datavaluesets/{dvs_id}/mappings [post]
func (a *API) createMappingHandler(c *gin.Context) {
	dvs, ok := a.loadDataValueSet(c)
	if !ok {
		return
	}
	var req models.CreateMappingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondWithError(c, http.StatusBadRequest, models.ErrorCodeValidation, "Invalid request payload", gin.H{"reason": err.Error()})
		return
	}
	elementID := uuid.MustParse(req.DataElementID)

	m, err := a.mappings.CreateMapping(c.Request.Context(), dvs.ID, elementID, req.FormField)
	switch {
	case err == nil:
		RespondWithSuccess(c, http.StatusCreated, m)
	case errors.Is(err, mapping.ErrMappingConflict):
		RespondWithError(c, http.StatusConflict, models.ErrorCodeMappingConflict, "This data element is already mapped for the data value set.", gin.H{"data_element_id": elementID})
	case errors.Is(err, mapping.ErrElementOutsideDataSet):
		RespondWithError(c, http.StatusBadRequest, models.ErrorCodeValidation, "The data element does not belong to the data value set's data set.", gin.H{"data_element_id": elementID})
	case errors.Is(err, mapping.ErrNotFound):
		RespondWithError(c, http.StatusNotFound, models.ErrorCodeDataElementNotFound, "Data element not found.", gin.H{"data_element_id": elementID})
	default:
		log.Printf("Create mapping for %s: %v", dvs.ID, err)
		RespondWithError(c, http.StatusInternalServerError, models.ErrorCodeInternalServerError, "Failed to create mapping.", nil)
	}
}

// listMappingsHandler godoc
// @Summary List the mappings of a data value set
// @Tags mappings
// @Produce json
// @Param dvs_id path string true "Data value set ID (UUID)"
// @Success 200 {array} models.FormDataElement
// @Failure 404 {object} models.APIError "DATA_VALUE_SET_NOT_FOUND"
// @Router /datavaluesets/{dvs_id}/mappings [get]
func (a *API) listMappingsHandler(c *gin.Context) {
	dvs, ok := a.loadDataValueSet(c)
	if !ok {
		return
	}
	mappings, err := a.mappings.ListMappings(c.Request.Context(), dvs.ID)
	if err != nil {
		RespondWithError(c, http.StatusInternalServerError, models.ErrorCodeInternalServerError, "Failed to list mappings.", nil)
		return
	}
	RespondWithSuccess(c, http.StatusOK, mappings)
}

// deleteMappingHandler godoc
// @Summary Delete a mapping
// @Tags mappings
// @Param dvs_id path string true "Data value set ID (UUID)"
// @Param mapping_id path string true "Mapping ID (UUID)"
// @Success 204
// @Failure 404 {object} models.APIError "MAPPING_NOT_FOUND"
// @Router /datavaluesets/{dvs_id}/mappings/{mapping_id} [delete]
func (a *API) deleteMappingHandler(c *gin.Context) {
	dvsID, ok := parseUUIDParam(c, "dvs_id")
	if !ok {
		return
	}
	mappingID, ok := parseUUIDParam(c, "mapping_id")
	if !ok {
		return
	}
	if err := a.mappings.DeleteMapping(c.Request.Context(), dvsID, mappingID); err != nil {
		if errors.Is(err, mapping.ErrNotFound) {
			RespondWithError(c, http.StatusNotFound, models.ErrorCodeMappingNotFound, "Mapping not found.", gin.H{"mapping_id": mappingID})
			return
		}
		RespondWithError(c, http.StatusInternalServerError, models.ErrorCodeInternalServerError, "Failed to delete mapping.", nil)
		return
	}
	RespondWithSuccess(c, http.StatusNoContent, nil)
}
