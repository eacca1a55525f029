package handlers

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"f2dhis2/internal/catalog"
	"f2dhis2/internal/models"
)

// importDataSetHandler godoc
// @Summary Import a DHIS2 data set
// @Description Reads the data set and its data elements from DHIS2 and creates or refreshes the local copy.
// @Tags datasets
// @Accept json
// @Produce json
// @Param request body models.ImportDataSetRequest true "Data set URL, e.g. https://dhis/api/dataSets/pBOMPrpg1QX"
// @Success 201 {object} models.DataSet
// @Failure 400 {object} models.APIError "VALIDATION_ERROR"
// @Failure 502 {object} models.APIError "BAD_GATEWAY"
// @Router /datasets [post]
func (a *API) importDataSetHandler(c *gin.Context) {
	var req models.ImportDataSetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondWithError(c, http.StatusBadRequest, models.ErrorCodeValidation, "Invalid request payload", gin.H{"reason": err.Error()})
		return
	}

	desc, err := a.dataSets.LoadDataSet(c.Request.Context(), req.URL)
	if err != nil {
		respondUpstreamError(c, "DHIS2", err)
		return
	}

	in := models.DataSet{
		DataSetID: desc.ID,
		Name:      desc.Name,
		Frequency: desc.Frequency(),
		URL:       desc.URL,
	}
	for _, el := range desc.DataElements {
		in.Elements = append(in.Elements, models.DataElement{ElementID: el.ID, Name: el.Name})
	}

	ds, err := a.catalog.UpsertDataSet(c.Request.Context(), in)
	if err != nil {
		log.Printf("Import data set %s: %v", req.URL, err)
		RespondWithError(c, http.StatusInternalServerError, models.ErrorCodeInternalServerError, "Failed to save data set.", nil)
		return
	}
	RespondWithSuccess(c, http.StatusCreated, ds)
}

// listDataSetsHandler godoc
// @Summary List data sets with their data elements
// @Tags datasets
// @Produce json
// @Success 200 {array} models.DataSet
// @Router /datasets [get]
func (a *API) listDataSetsHandler(c *gin.Context) {
	sets, err := a.catalog.ListDataSets(c.Request.Context())
	if err != nil {
		RespondWithError(c, http.StatusInternalServerError, models.ErrorCodeInternalServerError, "Failed to list data sets.", nil)
		return
	}
	RespondWithSuccess(c, http.StatusOK, sets)
}

// getDataSetHandler godoc
// @Summary Get a data set
// @Tags datasets
// @Produce json
// @Param data_set_id path string true "Data set ID (UUID)"
// @Success 200 {object} models.DataSet
// @Failure 404 {object} models.APIError "DATA_SET_NOT_FOUND"
// @Router /datasets/{data_set_id} [get]
func (a *API) getDataSetHandler(c *gin.Context) {
	id, ok := parseUUIDParam(c, "data_set_id")
	if !ok {
		return
	}
	ds, err := a.catalog.GetDataSet(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			RespondWithError(c, http.StatusNotFound, models.ErrorCodeDataSetNotFound, "Data set not found.", gin.H{"data_set_id": id})
			return
		}
		RespondWithError(c, http.StatusInternalServerError, models.ErrorCodeInternalServerError, "Failed to load data set.", nil)
		return
	}
	RespondWithSuccess(c, http.StatusOK, ds)
}
