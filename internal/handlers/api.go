// Package handlers exposes the synchronisation service over HTTP: the
// Formhub notification endpoint and the administration API.
package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"f2dhis2/internal/catalog"
	"f2dhis2/internal/dhis2"
	"f2dhis2/internal/formhub"
	"f2dhis2/internal/mapping"
	"f2dhis2/internal/queue"
	"f2dhis2/internal/tasks"
)

// FormLoader downloads Formhub form descriptors.
type FormLoader interface {
	LoadForm(ctx context.Context, formURL string) (*formhub.Form, error)
}

// DataSetLoader reads DHIS2 data set metadata.
type DataSetLoader interface {
	LoadDataSet(ctx context.Context, dataSetURL string) (*dhis2.DataSetDescriptor, error)
}

// Dependencies groups what the API needs.
type Dependencies struct {
	Catalog    *catalog.Store
	Mappings   *mapping.Store
	Queue      *queue.Store
	Drainer    tasks.Drainer
	Dispatcher tasks.Dispatcher
	Forms      FormLoader
	DataSets   DataSetLoader
	// Admin holds the Basic auth accounts guarding the administration API.
	// Empty leaves it open.
	Admin gin.Accounts
}

// API provides handlers for the synchronisation service.
type API struct {
	catalog    *catalog.Store
	mappings   *mapping.Store
	queue      *queue.Store
	drainer    tasks.Drainer
	dispatcher tasks.Dispatcher
	forms      FormLoader
	dataSets   DataSetLoader
	admin      gin.Accounts
}

// NewAPI creates a new API handler.
func NewAPI(deps Dependencies) *API {
	return &API{
		catalog:    deps.Catalog,
		mappings:   deps.Mappings,
		queue:      deps.Queue,
		drainer:    deps.Drainer,
		dispatcher: deps.Dispatcher,
		forms:      deps.Forms,
		dataSets:   deps.DataSets,
		admin:      deps.Admin,
	}
}

// RegisterRoutes registers the API routes with the given Gin router.
func (a *API) RegisterRoutes(router *gin.Engine) {
	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Formhub calls this without credentials.
	notify := router.Group("/api/v1/formhub")
	{
		notify.GET("/:id_string/:uuid", a.notifyHandler)
		notify.POST("/:id_string/:uuid", a.notifyHandler)
	}

	v1 := router.Group("/api/v1")
	if len(a.admin) > 0 {
		v1.Use(gin.BasicAuth(a.admin))
	}

	serviceRoutes := v1.Group("/services")
	{
		serviceRoutes.POST("", a.importServiceHandler)
		serviceRoutes.GET("", a.listServicesHandler)
		serviceRoutes.GET("/:service_id", a.getServiceHandler)
		serviceRoutes.POST("/:service_id/refresh", a.refreshServiceHandler)
		serviceRoutes.GET("/:service_id/fields", a.listFormFieldsHandler)
	}

	dataSetRoutes := v1.Group("/datasets")
	{
		dataSetRoutes.POST("", a.importDataSetHandler)
		dataSetRoutes.GET("", a.listDataSetsHandler)
		dataSetRoutes.GET("/:data_set_id", a.getDataSetHandler)
	}

	dvsRoutes := v1.Group("/datavaluesets")
	{
		dvsRoutes.POST("", a.createDataValueSetHandler)
		dvsRoutes.GET("", a.listDataValueSetsHandler)
		dvsRoutes.GET("/:dvs_id", a.getDataValueSetHandler)

		mappingRoutes := dvsRoutes.Group("/:dvs_id/mappings")
		{
			mappingRoutes.POST("", a.createMappingHandler)
			mappingRoutes.GET("", a.listMappingsHandler)
			mappingRoutes.DELETE("/:mapping_id", a.deleteMappingHandler)
		}
	}

	queueRoutes := v1.Group("/queue")
	{
		queueRoutes.GET("", a.listQueueHandler)
		queueRoutes.POST("/process", a.processQueueHandler)
	}
}
