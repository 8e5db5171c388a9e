package controllers

import (
	"net/http"

	"sapcontrol-keeper/services"

	"github.com/gin-gonic/gin"
)

type ServiceController struct {
	sap *services.SAPControl
}

/**
 * Create new sapstartsrv service controller
 * @param {*services.SAPControl} sap - Execution module
 * @returns {*ServiceController} New service controller
 */
func NewServiceController(sap *services.SAPControl) *ServiceController {
	return &ServiceController{sap: sap}
}

/**
 * Register sapstartsrv service routes
 * @param {*gin.Engine} r - Gin router instance
 * @description
 * - status/start/stop/restart of the sapstartsrv behind sapcontrol
 * - start and restart take the SID as query parameter "sid"
 */
func (s *ServiceController) RegisterRoutes(r *gin.Engine) {
	api := r.Group(apiPrefix)
	api.GET("/services/:nr/status", s.Status)
	api.POST("/services/:nr/start", s.Start)
	api.POST("/services/:nr/stop", s.Stop)
	api.POST("/services/:nr/restart", s.Restart)
}

// Status checks whether sapcontrol answers
//
//	@Summary		sapcontrol reachability
//	@Tags			Services
//	@Produce		json
//	@Param			nr	path		string	true	"Instance number"
//	@Success		200	{object}	OKResponse
//	@Router			/sapctl/api/v1/services/{nr}/status [get]
func (s *ServiceController) Status(c *gin.Context) {
	ep, err := endpointFromRequest(c, s.sap.Facts())
	if err != nil {
		badRequest(c, err)
		return
	}
	ok, err := s.sap.Status(c.Request.Context(), ep)
	if err != nil {
		failure(c, err)
		return
	}
	c.JSON(http.StatusOK, &OKResponse{OK: ok})
}

// Start starts sapstartsrv and waits until sapcontrol answers
//
//	@Summary		Start sapstartsrv
//	@Tags			Services
//	@Produce		json
//	@Param			nr		path		string	true	"Instance number"
//	@Param			sid		query		string	false	"SAP system ID"
//	@Success		200		{object}	OKResponse
//	@Router			/sapctl/api/v1/services/{nr}/start [post]
func (s *ServiceController) Start(c *gin.Context) {
	ep, err := endpointFromRequest(c, s.sap.Facts())
	if err != nil {
		badRequest(c, err)
		return
	}
	ok, err := s.sap.Start(c.Request.Context(), c.Query("sid"), ep, ep.Timeout)
	if err != nil {
		failure(c, err)
		return
	}
	c.JSON(http.StatusOK, &OKResponse{OK: ok})
}

// Stop stops sapstartsrv and waits until sapcontrol stops answering
//
//	@Summary		Stop sapstartsrv
//	@Tags			Services
//	@Produce		json
//	@Param			nr	path		string	true	"Instance number"
//	@Success		200	{object}	OKResponse
//	@Router			/sapctl/api/v1/services/{nr}/stop [post]
func (s *ServiceController) Stop(c *gin.Context) {
	ep, err := endpointFromRequest(c, s.sap.Facts())
	if err != nil {
		badRequest(c, err)
		return
	}
	ok, err := s.sap.Stop(c.Request.Context(), ep, ep.Timeout)
	if err != nil {
		failure(c, err)
		return
	}
	c.JSON(http.StatusOK, &OKResponse{OK: ok})
}

// Restart restarts sapstartsrv, starting it if it does not run
//
//	@Summary		Restart sapstartsrv
//	@Tags			Services
//	@Produce		json
//	@Param			nr	path		string	true	"Instance number"
//	@Param			sid	query		string	false	"SAP system ID"
//	@Success		200	{object}	OKResponse
//	@Router			/sapctl/api/v1/services/{nr}/restart [post]
func (s *ServiceController) Restart(c *gin.Context) {
	ep, err := endpointFromRequest(c, s.sap.Facts())
	if err != nil {
		badRequest(c, err)
		return
	}
	ok, err := s.sap.Restart(c.Request.Context(), c.Query("sid"), ep, ep.Timeout)
	if err != nil {
		failure(c, err)
		return
	}
	c.JSON(http.StatusOK, &OKResponse{OK: ok})
}
