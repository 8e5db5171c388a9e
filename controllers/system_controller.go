package controllers

import (
	"net/http"

	"sapcontrol-keeper/internal/models"
	"sapcontrol-keeper/services"

	"github.com/gin-gonic/gin"
)

type SystemController struct {
	sap *services.SAPControl
}

func NewSystemController(sap *services.SAPControl) *SystemController {
	return &SystemController{sap: sap}
}

// RegisterRoutes registers system start/stop and the instance list.
func (sc *SystemController) RegisterRoutes(r *gin.Engine) {
	api := r.Group(apiPrefix)
	api.POST("/systems/:nr/start", sc.Start)
	api.POST("/systems/:nr/stop", sc.Stop)
	api.GET("/systems/:nr/instances", sc.Instances)
}

// Start starts the system and waits until all instances run
//
//	@Summary		Start system
//	@Tags			Systems
//	@Produce		json
//	@Param			nr		path		string	true	"Instance number of any instance of the system"
//	@Param			level	query		string	false	"all, scs, dialog, abap, j2ee, trex, enqrep, hdb, allnohdb"
//	@Param			timeout	query		string	false	"Seconds or duration to wait"
//	@Success		200		{object}	OKResponse
//	@Failure		400		{object}	models.ErrorResponse	"Invalid level"
//	@Router			/sapctl/api/v1/systems/{nr}/start [post]
func (sc *SystemController) Start(c *gin.Context) {
	sc.control(c, true)
}

// Stop stops the system and waits until all instances are stopped
//
//	@Summary		Stop system
//	@Tags			Systems
//	@Produce		json
//	@Param			nr		path		string	true	"Instance number of any instance of the system"
//	@Param			level	query		string	false	"all, scs, dialog, abap, j2ee, trex, enqrep, hdb, allnohdb"
//	@Success		200		{object}	OKResponse
//	@Router			/sapctl/api/v1/systems/{nr}/stop [post]
func (sc *SystemController) Stop(c *gin.Context) {
	sc.control(c, false)
}

func (sc *SystemController) control(c *gin.Context, start bool) {
	ep, err := endpointFromRequest(c, sc.sap.Facts())
	if err != nil {
		badRequest(c, err)
		return
	}
	level, err := models.ParseSystemLevel(c.Query("level"))
	if err != nil {
		badRequest(c, err)
		return
	}
	var ok bool
	if start {
		ok, err = sc.sap.SystemStart(c.Request.Context(), ep, level, ep.Timeout)
	} else {
		ok, err = sc.sap.SystemStop(c.Request.Context(), ep, level, ep.Timeout)
	}
	if err != nil {
		failure(c, err)
		return
	}
	c.JSON(http.StatusOK, &OKResponse{OK: ok})
}

// Instances lists the instances of the system
//
//	@Summary		System instance list
//	@Tags			Systems
//	@Produce		json
//	@Param			nr	path		string	true	"Instance number"
//	@Success		200	{array}		models.SystemInstance
//	@Failure		502	{object}	models.ErrorResponse	"sapcontrol unreachable"
//	@Router			/sapctl/api/v1/systems/{nr}/instances [get]
func (sc *SystemController) Instances(c *gin.Context) {
	ep, err := endpointFromRequest(c, sc.sap.Facts())
	if err != nil {
		badRequest(c, err)
		return
	}
	instances, err := sc.sap.SystemInstanceList(c.Request.Context(), ep, ep.Timeout)
	if err != nil {
		failure(c, err)
		return
	}
	c.JSON(http.StatusOK, instances)
}
