package controllers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"sapcontrol-keeper/internal/models"
	"sapcontrol-keeper/services"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
)

type InstanceController struct {
	sap *services.SAPControl
}

/**
 * Create new instance controller
 * @param {*services.SAPControl} sap - Execution module used for all operations
 * @returns {*InstanceController} New instance controller
 * @example
 * controller := controllers.NewInstanceController(sap)
 * controller.RegisterRoutes(router)
 */
func NewInstanceController(sap *services.SAPControl) *InstanceController {
	return &InstanceController{sap: sap}
}

/**
 * Register instance routes
 * @param {*gin.Engine} r - Gin router instance
 * @description
 * - Instance status/start/stop
 * - Parameters, properties, processes, ABAP components, syslog and work processes
 */
func (ic *InstanceController) RegisterRoutes(r *gin.Engine) {
	api := r.Group(apiPrefix)
	api.GET("/instances/:nr/status", ic.Status)
	api.POST("/instances/:nr/start", ic.Start)
	api.POST("/instances/:nr/stop", ic.Stop)
	api.GET("/instances/:nr/parameters/:name", ic.Parameter)
	api.GET("/instances/:nr/properties", ic.Properties)
	api.GET("/instances/:nr/processes", ic.Processes)
	api.GET("/instances/:nr/processes/:name", ic.Process)
	api.GET("/instances/:nr/components", ic.Components)
	api.GET("/instances/:nr/syslog", ic.Syslog)
	api.GET("/instances/:nr/wptable", ic.WorkProcesses)
}

// Status reports the dispstatus of an instance
//
//	@Summary		Instance status
//	@Description	Status of the instance on the given host, "error" if it cannot be reached
//	@Tags			Instances
//	@Produce		json
//	@Param			nr		path		string	true	"Instance number"
//	@Param			host	query		string	false	"FQDN, default local host"
//	@Success		200		{object}	StatusResponse
//	@Failure		500		{object}	models.ErrorResponse	"Unexpected sapcontrol response"
//	@Router			/sapctl/api/v1/instances/{nr}/status [get]
func (ic *InstanceController) Status(c *gin.Context) {
	ep, err := endpointFromRequest(c, ic.sap.Facts())
	if err != nil {
		badRequest(c, err)
		return
	}
	status, err := ic.sap.InstanceStatus(c.Request.Context(), ep)
	if err != nil {
		failure(c, err)
		return
	}
	c.JSON(http.StatusOK, &StatusResponse{Status: status})
}

// Start starts an instance and waits until it runs
//
//	@Summary		Start instance
//	@Tags			Instances
//	@Produce		json
//	@Param			nr		path		string	true	"Instance number"
//	@Param			timeout	query		string	false	"Seconds or duration to wait"
//	@Success		200		{object}	OKResponse
//	@Router			/sapctl/api/v1/instances/{nr}/start [post]
func (ic *InstanceController) Start(c *gin.Context) {
	ic.control(c, ic.sap.InstanceStart)
}

// Stop stops an instance and waits until it is stopped
//
//	@Summary		Stop instance
//	@Tags			Instances
//	@Produce		json
//	@Param			nr		path		string	true	"Instance number"
//	@Param			timeout	query		string	false	"Seconds or duration to wait"
//	@Success		200		{object}	OKResponse
//	@Router			/sapctl/api/v1/instances/{nr}/stop [post]
func (ic *InstanceController) Stop(c *gin.Context) {
	ic.control(c, ic.sap.InstanceStop)
}

func (ic *InstanceController) control(c *gin.Context, fn func(ctx context.Context, ep models.InstanceEndpoint, timeout time.Duration) (bool, error)) {
	ep, err := endpointFromRequest(c, ic.sap.Facts())
	if err != nil {
		badRequest(c, err)
		return
	}
	ok, err := fn(c.Request.Context(), ep, ep.Timeout)
	if err != nil {
		failure(c, err)
		return
	}
	c.JSON(http.StatusOK, &OKResponse{OK: ok})
}

// ParameterResponse is the result of a parameter query, Value is null for unknown parameters.
type ParameterResponse struct {
	OK    bool    `json:"ok"`
	Value *string `json:"value"`
}

// Parameter returns the value of a profile parameter
//
//	@Summary		Profile parameter value
//	@Tags			Instances
//	@Produce		json
//	@Param			nr		path		string	true	"Instance number"
//	@Param			name	path		string	true	"Parameter name"
//	@Success		200		{object}	ParameterResponse
//	@Router			/sapctl/api/v1/instances/{nr}/parameters/{name} [get]
func (ic *InstanceController) Parameter(c *gin.Context) {
	ep, err := endpointFromRequest(c, ic.sap.Facts())
	if err != nil {
		badRequest(c, err)
		return
	}
	ok, value, err := ic.sap.ParameterValue(c.Request.Context(), ep, c.Param("name"))
	if err != nil {
		failure(c, err)
		return
	}
	c.JSON(http.StatusOK, &ParameterResponse{OK: ok, Value: value})
}

// Properties returns the instance properties
//
//	@Summary		Instance properties
//	@Tags			Instances
//	@Produce		json
//	@Param			nr	path		string	true	"Instance number"
//	@Success		200	{object}	map[string]string
//	@Failure		502	{object}	models.ErrorResponse	"sapcontrol unreachable"
//	@Router			/sapctl/api/v1/instances/{nr}/properties [get]
func (ic *InstanceController) Properties(c *gin.Context) {
	ep, err := endpointFromRequest(c, ic.sap.Facts())
	if err != nil {
		badRequest(c, err)
		return
	}
	props, err := ic.sap.InstanceProperties(c.Request.Context(), ep)
	if err != nil {
		failure(c, err)
		return
	}
	c.JSON(http.StatusOK, props)
}

// Processes lists the processes of an instance
//
//	@Summary		Process list
//	@Tags			Instances
//	@Produce		json
//	@Param			nr	path		string	true	"Instance number"
//	@Success		200	{array}		models.ProcessDescriptor
//	@Failure		502	{object}	models.ErrorResponse	"sapcontrol unreachable"
//	@Router			/sapctl/api/v1/instances/{nr}/processes [get]
func (ic *InstanceController) Processes(c *gin.Context) {
	ep, err := endpointFromRequest(c, ic.sap.Facts())
	if err != nil {
		badRequest(c, err)
		return
	}
	procs, err := ic.sap.ProcessList(c.Request.Context(), ep)
	if err != nil {
		failure(c, err)
		return
	}
	c.JSON(http.StatusOK, procs)
}

// ProcessResponse describes one process, Pid is null if the process is unknown.
type ProcessResponse struct {
	Name   string            `json:"name"`
	Status models.StatusCode `json:"status"`
	Pid    *int              `json:"pid"`
}

// Process returns status and PID of one process
//
//	@Summary		Process status
//	@Tags			Instances
//	@Produce		json
//	@Param			nr		path		string	true	"Instance number"
//	@Param			name	path		string	true	"Process name, e.g. disp+work"
//	@Success		200		{object}	ProcessResponse
//	@Router			/sapctl/api/v1/instances/{nr}/processes/{name} [get]
func (ic *InstanceController) Process(c *gin.Context) {
	ep, err := endpointFromRequest(c, ic.sap.Facts())
	if err != nil {
		badRequest(c, err)
		return
	}
	name := c.Param("name")
	status, err := ic.sap.ProcessStatus(c.Request.Context(), ep, name)
	if err != nil {
		failure(c, err)
		return
	}
	pid, found, err := ic.sap.ProcessPid(c.Request.Context(), ep, name)
	if err != nil {
		failure(c, err)
		return
	}
	resp := &ProcessResponse{Name: name, Status: status}
	if found {
		resp.Pid = &pid
	}
	c.JSON(http.StatusOK, resp)
}

// ComponentsResponse lists the ABAP software components.
type ComponentsResponse struct {
	OK         bool                         `json:"ok"`
	Components []models.ComponentDescriptor `json:"components"`
}

// Components lists the ABAP software components
//
//	@Summary		ABAP components
//	@Description	ok is false if the instance has no ABAP stack or cannot be reached
//	@Tags			Instances
//	@Produce		json
//	@Param			nr	path		string	true	"Instance number"
//	@Success		200	{object}	ComponentsResponse
//	@Router			/sapctl/api/v1/instances/{nr}/components [get]
func (ic *InstanceController) Components(c *gin.Context) {
	ep, err := endpointFromRequest(c, ic.sap.Facts())
	if err != nil {
		badRequest(c, err)
		return
	}
	ok, components, err := ic.sap.ABAPComponentList(c.Request.Context(), ep)
	if err != nil {
		failure(c, err)
		return
	}
	if components == nil {
		components = []models.ComponentDescriptor{}
	}
	c.JSON(http.StatusOK, &ComponentsResponse{OK: ok, Components: components})
}

// Syslog returns system log entries after a point in time
//
//	@Summary		System log (SM21)
//	@Tags			Instances
//	@Produce		json
//	@Param			nr			path		string	true	"Instance number"
//	@Param			since		query		string	false	"RFC 3339 time or local date 2006-01-02, default today"
//	@Param			severity	query		string	false	"Comma separated severities, default SAPControl-RED"
//	@Success		200			{array}		models.SyslogEntry
//	@Router			/sapctl/api/v1/instances/{nr}/syslog [get]
func (ic *InstanceController) Syslog(c *gin.Context) {
	ep, err := endpointFromRequest(c, ic.sap.Facts())
	if err != nil {
		badRequest(c, err)
		return
	}
	since, err := parseSince(c.Query("since"), time.Now())
	if err != nil {
		badRequest(c, err)
		return
	}
	var severities []string
	if v := c.Query("severity"); v != "" {
		severities = strings.Split(v, ",")
	}
	entries, err := ic.sap.SyslogErrors(c.Request.Context(), ep, since, severities)
	if err != nil {
		failure(c, err)
		return
	}
	c.JSON(http.StatusOK, entries)
}

func parseSince(s string, now time.Time) (time.Time, error) {
	if s == "" {
		y, m, d := now.Date()
		return time.Date(y, m, d, 0, 0, 0, 0, time.Local), nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	if t, err := time.ParseInLocation("2006-01-02", s, time.Local); err == nil {
		return t, nil
	}
	return time.Time{}, errors.Errorf("invalid since %q", s)
}

// WorkProcesses returns the work process table
//
//	@Summary		Work process table (SM50)
//	@Tags			Instances
//	@Produce		json
//	@Param			nr	path		string	true	"Instance number"
//	@Success		200	{array}		models.WorkProcessEntry
//	@Router			/sapctl/api/v1/instances/{nr}/wptable [get]
func (ic *InstanceController) WorkProcesses(c *gin.Context) {
	ep, err := endpointFromRequest(c, ic.sap.Facts())
	if err != nil {
		badRequest(c, err)
		return
	}
	wps, err := ic.sap.WorkProcessTable(c.Request.Context(), ep)
	if err != nil {
		failure(c, err)
		return
	}
	c.JSON(http.StatusOK, wps)
}
