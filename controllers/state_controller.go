package controllers

import (
	"io"
	"net/http"
	"strconv"

	"sapcontrol-keeper/internal/config"
	"sapcontrol-keeper/internal/host"
	"sapcontrol-keeper/internal/models"
	"sapcontrol-keeper/internal/store"
	"sapcontrol-keeper/states"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
)

// RunnerFactory builds a state runner for the options of one request.
type RunnerFactory func(opts states.Options) *states.Runner

type StateController struct {
	newRunner RunnerFactory
	history   store.Store
	facts     host.Facts
}

/**
 * Create new state controller
 * @param {RunnerFactory} newRunner - Builds a runner per request (dry-run and host vary)
 * @param {store.Store} history - Run history, nil if disabled
 * @param {host.Facts} facts - Facts of the local host
 * @returns {*StateController} New state controller
 */
func NewStateController(newRunner RunnerFactory, history store.Store, facts host.Facts) *StateController {
	return &StateController{newRunner: newRunner, history: history, facts: facts}
}

/**
 * Register state routes
 * @param {*gin.Engine} r - Gin router instance
 * @description
 * - One route per state, arguments as JSON body
 * - /states/apply takes a YAML state file as body
 * - Query "test=true" runs in dry-run mode, "host" selects a remote host
 */
func (sc *StateController) RegisterRoutes(r *gin.Engine) {
	api := r.Group(apiPrefix)
	api.POST("/states/"+states.StateRunning, sc.Running)
	api.POST("/states/"+states.StateDead, sc.Dead)
	api.POST("/states/"+states.StateSLDRegistered, sc.SLDRegistered)
	api.POST("/states/"+states.StateSystemHealthOK, sc.SystemHealthOK)
	api.POST("/states/apply", sc.Apply)
	api.GET("/states/history", sc.History)
}

// runner builds the runner for the query options of a request.
func (sc *StateController) runner(c *gin.Context) (*states.Runner, error) {
	cfg := config.Config.SAPControl
	opts := states.Options{
		Host:     c.Query("host"),
		Fallback: cfg.Fallback,
		Timeout:  cfg.Timeout,
	}
	if v := c.Query("test"); v != "" {
		test, err := strconv.ParseBool(v)
		if err != nil {
			return nil, errors.Errorf("invalid test %q", v)
		}
		opts.Test = test
	}
	if v := c.Query("fallback"); v != "" {
		fallback, err := strconv.ParseBool(v)
		if err != nil {
			return nil, errors.Errorf("invalid fallback %q", v)
		}
		opts.Fallback = fallback
	}
	if v := c.Query("timeout"); v != "" {
		d, err := parseTimeout(v)
		if err != nil {
			return nil, err
		}
		opts.Timeout = d
	}
	if sc.history != nil {
		opts.History = sc.history
	}
	return sc.newRunner(opts), nil
}

// credentials fills empty credentials from basic authentication, or from the
// config if the state targets the local host.
func (sc *StateController) credentials(c *gin.Context, user, password *string) error {
	if *user != "" {
		return nil
	}
	if u, p, ok := c.Request.BasicAuth(); ok {
		*user, *password = u, p
		return nil
	}
	var err error
	*user, *password, err = configCredentials(c, sc.facts, c.Query("host"))
	return err
}

// runState decodes the arguments, runs the state and writes the result.
func runState[A any](sc *StateController, c *gin.Context, creds func(*A) (*string, *string), run func(*states.Runner, *gin.Context, A) (states.Result, error)) {
	var args A
	if err := c.ShouldBindJSON(&args); err != nil {
		badRequest(c, err)
		return
	}
	user, password := creds(&args)
	if err := sc.credentials(c, user, password); err != nil {
		badRequest(c, err)
		return
	}
	r, err := sc.runner(c)
	if err != nil {
		badRequest(c, err)
		return
	}
	res, err := run(r, c, args)
	if err != nil {
		failure(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// Running ensures sapstartsrv of an instance runs
//
//	@Summary		State running
//	@Tags			States
//	@Accept			json
//	@Produce		json
//	@Param			args	body		states.RunningArgs	true	"SID, instance, credentials, restart"
//	@Param			test	query		bool				false	"Dry-run"
//	@Success		200		{object}	states.Result
//	@Router			/sapctl/api/v1/states/running [post]
func (sc *StateController) Running(c *gin.Context) {
	runState(sc, c,
		func(a *states.RunningArgs) (*string, *string) { return &a.Username, &a.Password },
		func(r *states.Runner, c *gin.Context, a states.RunningArgs) (states.Result, error) {
			return r.Running(c.Request.Context(), a)
		})
}

// Dead ensures sapstartsrv of an instance is stopped
//
//	@Summary		State dead
//	@Tags			States
//	@Accept			json
//	@Produce		json
//	@Param			args	body		states.DeadArgs	true	"SID, instance, credentials"
//	@Success		200		{object}	states.Result
//	@Router			/sapctl/api/v1/states/dead [post]
func (sc *StateController) Dead(c *gin.Context) {
	runState(sc, c,
		func(a *states.DeadArgs) (*string, *string) { return &a.Username, &a.Password },
		func(r *states.Runner, c *gin.Context, a states.DeadArgs) (states.Result, error) {
			return r.Dead(c.Request.Context(), a)
		})
}

// SLDRegistered ensures the instance is registered at the SLD
//
//	@Summary		State sld_registered
//	@Tags			States
//	@Accept			json
//	@Produce		json
//	@Param			args	body		states.SLDArgs	true	"SLD connection and log files"
//	@Success		200		{object}	states.Result
//	@Router			/sapctl/api/v1/states/sld_registered [post]
func (sc *StateController) SLDRegistered(c *gin.Context) {
	runState(sc, c,
		func(a *states.SLDArgs) (*string, *string) { return &a.Username, &a.Password },
		func(r *states.Runner, c *gin.Context, a states.SLDArgs) (states.Result, error) {
			return r.SLDRegistered(c.Request.Context(), a)
		})
}

// SystemHealthOK checks system log and work processes
//
//	@Summary		State system_health_ok
//	@Tags			States
//	@Accept			json
//	@Produce		json
//	@Param			args	body		states.HealthArgs	true	"check_from (ddmmyyyy), instance, credentials"
//	@Success		200		{object}	states.Result
//	@Router			/sapctl/api/v1/states/system_health_ok [post]
func (sc *StateController) SystemHealthOK(c *gin.Context) {
	runState(sc, c,
		func(a *states.HealthArgs) (*string, *string) { return &a.Username, &a.Password },
		func(r *states.Runner, c *gin.Context, a states.HealthArgs) (states.Result, error) {
			return r.SystemHealthOK(c.Request.Context(), a)
		})
}

// Apply applies a YAML state file
//
//	@Summary		Apply state file
//	@Tags			States
//	@Accept			application/yaml
//	@Produce		json
//	@Param			test	query		bool	false	"Dry-run"
//	@Success		200		{array}		states.Result
//	@Failure		400		{object}	models.ErrorResponse	"Invalid state file"
//	@Router			/sapctl/api/v1/states/apply [post]
func (sc *StateController) Apply(c *gin.Context) {
	data, err := io.ReadAll(c.Request.Body)
	if err != nil {
		badRequest(c, err)
		return
	}
	decls, err := states.ParseDeclarations(data)
	if err != nil {
		badRequest(c, err)
		return
	}
	r, err := sc.runner(c)
	if err != nil {
		badRequest(c, err)
		return
	}
	results, err := r.Apply(c.Request.Context(), decls)
	if err != nil {
		failure(c, err)
		return
	}
	c.JSON(http.StatusOK, results)
}

// History lists recorded convergence runs
//
//	@Summary		Run history
//	@Tags			States
//	@Produce		json
//	@Param			run		query		string	false	"Run id"
//	@Param			state	query		string	false	"State name"
//	@Param			name	query		string	false	"Target name"
//	@Param			limit	query		int		false	"Maximum number of results"
//	@Success		200		{array}		states.Result
//	@Failure		404		{object}	models.ErrorResponse	"History disabled"
//	@Router			/sapctl/api/v1/states/history [get]
func (sc *StateController) History(c *gin.Context) {
	if sc.history == nil {
		c.JSON(http.StatusNotFound, &models.ErrorResponse{
			Code:  "history.disabled",
			Error: "history is disabled",
		})
		return
	}
	filter := store.Filter{
		RunID: c.Query("run"),
		State: c.Query("state"),
		Name:  c.Query("name"),
		Limit: 100,
	}
	if v := c.Query("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil {
			badRequest(c, errors.Errorf("invalid limit %q", v))
			return
		}
		filter.Limit = limit
	}
	results, err := sc.history.List(c.Request.Context(), filter)
	if err != nil {
		failure(c, err)
		return
	}
	c.JSON(http.StatusOK, results)
}
