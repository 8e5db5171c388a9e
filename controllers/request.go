package controllers

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"sapcontrol-keeper/internal/config"
	"sapcontrol-keeper/internal/host"
	"sapcontrol-keeper/internal/models"
	"sapcontrol-keeper/internal/sapcontrol"
	"sapcontrol-keeper/services"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
)

const apiPrefix = "/sapctl/api/v1"

var errCredentialsRequired = errors.New("basic authentication is required for remote hosts")

// isLocalHost reports whether name is empty or names the local host by FQDN or short name.
func isLocalHost(ctx context.Context, facts host.Facts, name string) bool {
	name = strings.TrimSuffix(name, ".")
	if name == "" {
		return true
	}
	fqdn, err := facts.FQDN(ctx)
	if err != nil || fqdn == "" {
		return false
	}
	short, _, _ := strings.Cut(fqdn, ".")
	return strings.EqualFold(name, fqdn) || strings.EqualFold(name, short)
}

// configCredentials returns the configured credentials, which are only sent to the local host.
func configCredentials(c *gin.Context, facts host.Facts, name string) (string, string, error) {
	if !isLocalHost(c.Request.Context(), facts, name) {
		return "", "", errCredentialsRequired
	}
	cfg := config.Config.SAPControl
	return cfg.Username, cfg.Password, nil
}

/**
 * Build the sapcontrol endpoint of a request
 * @param {*gin.Context} c - Request with path parameter ":nr"
 * @param {host.Facts} facts - Facts of the local host
 * @returns {models.InstanceEndpoint} Endpoint with credentials and options
 * @returns {error} Invalid instance number, fallback or timeout, or missing credentials
 * @description
 * - Credentials from the request's basic authentication
 * - Without basic authentication the configured credentials are used, for the local host only
 * - Query "host" selects a remote host, empty means the local host
 * - Query "fallback" (bool) and "timeout" (seconds or Go duration) override the config
 */
func endpointFromRequest(c *gin.Context, facts host.Facts) (models.InstanceEndpoint, error) {
	nr, err := models.ParseInstanceNumber(c.Param("nr"))
	if err != nil {
		return models.InstanceEndpoint{}, err
	}
	cfg := config.Config.SAPControl
	ep := models.InstanceEndpoint{
		Host:           c.Query("host"),
		InstanceNumber: nr,
		Fallback:       cfg.Fallback,
		Timeout:        cfg.Timeout,
	}
	if user, password, ok := c.Request.BasicAuth(); ok {
		ep.Username, ep.Password = user, password
	} else if ep.Username, ep.Password, err = configCredentials(c, facts, ep.Host); err != nil {
		return ep, err
	}
	if v := c.Query("fallback"); v != "" {
		if ep.Fallback, err = strconv.ParseBool(v); err != nil {
			return ep, errors.Errorf("invalid fallback %q", v)
		}
	}
	if v := c.Query("timeout"); v != "" {
		if ep.Timeout, err = parseTimeout(v); err != nil {
			return ep, err
		}
	}
	return ep, nil
}

// parseTimeout accepts plain seconds or Go durations.
func parseTimeout(s string) (time.Duration, error) {
	if secs, err := strconv.Atoi(s); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return 0, errors.Errorf("invalid timeout %q", s)
	}
	return d, nil
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, &models.ErrorResponse{
		Code:  "request.invalid",
		Error: err.Error(),
	})
}

// failure maps errors of the execution module to HTTP responses.
func failure(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrUnexpected):
		c.JSON(http.StatusInternalServerError, &models.ErrorResponse{
			Code:  "sapcontrol.unexpected",
			Error: err.Error(),
		})
	case sapcontrol.IsConnectionError(err):
		c.JSON(http.StatusBadGateway, &models.ErrorResponse{
			Code:  "sapcontrol.unreachable",
			Error: err.Error(),
		})
	default:
		c.JSON(http.StatusInternalServerError, &models.ErrorResponse{
			Error: err.Error(),
		})
	}
}

// OKResponse is returned by operations that succeed or fail as a whole.
type OKResponse struct {
	OK bool `json:"ok"`
}

// StatusResponse carries a single status.
type StatusResponse struct {
	Status models.StatusCode `json:"status"`
}
