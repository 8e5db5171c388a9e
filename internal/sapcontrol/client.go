package sapcontrol

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"strings"

	"sapcontrol-keeper/internal/models"

	"github.com/pkg/errors"
)

// Client is a typed client bound to one sapcontrol endpoint.
type Client struct {
	http     *http.Client
	url      string
	username string
	password string
	secure   bool
}

func newClient(httpClient *http.Client, wsdlURL string, ep models.InstanceEndpoint, secure bool) *Client {
	return &Client{
		http:     httpClient,
		url:      strings.TrimSuffix(wsdlURL, "?wsdl"),
		username: ep.Username,
		password: ep.Password,
		secure:   secure,
	}
}

// URL is the SOAP endpoint the client posts to.
func (c *Client) URL() string {
	return c.url
}

// Secure reports whether the client talks HTTPS.
func (c *Client) Secure() bool {
	return c.secure
}

/**
 * Invoke a sapcontrol operation
 * @param {context.Context} ctx - Context for cancellation
 * @param {interface{}} req - Request struct, its XMLName selects the operation
 * @param {interface{}} resp - Pointer to the typed response, nil to ignore it
 * @returns {error} *Fault for SOAP faults, transport or decoding errors otherwise
 */
func (c *Client) Call(ctx context.Context, req interface{}, resp interface{}) error {
	payload, err := EncodeRequest(req)
	if err != nil {
		return err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return errors.Wrap(err, "build soap request")
	}
	httpReq.Header.Set("Content-Type", "text/xml; charset=utf-8")
	httpReq.Header.Set("SOAPAction", `""`)
	httpReq.SetBasicAuth(c.username, c.password)

	httpResp, err := c.http.Do(httpReq)
	if err != nil {
		return errors.Wrap(err, "soap request")
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return errors.Wrap(err, "read soap response")
	}
	if httpResp.StatusCode != http.StatusOK {
		// faults come with status 500
		if derr := DecodeResponse(body, nil); derr != nil {
			var fault *Fault
			if errors.As(derr, &fault) {
				return fault
			}
		}
		return errors.Errorf("soap request failed: %s", httpResp.Status)
	}
	return DecodeResponse(body, resp)
}

func (c *Client) callText(ctx context.Context, req interface{}) (string, error) {
	var resp textResponse
	if err := c.Call(ctx, req, &resp); err != nil {
		return "", err
	}
	return strings.TrimSpace(resp.Inner), nil
}

// GetSystemInstanceList lists all instances of the system.
func (c *Client) GetSystemInstanceList(ctx context.Context, timeout int) ([]InstanceInfo, error) {
	var resp GetSystemInstanceListResponse
	if err := c.Call(ctx, &GetSystemInstanceListRequest{Timeout: timeout}, &resp); err != nil {
		return nil, err
	}
	return resp.Instances, nil
}

// InstanceStart triggers the start of an instance and returns immediately.
func (c *Client) InstanceStart(ctx context.Context, host string, nr int) (string, error) {
	return c.callText(ctx, &InstanceStartRequest{Host: host, Nr: nr})
}

// InstanceStop triggers the stop of an instance. Non-empty output is error text.
func (c *Client) InstanceStop(ctx context.Context, host string, nr int, softtimeout int) (string, error) {
	return c.callText(ctx, &InstanceStopRequest{Host: host, Nr: nr, Softtimeout: softtimeout})
}

// StartSystem starts the instances selected by options. Non-empty output is error text.
func (c *Client) StartSystem(ctx context.Context, options string, waittimeout int) (string, error) {
	return c.callText(ctx, &StartSystemRequest{Options: options, Waittimeout: waittimeout})
}

// StopSystem stops the instances selected by options. Non-empty output is error text.
func (c *Client) StopSystem(ctx context.Context, options string, waittimeout, softtimeout int) (string, error) {
	return c.callText(ctx, &StopSystemRequest{Options: options, Waittimeout: waittimeout, Softtimeout: softtimeout})
}

// RestartService restarts sapstartsrv. Non-empty output is error text.
func (c *Client) RestartService(ctx context.Context) (string, error) {
	return c.callText(ctx, &RestartServiceRequest{})
}

// ParameterValue reads a profile parameter.
func (c *Client) ParameterValue(ctx context.Context, parameter string) (string, error) {
	var resp ParameterValueResponse
	if err := c.Call(ctx, &ParameterValueRequest{Parameter: parameter}, &resp); err != nil {
		return "", err
	}
	return resp.Value, nil
}

func (c *Client) ABAPGetComponentList(ctx context.Context) ([]ComponentInfo, error) {
	var resp ABAPGetComponentListResponse
	if err := c.Call(ctx, &ABAPGetComponentListRequest{}, &resp); err != nil {
		return nil, err
	}
	return resp.Components, nil
}

func (c *Client) ABAPReadSyslog(ctx context.Context) ([]SyslogItem, error) {
	var resp ABAPReadSyslogResponse
	if err := c.Call(ctx, &ABAPReadSyslogRequest{}, &resp); err != nil {
		return nil, err
	}
	return resp.Log, nil
}

func (c *Client) ABAPGetSystemWPTable(ctx context.Context, running bool) ([]WorkProcess, error) {
	var resp ABAPGetSystemWPTableResponse
	if err := c.Call(ctx, &ABAPGetSystemWPTableRequest{Running: running}, &resp); err != nil {
		return nil, err
	}
	return resp.WorkProcesses, nil
}

func (c *Client) GetProcessList(ctx context.Context) ([]OSProcess, error) {
	var resp GetProcessListResponse
	if err := c.Call(ctx, &GetProcessListRequest{}, &resp); err != nil {
		return nil, err
	}
	return resp.Processes, nil
}

func (c *Client) GetInstanceProperties(ctx context.Context) ([]InstanceProperty, error) {
	var resp GetInstancePropertiesResponse
	if err := c.Call(ctx, &GetInstancePropertiesRequest{}, &resp); err != nil {
		return nil, err
	}
	return resp.Properties, nil
}
