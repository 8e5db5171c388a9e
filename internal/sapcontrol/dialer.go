package sapcontrol

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"sapcontrol-keeper/internal/logger"
	"sapcontrol-keeper/internal/models"

	"github.com/pkg/errors"
)

// DefaultTimeout applies when the endpoint has no timeout.
const DefaultTimeout = 300 * time.Second

// ErrorKind classifies connection failures.
type ErrorKind string

const (
	KindCertificate ErrorKind = "certificate"
	KindUnreachable ErrorKind = "unreachable"
)

// ConnectionError is returned when no connection to sapcontrol could be set up.
type ConnectionError struct {
	Host     string
	URL      string
	Kind     ErrorKind
	Err      error
	Fallback error // error of the HTTP attempt, nil if none was made
}

func (e *ConnectionError) Error() string {
	if e.Kind == KindCertificate {
		return fmt.Sprintf("could not verify SSL certificate of %s: %v", e.Host, e.Err)
	}
	return fmt.Sprintf("cannot setup connection to sapcontrol on %s: %v", e.Host, e.Err)
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// IsConnectionError reports whether err is a *ConnectionError.
func IsConnectionError(err error) bool {
	var connErr *ConnectionError
	return errors.As(err, &connErr)
}

/**
 * Build the WSDL URL of a sapcontrol endpoint
 * @param {models.InstanceEndpoint} ep - Endpoint
 * @param {bool} secure - HTTPS on port 5NN14, otherwise HTTP on port 5NN13
 * @returns {string} e.g. https://sapapp01.example.com:50014/?wsdl
 */
func EndpointURL(ep models.InstanceEndpoint, secure bool) string {
	if secure {
		return fmt.Sprintf("https://%s:5%s14/?wsdl", ep.Host, ep.Number())
	}
	return fmt.Sprintf("http://%s:5%s13/?wsdl", ep.Host, ep.Number())
}

// Dialer opens connections to sapcontrol. The zero value is ready to use.
type Dialer struct {
	// CAFile is an additional PEM bundle trusted for HTTPS.
	CAFile string
	// Locate overrides EndpointURL.
	Locate func(ep models.InstanceEndpoint, secure bool) string
}

/**
 * Open a connection to sapcontrol
 * @param {context.Context} ctx - Context for cancellation
 * @param {models.InstanceEndpoint} ep - Endpoint, Host must be resolved
 * @returns {*Client} Client bound to the endpoint that answered
 * @returns {error} *ConnectionError if neither HTTPS nor the HTTP fallback answered
 * @description
 * - Fetches the WSDL over HTTPS (port 5NN14) with basic authentication
 * - On failure and if ep.Fallback is set, retries once over HTTP (port 5NN13)
 *   with certificate verification disabled
 * - Connections are not pooled, every operation dials anew
 */
func (d *Dialer) Dial(ctx context.Context, ep models.InstanceEndpoint) (*Client, error) {
	if ep.Timeout <= 0 {
		ep.Timeout = DefaultTimeout
	}
	locate := d.Locate
	if locate == nil {
		locate = EndpointURL
	}

	url := locate(ep, true)
	logger.Debugf("Retrieving services from %s", url)
	httpClient, err := d.httpClient(ep, true)
	if err != nil {
		return nil, err
	}
	primaryErr := probe(ctx, httpClient, url, ep)
	if primaryErr == nil {
		return newClient(httpClient, url, ep, true), nil
	}

	connErr := &ConnectionError{Host: ep.Host, URL: url, Kind: classify(primaryErr), Err: primaryErr}
	logger.Debugf("Got an exception: %v", primaryErr)
	if connErr.Kind == KindCertificate {
		logger.Errorf("Could not verify SSL certificate of %s", ep.Host)
	} else {
		logger.Errorf("Cannot setup connection to sapcontrol on %s", ep.Host)
	}
	if !ep.Fallback {
		return nil, connErr
	}

	logger.Warnf("HTTPS connection failed, trying over an unsecure HTTP connection!")
	url = locate(ep, false)
	httpClient, err = d.httpClient(ep, false)
	if err != nil {
		return nil, err
	}
	if err := probe(ctx, httpClient, url, ep); err != nil {
		logger.Debugf("Got an exception: %v", err)
		logger.Errorf("Cannot setup connection to sapcontrol on %s", ep.Host)
		connErr.Fallback = err
		return nil, connErr
	}
	return newClient(httpClient, url, ep, false), nil
}

func (d *Dialer) httpClient(ep models.InstanceEndpoint, verify bool) (*http.Client, error) {
	tlsConfig := &tls.Config{InsecureSkipVerify: !verify}
	if verify {
		pool, err := d.rootCAs()
		if err != nil {
			return nil, err
		}
		tlsConfig.RootCAs = pool
	}
	return &http.Client{
		Timeout: ep.Timeout,
		Transport: &http.Transport{
			Proxy:               http.ProxyFromEnvironment,
			TLSClientConfig:     tlsConfig,
			TLSHandshakeTimeout: 10 * time.Second,
			DisableKeepAlives:   true,
		},
	}, nil
}

func (d *Dialer) rootCAs() (*x509.CertPool, error) {
	pool, err := x509.SystemCertPool()
	if err != nil || pool == nil {
		pool = x509.NewCertPool()
	}
	if d.CAFile == "" {
		return pool, nil
	}
	pem, err := os.ReadFile(d.CAFile)
	if err != nil {
		return nil, errors.Wrapf(err, "read CA bundle %s", d.CAFile)
	}
	if !pool.AppendCertsFromPEM(pem) {
		return nil, errors.Errorf("no certificates found in %s", d.CAFile)
	}
	return pool, nil
}

func probe(ctx context.Context, httpClient *http.Client, url string, ep models.InstanceEndpoint) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.SetBasicAuth(ep.Username, ep.Password)
	resp, err := httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode != http.StatusOK {
		return errors.Errorf("GET %s: %s", url, resp.Status)
	}
	return nil
}

func classify(err error) ErrorKind {
	var verifyErr *tls.CertificateVerificationError
	var unknownAuthority x509.UnknownAuthorityError
	var hostname x509.HostnameError
	var invalid x509.CertificateInvalidError
	switch {
	case errors.As(err, &verifyErr),
		errors.As(err, &unknownAuthority),
		errors.As(err, &hostname),
		errors.As(err, &invalid):
		return KindCertificate
	}
	if strings.Contains(err.Error(), "certificate verify failed") {
		return KindCertificate
	}
	return KindUnreachable
}
