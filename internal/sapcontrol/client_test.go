package sapcontrol_test

import (
	"context"
	"fmt"
	"regexp"
	"testing"
	"time"

	"sapcontrol-keeper/internal/models"
	"sapcontrol-keeper/internal/sapcontrol"
	"sapcontrol-keeper/internal/sapcontrol/sapcontroltest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func endpoint() models.InstanceEndpoint {
	return models.InstanceEndpoint{
		Host:           "sapapp01.example.com",
		InstanceNumber: 0,
		Username:       "sapadm",
		Password:       "secret",
		Fallback:       true,
		Timeout:        5 * time.Second,
	}
}

func TestEndpointURLIsZeroPadded(t *testing.T) {
	secure := regexp.MustCompile(`^https://sapapp01:5\d{2}14/\?wsdl$`)
	plain := regexp.MustCompile(`^http://sapapp01:5\d{2}13/\?wsdl$`)
	for nr := 0; nr <= 99; nr++ {
		ep := models.InstanceEndpoint{Host: "sapapp01", InstanceNumber: nr}
		s := sapcontrol.EndpointURL(ep, true)
		p := sapcontrol.EndpointURL(ep, false)
		assert.Regexp(t, secure, s)
		assert.Regexp(t, plain, p)
		assert.Contains(t, s, fmt.Sprintf(":5%02d14/", nr))
		assert.Contains(t, p, fmt.Sprintf(":5%02d13/", nr))
	}
}

func TestDialAndList(t *testing.T) {
	srv := sapcontroltest.NewServer(sapcontroltest.State{
		Username: "sapadm",
		Password: "secret",
		Instances: []sapcontrol.InstanceInfo{
			{Hostname: "sapapp01", InstanceNr: 0, DispStatus: models.DispStatusGreen},
		},
	})
	defer srv.Close()

	d := &sapcontrol.Dialer{Locate: srv.Locate}
	client, err := d.Dial(context.Background(), endpoint())
	require.NoError(t, err)

	instances, err := client.GetSystemInstanceList(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, instances, 1)
	assert.Equal(t, models.DispStatusGreen, instances[0].DispStatus)
	assert.Equal(t, 1, srv.Calls("GetSystemInstanceList"))
}

func TestDialRejectedCredentials(t *testing.T) {
	srv := sapcontroltest.NewServer(sapcontroltest.State{Username: "sapadm", Password: "other"})
	defer srv.Close()

	d := &sapcontrol.Dialer{Locate: srv.Locate}
	_, err := d.Dial(context.Background(), endpoint())
	require.Error(t, err)

	var connErr *sapcontrol.ConnectionError
	require.ErrorAs(t, err, &connErr)
	assert.Equal(t, sapcontrol.KindUnreachable, connErr.Kind)
	assert.Error(t, connErr.Fallback)
	assert.True(t, sapcontrol.IsConnectionError(err))
}

func TestDialFallsBackOnCertificateFailure(t *testing.T) {
	secure := sapcontroltest.NewTLSServer(sapcontroltest.State{})
	defer secure.Close()
	plain := sapcontroltest.NewServer(sapcontroltest.State{})
	defer plain.Close()

	d := &sapcontrol.Dialer{Locate: func(ep models.InstanceEndpoint, tls bool) string {
		if tls {
			return secure.URL + "/?wsdl"
		}
		return plain.URL + "/?wsdl"
	}}

	client, err := d.Dial(context.Background(), endpoint())
	require.NoError(t, err)
	assert.False(t, client.Secure())
	assert.Equal(t, plain.URL+"/", client.URL())

	ep := endpoint()
	ep.Fallback = false
	_, err = d.Dial(context.Background(), ep)
	var connErr *sapcontrol.ConnectionError
	require.ErrorAs(t, err, &connErr)
	assert.Equal(t, sapcontrol.KindCertificate, connErr.Kind)
	assert.Nil(t, connErr.Fallback)
	assert.Contains(t, err.Error(), "could not verify SSL certificate")
}

func TestDialUnreachable(t *testing.T) {
	srv := sapcontroltest.NewServer(sapcontroltest.State{})
	srv.Close()

	d := &sapcontrol.Dialer{Locate: srv.Locate}
	_, err := d.Dial(context.Background(), endpoint())
	var connErr *sapcontrol.ConnectionError
	require.ErrorAs(t, err, &connErr)
	assert.Equal(t, sapcontrol.KindUnreachable, connErr.Kind)
	assert.Equal(t, "sapapp01.example.com", connErr.Host)
}

func TestCallFaultsAndText(t *testing.T) {
	srv := sapcontroltest.NewServer(sapcontroltest.State{
		Parameters: map[string]string{"SAPSYSTEMNAME": "S4H"},
		Faults:     map[string]string{"ABAPGetComponentList": "DpAttachStartService failed"},
		Texts:      map[string]string{"StopSystem": "Invalid options"},
	})
	defer srv.Close()

	ctx := context.Background()
	d := &sapcontrol.Dialer{Locate: srv.Locate}
	client, err := d.Dial(ctx, endpoint())
	require.NoError(t, err)

	value, err := client.ParameterValue(ctx, "SAPSYSTEMNAME")
	require.NoError(t, err)
	assert.Equal(t, "S4H", value)

	_, err = client.ParameterValue(ctx, "does/not/exist")
	assert.True(t, sapcontrol.IsFault(err, "Invalid parameter"))

	_, err = client.ABAPGetComponentList(ctx)
	assert.True(t, sapcontrol.IsFault(err, "DpAttachStartService failed"))

	out, err := client.StopSystem(ctx, "SAPControl-ALL-INSTANCES", 300, 300)
	require.NoError(t, err)
	assert.Equal(t, "Invalid options", out)

	out, err = client.StartSystem(ctx, "SAPControl-ALL-INSTANCES", 300)
	require.NoError(t, err)
	assert.Empty(t, out)
	assert.Contains(t, string(srv.LastRequest("StartSystem")), "<options>SAPControl-ALL-INSTANCES</options>")
}
