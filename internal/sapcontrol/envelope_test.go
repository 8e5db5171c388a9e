package sapcontrol

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeRequest(t *testing.T) {
	data, err := EncodeRequest(&InstanceStopRequest{Host: "sapapp01", Nr: 0, Softtimeout: 300})
	require.NoError(t, err)

	body := string(data)
	assert.Contains(t, body, `xmlns:SAPControl="urn:SAPControl"`)
	assert.Contains(t, body, "<SAPControl:InstanceStop><host>sapapp01</host><nr>0</nr><softtimeout>300</softtimeout></SAPControl:InstanceStop>")

	op, content, err := OperationName(data)
	require.NoError(t, err)
	assert.Equal(t, "InstanceStop", op)
	assert.Contains(t, string(content), "<softtimeout>300</softtimeout>")
}

func TestDecodeResponseFault(t *testing.T) {
	data := []byte(`<?xml version="1.0"?>
<SOAP-ENV:Envelope xmlns:SOAP-ENV="http://schemas.xmlsoap.org/soap/envelope/">
 <SOAP-ENV:Body>
  <SOAP-ENV:Fault><faultcode>SOAP-ENV:Server</faultcode><faultstring>Invalid parameter</faultstring></SOAP-ENV:Fault>
 </SOAP-ENV:Body>
</SOAP-ENV:Envelope>`)

	var resp ParameterValueResponse
	err := DecodeResponse(data, &resp)
	require.Error(t, err)
	assert.True(t, IsFault(err, "Invalid parameter"))
	assert.False(t, IsFault(err, "Permission denied"))
	assert.EqualError(t, err, "soap fault SOAP-ENV:Server: Invalid parameter")
}

func TestDecodeResponseList(t *testing.T) {
	data := []byte(`<SOAP-ENV:Envelope xmlns:SOAP-ENV="http://schemas.xmlsoap.org/soap/envelope/" xmlns:SAPControl="urn:SAPControl">
<SOAP-ENV:Body><SAPControl:GetSystemInstanceListResponse><instance>
<item><hostname>sapapp01</hostname><instanceNr>0</instanceNr><httpPort>50013</httpPort><httpsPort>50014</httpsPort><startPriority>3</startPriority><features>ABAP|GATEWAY</features><dispstatus>SAPControl-GREEN</dispstatus></item>
<item><hostname>sapapp01</hostname><instanceNr>1</instanceNr><dispstatus>SAPControl-GRAY</dispstatus></item>
</instance></SAPControl:GetSystemInstanceListResponse></SOAP-ENV:Body></SOAP-ENV:Envelope>`)

	var resp GetSystemInstanceListResponse
	require.NoError(t, DecodeResponse(data, &resp))
	require.Len(t, resp.Instances, 2)
	assert.Equal(t, "sapapp01", resp.Instances[0].Hostname)
	assert.Equal(t, 50014, resp.Instances[0].HTTPSPort)
	assert.Equal(t, "ABAP|GATEWAY", resp.Instances[0].Features)
	assert.Equal(t, 1, resp.Instances[1].InstanceNr)
	assert.Equal(t, "SAPControl-GRAY", resp.Instances[1].DispStatus)
}

func TestDecodeResponseEmptyBody(t *testing.T) {
	data := []byte(`<Envelope><Body></Body></Envelope>`)
	assert.NoError(t, DecodeResponse(data, nil))
	assert.Error(t, DecodeResponse(data, &ParameterValueResponse{}))
}
