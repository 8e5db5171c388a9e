package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDispStatus(t *testing.T) {
	cases := map[string]StatusCode{
		"SAPControl-GRAY":   StatusStopped,
		"SAPControl-GREEN":  StatusRunning,
		"SAPControl-YELLOW": StatusTransitioning,
		"SAPControl-RED":    StatusError,
	}
	for in, want := range cases {
		got, err := ParseDispStatus(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseDispStatus("SAPControl-BLUE")
	assert.Error(t, err)
}

func TestStatusCodeJSON(t *testing.T) {
	data, err := json.Marshal(struct {
		Status StatusCode `json:"status"`
	}{StatusTransitioning})
	require.NoError(t, err)
	assert.JSONEq(t, `{"status":"transitioning"}`, string(data))
	assert.Equal(t, "StatusCode(9)", StatusCode(9).String())

	var decoded struct {
		Status StatusCode `json:"status"`
	}
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, StatusTransitioning, decoded.Status)
	require.NoError(t, json.Unmarshal([]byte(`{"status":"SAPControl-RED"}`), &decoded))
	assert.Equal(t, StatusError, decoded.Status)
	assert.Error(t, json.Unmarshal([]byte(`{"status":"purple"}`), &decoded))
}

func TestEndpointNames(t *testing.T) {
	ep := InstanceEndpoint{Host: "sapapp01.example.com", InstanceNumber: 7}
	assert.Equal(t, "07", ep.Number())
	assert.Equal(t, "sapapp01", ep.ShortHost())
	assert.Equal(t, ".example.com", ep.Domain())
	assert.Equal(t, "sapapp01.example.com/07", ep.String())

	bare := InstanceEndpoint{Host: "sapapp01"}
	assert.Equal(t, "sapapp01", bare.ShortHost())
	assert.Equal(t, "", bare.Domain())
}

func TestEndpointPasswordNotSerialized(t *testing.T) {
	data, err := json.Marshal(InstanceEndpoint{Username: "sapadm", Password: "secret"})
	require.NoError(t, err)
	assert.NotContains(t, string(data), "secret")
}

func TestParseInstanceNumber(t *testing.T) {
	for in, want := range map[string]int{"0": 0, "00": 0, "7": 7, " 42 ": 42, "99": 99} {
		got, err := ParseInstanceNumber(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	for _, in := range []string{"", "x1", "-1", "100"} {
		_, err := ParseInstanceNumber(in)
		assert.Error(t, err, in)
	}
}

func TestParseSystemLevel(t *testing.T) {
	l, err := ParseSystemLevel("")
	require.NoError(t, err)
	assert.Equal(t, LevelAll, l)

	l, err = ParseSystemLevel("allnohdb")
	require.NoError(t, err)
	assert.Equal(t, LevelAllNoHDB, l)
	assert.Equal(t, "SAPControl-ALLNOHDB-INSTANCES", l.Options())

	_, err = ParseSystemLevel("everything")
	assert.Error(t, err)
}

func TestWorkProcessAbnormal(t *testing.T) {
	assert.False(t, WorkProcessEntry{Status: "Wait"}.Abnormal())
	assert.True(t, WorkProcessEntry{Status: "Ended"}.Abnormal())
	assert.True(t, WorkProcessEntry{Status: "Run", Err: "1"}.Abnormal())
}
