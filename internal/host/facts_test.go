package host

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMatchFQDN(t *testing.T) {
	assert.Equal(t, "sapapp01.example.com", matchFQDN("sapapp01", []string{"localhost.", "sapapp01.example.com."}))
	assert.Equal(t, "SAPAPP01.example.com", matchFQDN("sapapp01", []string{"SAPAPP01.example.com"}))
	assert.Empty(t, matchFQDN("sapapp01", []string{"other.example.com.", "sapapp01"}))
}

func TestStaticFacts(t *testing.T) {
	f := StaticFacts{Hostname: "sapapp01.example.com"}
	fqdn, err := f.FQDN(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "sapapp01.example.com", fqdn)

	_, err = StaticFacts{}.FQDN(context.Background())
	assert.Error(t, err)
}

func TestSystemFactsOS(t *testing.T) {
	os, err := NewSystemFacts().OS(context.Background())
	require.NoError(t, err)
	assert.NotEmpty(t, os)
}
