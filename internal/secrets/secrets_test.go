package secrets

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEnvKey(t *testing.T) {
	assert.Equal(t, "PROJECTWATCH_SOURCE_NAT_GOV_API_KEY", envKey("nat-gov", "API_KEY"))
	assert.Equal(t, "PROJECTWATCH_SOURCE_COUNTY_PASSWORD", envKey("county", "PASSWORD"))
}

func TestEnvLookup(t *testing.T) {
	t.Setenv("PROJECTWATCH_SOURCE_NAT_GOV_API_KEY", "tok-123")
	t.Setenv("PROJECTWATCH_SOURCE_NAT_GOV_USERNAME", "svc")
	t.Setenv("PROJECTWATCH_SOURCE_NAT_GOV_PASSWORD", "hunter2")

	var e Env
	assert.Equal(t, "tok-123", e.APIKey("nat-gov"))
	assert.Equal(t, "svc", e.Username("nat-gov"))
	assert.Equal(t, "hunter2", e.Password("nat-gov"))
	assert.Empty(t, e.APIKey("unknown"))
}
