package agent

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientFactory(t *testing.T) {
	factory := &ClientFactory{}

	client, err := factory.NewClient(AuthProfile{Provider: "anthropic", APIKey: "sk-ant-x"})
	require.NoError(t, err)
	assert.Equal(t, "anthropic", client.Provider())

	client, err = factory.NewClient(AuthProfile{Provider: "openai", APIKey: "sk-x"})
	require.NoError(t, err)
	assert.Equal(t, "openai", client.Provider())

	_, err = factory.NewClient(AuthProfile{Provider: "homegrown"})
	assert.Error(t, err)
}

func TestDefaultModel(t *testing.T) {
	assert.Equal(t, "gpt-4o", DefaultModel("openai"))
	assert.Equal(t, "claude-3-5-sonnet-20241022", DefaultModel("anthropic"))
	assert.Equal(t, "claude-3-5-sonnet-20241022", DefaultModel(""))
}
