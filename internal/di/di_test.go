package di

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/swarnavarsha1/gmail-outlook-automation/internal/config"
	"github.com/swarnavarsha1/gmail-outlook-automation/internal/core"
)

const testConfig = `
llm:
  provider: openai
openai:
  api_key: sk-test
knowledge:
  index_path: %s
outlook:
  accounts:
    - email: support@example.com
      tenant_id: tenant
      client_id: client
      client_secret: secret
`

func writeConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	body := []byte(fmt.Sprintf(testConfig, filepath.Join(dir, "index.db")))
	require.NoError(t, os.WriteFile(path, body, 0o600))
	return path
}

func TestCLIContainerBuildsAutomationService(t *testing.T) {
	container, err := BuildCLIContainer(&CLIFlags{
		ConfigFile: writeConfig(t),
		SendMode:   "send",
	})
	require.NoError(t, err)

	err = container.Invoke(func(cfg *config.Config, service *core.AutomationService) {
		assert.Equal(t, "send", cfg.GetWorkflow().SendMode)
		accounts := service.Accounts()
		require.Len(t, accounts, 1)
		assert.Equal(t, config.ServiceOutlook, accounts[0].Service)
	})
	require.NoError(t, err)
}

func TestCLIContainerAccountsWithoutLLM(t *testing.T) {
	container, err := BuildCLIContainer(&CLIFlags{
		ConfigFile: writeConfig(t),
		Provider:   "unknown",
	})
	require.NoError(t, err)

	// Listing accounts never builds an LLM client
	err = container.Invoke(func(r *config.AccountResolver) {
		assert.Len(t, r.All(), 1)
	})
	require.NoError(t, err)

	err = container.Invoke(func(*core.AutomationService) {})
	assert.ErrorContains(t, err, "unsupported LLM provider: unknown")
}
