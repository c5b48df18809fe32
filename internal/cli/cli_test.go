package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"text/tabwriter"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gopkg.in/yaml.v3"

	"github.com/ogulcanaydogan/liteclient/pkg/model"
)

func writeConfig(t *testing.T, upstreamURL string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	data := fmt.Sprintf(`
upstream:
  base_url: %s
  api_key: sk-test
admin:
  email: admin@example.com
  password: s3cret
storage:
  path: %s
logging:
  level: error
  format: console
`, upstreamURL, filepath.Join(dir, "liteclient.db"))
	require.NoError(t, os.WriteFile(path, []byte(data), 0o600))
	return path
}

func fakeUpstream(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("GET /customer/list", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`[{"user_id":"123","spend":100,"litellm_budget_table":{"max_budget":200}}]`))
	})
	mux.HandleFunc("POST /budget/new", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"budget_id":"team-a","max_budget":50}`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetArgs(nil)
		outputFormat = "table"
	})
	err := rootCmd.Execute()
	return out.String(), err
}

func TestCLI_CustomersList(t *testing.T) {
	cfgPath := writeConfig(t, fakeUpstream(t).URL)

	out, err := execute(t, "--config", cfgPath, "-o", "json", "customers", "list")
	require.NoError(t, err)

	var customers []model.Customer
	require.NoError(t, json.Unmarshal([]byte(out), &customers))
	require.Len(t, customers, 1)
	assert.Equal(t, "123", customers[0].UserID)
	require.NotNil(t, customers[0].MaxBudget)
	assert.Equal(t, 200.0, *customers[0].MaxBudget)
}

func TestCLI_WrongPasswordRejected(t *testing.T) {
	cfgPath := writeConfig(t, fakeUpstream(t).URL)
	t.Cleanup(func() { _ = customersListCmd.Flags().Set("password", "") })

	_, err := execute(t, "--config", cfgPath, "customers", "list", "--password", "nope")
	assert.Error(t, err)
}

func TestCLI_HashOnlyAdminNeedsPassword(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)
	require.NoError(t, err)

	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")
	data := fmt.Sprintf(`
upstream:
  base_url: %s
admin:
  email: admin@example.com
  password_hash: %q
storage:
  path: %s
logging:
  level: error
  format: console
`, fakeUpstream(t).URL, string(hash), filepath.Join(dir, "liteclient.db"))
	require.NoError(t, os.WriteFile(cfgPath, []byte(data), 0o600))
	t.Cleanup(func() { _ = customersListCmd.Flags().Set("password", "") })

	_, err = execute(t, "--config", cfgPath, "customers", "list")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--password is required")

	out, err := execute(t, "--config", cfgPath, "-o", "json", "customers", "list", "--password", "s3cret")
	require.NoError(t, err)
	assert.Contains(t, out, `"user_id": "123"`)
}

func TestCLI_BudgetCreateIsAudited(t *testing.T) {
	cfgPath := writeConfig(t, fakeUpstream(t).URL)

	out, err := execute(t, "--config", cfgPath, "-o", "yaml", "budget", "create", "--id", "team-a", "--max", "50")
	require.NoError(t, err)

	var resp model.BudgetResponse
	require.NoError(t, yaml.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "team-a", resp.BudgetID)

	out, err = execute(t, "--config", cfgPath, "-o", "json", "audit", "list")
	require.NoError(t, err)

	var entries []model.AuditEntry
	require.NoError(t, json.Unmarshal([]byte(out), &entries))
	require.Len(t, entries, 1)
	assert.Equal(t, "budget.createBudget", entries[0].Procedure)
	assert.Equal(t, "admin@example.com", entries[0].Actor)
}

func TestCLI_BudgetCreateRequiresMax(t *testing.T) {
	flags := budgetCreateCmd.Flags()
	flags.Lookup("max").Changed = false
	t.Cleanup(func() { _ = flags.Set("id", "") })

	_, err := execute(t, "budget", "create", "--id", "team-a")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"max"`)
}

func TestCLI_Version(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "liteclient version dev\n", out)
}

func TestRender(t *testing.T) {
	customers := []model.Customer{
		{UserID: "123", Spend: 100, MaxBudget: model.Float(200)},
		{UserID: "456", Spend: 1.5},
	}

	var buf bytes.Buffer
	require.NoError(t, render(&buf, "table", customers, customersTable(customers)))
	assert.Contains(t, buf.String(), "USER ID")
	assert.Contains(t, buf.String(), "$200.00")
	assert.Contains(t, buf.String(), "-")

	buf.Reset()
	require.NoError(t, render(&buf, "json", customers, nil))
	assert.JSONEq(t, `[{"user_id":"123","spend":100,"max_budget":200},{"user_id":"456","spend":1.5,"max_budget":null}]`, buf.String())

	buf.Reset()
	require.NoError(t, render(&buf, "yaml", customers, nil))
	assert.Contains(t, buf.String(), "user_id: \"123\"")

	err := render(&buf, "xml", customers, func(*tabwriter.Writer) {})
	assert.Error(t, err)
}
