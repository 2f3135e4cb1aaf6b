package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MStee09/rocketreport/internal/rules"
	"github.com/MStee09/rocketreport/internal/store"
)

func writeRuleSet(t *testing.T, set *rules.RuleSet) string {
	t.Helper()
	data, err := rules.MarshalRuleSet(set)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "rules.json")
	require.NoError(t, os.WriteFile(path, data, 0644))
	return path
}

func sampleRuleSet() *rules.RuleSet {
	return &rules.RuleSet{Rules: []rules.Rule{
		&rules.FilterRule{ID: "f1", Enabled: true, Conditions: []rules.Condition{
			{Field: "status", Operator: rules.OpEq, Value: rules.Str("delayed")},
		}},
		&rules.AIRule{
			ID: "a1", Enabled: true,
			Prompt: "over $1,000 from CA",
			Status: rules.StatusCompiled,
			Compiled: &rules.CompiledRule{Filters: []rules.CompiledFilter{
				{Field: "total_cost", Operator: rules.OpGt, Value: rules.Num(1000)},
				{Field: "origin_state", Operator: rules.OpEq, Value: rules.Str("CA")},
			}},
		},
	}}
}

func execute(t *testing.T, cmd *cobra.Command, args ...string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func TestCompileCommandLocalOnly(t *testing.T) {
	rootOpts := &RootOptions{Format: "json"}
	cmd := NewCompileCommand(rootOpts)

	out, err := execute(t, cmd, "--local-only", "delayed shipments over $1,500 from CA")
	require.NoError(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)

	data := resp.Data.(map[string]any)
	assert.Equal(t, "local", data["source"])
	assert.Len(t, data["filters"], 3)
}

func TestCompileCommandUnparseable(t *testing.T) {
	rootOpts := &RootOptions{Format: "json"}
	cmd := NewCompileCommand(rootOpts)

	out, err := execute(t, cmd, "--local-only", "the vibes feel wrong")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "error", resp.Status)
	assert.Equal(t, "E_UNPARSEABLE", resp.Error.Code)
}

func TestValidateCommand(t *testing.T) {
	path := writeRuleSet(t, sampleRuleSet())
	rootOpts := &RootOptions{Format: "json"}

	out, err := execute(t, NewValidateCommand(rootOpts), path)
	require.NoError(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)

	data := resp.Data.(map[string]any)
	assert.EqualValues(t, 3, data["flattenedFilters"])
	assert.Len(t, data["rules"], 2)
}

func TestValidateCommandMissingFile(t *testing.T) {
	rootOpts := &RootOptions{Format: "text"}
	_, err := execute(t, NewValidateCommand(rootOpts), "/nonexistent/rules.json")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestValidateCommandReportsDroppedEntries(t *testing.T) {
	payload := `{"version":1,"rules":[
		{"type":"filter","id":"ok","enabled":true,"conditions":[]},
		{"type":"mystery","id":"m1"}
	]}`
	path := filepath.Join(t.TempDir(), "rules.json")
	require.NoError(t, os.WriteFile(path, []byte(payload), 0644))

	rootOpts := &RootOptions{Format: "json"}
	out, err := execute(t, NewValidateCommand(rootOpts), path)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	data := resp.Data.(map[string]any)
	assert.Len(t, data["dropped"], 1)
}

func TestPlanCommand(t *testing.T) {
	path := writeRuleSet(t, sampleRuleSet())
	rootOpts := &RootOptions{Format: "json"}

	out, err := execute(t, NewPlanCommand(rootOpts), path)
	require.NoError(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)

	data := resp.Data.(map[string]any)
	sql := data["sql"].(string)
	assert.Contains(t, sql, "SELECT")
	assert.Contains(t, sql, "WHERE")
	assert.Contains(t, sql, "ORDER BY")
	assert.NotContains(t, sql, "delayed", "values are parameterized, never inlined")
	assert.EqualValues(t, 3, data["filters"])
	assert.Contains(t, data["joins"], "origin_address")
}

func TestRunCommandWithSeededStore(t *testing.T) {
	path := writeRuleSet(t, &rules.RuleSet{Rules: []rules.Rule{
		&rules.FilterRule{ID: "f1", Enabled: true, Conditions: []rules.Condition{
			{Field: "total_cost", Operator: rules.OpGt, Value: rules.Num(1000)},
		}},
	}})
	db := filepath.Join(t.TempDir(), "report.db")
	rootOpts := &RootOptions{Format: "json"}

	out, err := execute(t, NewRunCommand(rootOpts), path, "--db", db, "--seed-demo")
	require.NoError(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)

	// Two demo shipments cost more than 1000.
	data := resp.Data.(map[string]any)
	assert.EqualValues(t, 2, data["count"])
}

func TestCountCommand(t *testing.T) {
	db := filepath.Join(t.TempDir(), "report.db")
	st, err := store.Open(db)
	require.NoError(t, err)
	require.NoError(t, st.Seed(context.Background(),
		store.Shipment{Reference: "SH-1", Status: "delayed", TotalCost: 100},
		store.Shipment{Reference: "SH-2", Status: "delivered", TotalCost: 200},
		store.Shipment{Reference: "SH-3", Status: "delayed", TotalCost: 300},
	))
	require.NoError(t, st.Close())

	path := writeRuleSet(t, &rules.RuleSet{Rules: []rules.Rule{
		&rules.FilterRule{ID: "f1", Enabled: true, Conditions: []rules.Condition{
			{Field: "status", Operator: rules.OpEq, Value: rules.Str("delayed")},
		}},
	}})

	rootOpts := &RootOptions{Format: "json"}
	out, err := execute(t, NewCountCommand(rootOpts), path, "--db", db)
	require.NoError(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	data := resp.Data.(map[string]any)
	assert.EqualValues(t, 2, data["count"])
}

func TestRootCommandRejectsInvalidFormat(t *testing.T) {
	cmd := NewRootCommand()
	_, err := execute(t, cmd, "--format", "xml", "compile", "--local-only", "delayed")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid format")
}
