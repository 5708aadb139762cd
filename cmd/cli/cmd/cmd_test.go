package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestAllocateJSON(t *testing.T) {
	out, err := execute(t, "allocate", "55555", "--json")
	require.NoError(t, err)
	assert.Contains(t, out, `"weighted_score"`)
	assert.Contains(t, out, `"Nano_Loan"`)
}

func TestAllocateRejectsMalformedCode(t *testing.T) {
	_, err := execute(t, "allocate", "5x5")
	assert.Error(t, err)
}

func TestRulesPrintsDefaults(t *testing.T) {
	out, err := execute(t, "rules")
	require.NoError(t, err)
	assert.Contains(t, out, "filter")
	assert.Contains(t, out, "allocation")
}

func TestValidateReportsDuplicates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "final.csv")
	csv := "SIM_NUMBER,ID_TYPE,ID_NUMBER\ns1,NID,100\ns2,NID,100\ns3,NID,200\n"
	require.NoError(t, os.WriteFile(path, []byte(csv), 0644))

	out, err := execute(t, "validate", path, "--no-color")
	require.Error(t, err)
	assert.Contains(t, out, "NID:100")
}
