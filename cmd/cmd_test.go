package cmd

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	root := NewRootCmd()
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func useMemoryBackend(t *testing.T) {
	t.Setenv("ORDERDESK_DATABASE_DRIVER", "memory")
	t.Setenv("ORDERDESK_MESSAGING_DRIVER", "log")
	t.Setenv("ORDERDESK_LOG_LEVEL", "error")
}

func TestPriceCommand(t *testing.T) {
	req := `{
	  "product": {"id": "pz", "name": "Pizza G", "pricing_rule": "MAX_OPTION"},
	  "groups": [
	    {"name": "flavor", "items": [{"name": "Calabresa", "price_delta_cents": 4200}, {"name": "Camarão", "price_delta_cents": 6100}]},
	    {"name": "Borda", "role": "ADDON", "items": [{"name": "Catupiry", "price_delta_cents": 900}]}
	  ],
	  "quantity": 2
	}`

	out, err := run(t, req, "price")
	require.NoError(t, err)
	assert.Contains(t, out, "unit R$ 70,00")
	assert.Contains(t, out, "total R$ 140,00")
}

func TestPriceCommand_MissingFlavor(t *testing.T) {
	req := `{"product": {"id": "pz", "name": "Pizza G", "pricing_rule": "HALF_SUM"}}`
	_, err := run(t, req, "price")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Pizza G")
}

func TestPriceCommand_UnknownRule(t *testing.T) {
	_, err := run(t, `{"product": {"name": "X", "pricing_rule": "AVERAGE"}}`, "price")
	require.Error(t, err)
}

func TestSweepCommands_MemoryBackend(t *testing.T) {
	useMemoryBackend(t)

	out, err := run(t, "", "sweep", "recover")
	require.NoError(t, err)
	assert.Contains(t, out, "recovered 0 orders")

	out, err = run(t, "", "sweep", "notify")
	require.NoError(t, err)
	assert.Contains(t, out, "scanned 0, sent 0, failed 0")

	out, err = run(t, "", "sweep", "purge")
	require.NoError(t, err)
	assert.Contains(t, out, "purged 0 orders")
}

func TestSeedCommand_MemoryBackend(t *testing.T) {
	useMemoryBackend(t)

	out, err := run(t, "", "seed", "--store", "s1", "--orders", "10", "--printed", "50")
	require.NoError(t, err)
	assert.Contains(t, out, "store s1: 10 orders created, 5 printed")
}

func TestSeedCommand_Validation(t *testing.T) {
	useMemoryBackend(t)

	_, err := run(t, "", "seed", "--orders", "0")
	require.Error(t, err)

	_, err = run(t, "", "seed", "--printed", "120")
	require.Error(t, err)
}

func TestInvalidConfigFails(t *testing.T) {
	t.Setenv("ORDERDESK_DATABASE_DRIVER", "oracle")
	_, err := run(t, "", "sweep", "recover")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database.driver")
}
