package config

import (
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(nil)
	require.NoError(t, err)

	assert.Equal(t, int64(42), cfg.Seed)
	assert.Equal(t, "db/ecommerce.db", cfg.DBPath)
	assert.Equal(t, 500, cfg.Customers)
	assert.Equal(t, 200, cfg.Products)
	assert.Equal(t, 1500, cfg.Orders)
	assert.Equal(t, 800, cfg.Reviews)
	assert.False(t, cfg.DryRun)

	ref, err := cfg.Reference()
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), ref)
}

func TestLoad_EnvAndFlags(t *testing.T) {
	t.Setenv("SHOPDATA_SEED", "7")
	t.Setenv("SHOPDATA_DATA_DIR", "from-env")

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.Bool("dry-run", false, "")
	fs.String("data-dir", "data", "")
	require.NoError(t, fs.Parse([]string{"--dry-run", "--data-dir", "from-flag"}))

	cfg, err := Load(fs)
	require.NoError(t, err)

	assert.Equal(t, int64(7), cfg.Seed)
	assert.True(t, cfg.DryRun)
	assert.Equal(t, "from-flag", cfg.DataDir)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{name: "negative count", cfg: Config{Customers: -1, ReferenceTime: "2025-01-01T00:00:00Z"}},
		{name: "orders without customers", cfg: Config{Orders: 1, Products: 1, ReferenceTime: "2025-01-01T00:00:00Z"}},
		{name: "orders without products", cfg: Config{Orders: 1, Customers: 1, ReferenceTime: "2025-01-01T00:00:00Z"}},
		{name: "bad reference time", cfg: Config{ReferenceTime: "yesterday"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Error(t, tt.cfg.Validate())
		})
	}
}
