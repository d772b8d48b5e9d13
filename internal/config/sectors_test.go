package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleSectors = `
sectors:
  - id: bar
    name: Bar
    printer: 10.0.0.21:9100
    print_on: [submit, ready]
  - id: cozinha
    name: Cozinha
`

func TestParseSectors(t *testing.T) {
	ss, err := ParseSectors([]byte(sampleSectors))
	require.NoError(t, err)
	require.Len(t, ss, 2)

	bar, ok := ss.Find("bar")
	require.True(t, ok)
	assert.Equal(t, "10.0.0.21:9100", bar.Printer)
	assert.True(t, bar.Prints(PrintOnReady))

	kitchen, ok := ss.Find("cozinha")
	require.True(t, ok)
	assert.Equal(t, []string{PrintOnSubmit}, kitchen.PrintOn, "print_on defaults to submit")
	assert.False(t, kitchen.Prints(PrintOnReady))

	_, ok = ss.Find("nope")
	assert.False(t, ok)
}

func TestParseSectors_Invalid(t *testing.T) {
	_, err := ParseSectors([]byte("sectors:\n  - name: x\n"))
	assert.Error(t, err)

	_, err = ParseSectors([]byte("sectors:\n  - id: a\n  - id: a\n"))
	assert.Error(t, err)
}

func TestLoadSectors_MissingFile(t *testing.T) {
	ss, err := LoadSectors(filepath.Join(t.TempDir(), "none.yaml"))
	require.NoError(t, err)
	assert.Empty(t, ss)
}

func TestLoadSectors_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sectors.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleSectors), 0o600))
	ss, err := LoadSectors(path)
	require.NoError(t, err)
	assert.Len(t, ss, 2)
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("KAFKA_BROKERS", " k1:9092, ,k2:9092")
	t.Setenv("DISPATCH_WORKERS", "abc")
	t.Setenv("TIMEZONE", "Not/AZone")
	cfg := Load()
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, 4, cfg.DispatchWorkers)
	assert.NotNil(t, cfg.Location)
	assert.Equal(t, "system", cfg.DefaultOperator)
}
