package cmd

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/tphakala/slrealizer/internal/buildinfo"
	"github.com/tphakala/slrealizer/internal/catalog"
	"github.com/tphakala/slrealizer/internal/testutil"
)

// These tests share the global viper instance and do not run in parallel.

func execute(t *testing.T, args ...string) string {
	t.Helper()
	viper.Reset()
	t.Cleanup(viper.Reset)

	var out bytes.Buffer
	root := RootCommand(buildinfo.NewContext("1.0.0-test", ""))
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	require.NoError(t, root.Execute(), out.String())
	return out.String()
}

func TestPaintRunAndObject(t *testing.T) {
	t.Chdir(t.TempDir())
	testutil.WriteObservations(t, "obs.csv", testutil.Epochs(5))

	out := execute(t, "paint", "-n", "3", "--first-id", "10", "-o", "lenses.yaml")
	assert.Contains(t, out, "wrote 3 systems to lenses.yaml")

	out = execute(t, "run", "-c", "lenses.yaml", "-O", "obs.csv", "--method", "analytic", "-w", "2",
		"--source-output", "out/source.csv", "--object-output", "out/object.csv")
	assert.Contains(t, out, "15 rows")

	src, err := catalog.ReadSourceFile(filepath.Join("out", "source.csv"))
	require.NoError(t, err)
	assert.Equal(t, 15, src.Len())
	assert.FileExists(t, filepath.Join("out", "object.csv"))

	execute(t, "object", "-s", "out/source.csv", "-o", "out/object_std.csv", "--std")
	assert.FileExists(t, filepath.Join("out", "object_std.csv"))

	execute(t, "run", "-c", "lenses.yaml", "-O", "obs.csv", "--method", "analytic", "--datastore",
		"--source-output", "out/stored_source.csv", "--object-output", "out/stored_object.csv")
	assert.FileExists(t, "slrealizer.db")
	out = execute(t, "export", "--list")
	assert.Contains(t, out, "analytic")

	out = execute(t, "draw", "-c", "lenses.yaml", "-O", "obs.csv", "--lens", "11", "--method", "analytic")
	assert.Contains(t, out, "lens 11")
}

func TestConfigCommand(t *testing.T) {
	t.Chdir(t.TempDir())

	out := execute(t, "config", "--seed", "77", "--workers", "3")
	var dumped struct {
		Realize struct {
			Seed    uint64 `yaml:"seed"`
			Workers int    `yaml:"workers"`
		} `yaml:"realize"`
	}
	require.NoError(t, yaml.Unmarshal([]byte(out), &dumped))
	assert.Equal(t, uint64(77), dumped.Realize.Seed)
	assert.Equal(t, 3, dumped.Realize.Workers)

	out = execute(t, "config", "init", "conf/config.yaml")
	assert.Contains(t, out, "conf/config.yaml")
	assert.FileExists(t, filepath.Join("conf", "config.yaml"))
}

func TestVersionFlag(t *testing.T) {
	out := execute(t, "--version")
	assert.Contains(t, out, "1.0.0-test")
}
