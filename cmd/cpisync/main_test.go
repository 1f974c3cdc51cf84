package main

import (
	"bytes"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVersionCmd(t *testing.T) {
	var out bytes.Buffer
	rootCmd := newRootCmd()
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"version", "--no-color"})
	require.NoError(t, rootCmd.Execute())

	assert.Contains(t, out.String(), "cpisync version dev")
	assert.Contains(t, out.String(), runtime.Version())
}

func TestRootCmd_Subcommands(t *testing.T) {
	rootCmd := newRootCmd()
	for _, name := range []string{"sync", "version"} {
		cmd, _, err := rootCmd.Find([]string{name})
		require.NoError(t, err)
		assert.Equal(t, name, cmd.Name())
	}

	syncCmd, _, err := rootCmd.Find([]string{"sync"})
	require.NoError(t, err)
	for _, flag := range []string{"config", "no-input", "ignore-error-download", "concurrency", "confirm"} {
		assert.NotNil(t, syncCmd.Flags().Lookup(flag), "missing flag %s", flag)
	}
}
