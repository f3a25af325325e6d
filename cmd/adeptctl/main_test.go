package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommandsRegistered(t *testing.T) {
	for _, name := range []string{
		"loadfixtures", "decode-session", "clear-sessions",
		"export-asset-dirs", "build-assets", "invalidate-site", "schema", "sites",
	} {
		cmd, _, err := rootCmd.Find([]string{name})
		require.NoError(t, err, name)
		assert.Equal(t, name, cmd.Name())
	}
}

func TestInvalidateSite_NeedsTarget(t *testing.T) {
	rootCmd.SetArgs([]string{"invalidate-site"})
	err := rootCmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--all")
}

func TestLoadFixtures_Defaults(t *testing.T) {
	f := loadFixturesCmd.Flags()
	tmpl, err := f.GetString("email-template")
	require.NoError(t, err)
	assert.Equal(t, "dev+%s@example.com", tmpl)

	hash, err := f.GetBool("hash-passwords")
	require.NoError(t, err)
	assert.True(t, hash)
}
