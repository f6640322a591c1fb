package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommandTree(t *testing.T) {
	for _, path := range [][]string{
		{"promote"},
		{"demote"},
		{"list-admins"},
		{"issue-token"},
		{"sweep", "run"},
		{"sweep", "stats"},
		{"migrate", "up"},
		{"migrate", "auto"},
		{"migrate", "status"},
		{"migrate", "down"},
	} {
		cmd, rest, err := rootCmd.Find(path)
		require.NoError(t, err, path)
		assert.Empty(t, rest)
		assert.Equal(t, path[len(path)-1], cmd.Name())
	}
}

func TestParseUserID(t *testing.T) {
	id, err := parseUserID("42")
	require.NoError(t, err)
	assert.Equal(t, uint(42), id)

	for _, raw := range []string{"", "0", "-1", "abc"} {
		_, err := parseUserID(raw)
		assert.Error(t, err, raw)
	}
}

func TestArgumentValidation(t *testing.T) {
	rootCmd.SetArgs([]string{"promote"})
	err := rootCmd.Execute()
	assert.Error(t, err, "promote requires a user id")

	rootCmd.SetArgs([]string{"promote", "abc"})
	err = rootCmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid user id")
}
