package prompt

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAsk(t *testing.T) {
	var out bytes.Buffer
	c := New(strings.NewReader("  vc01.lab.local \r\nlast"), &out, false)

	answer, err := c.Ask("server: ")
	require.NoError(t, err)
	assert.Equal(t, "vc01.lab.local", answer)

	// final line without newline still counts
	answer, err = c.Ask("next: ")
	require.NoError(t, err)
	assert.Equal(t, "last", answer)

	_, err = c.Ask("again: ")
	assert.ErrorIs(t, err, ErrNoInput)

	assert.True(t, strings.HasPrefix(out.String(), "server: next: again: "))
}

func TestAskSecretFallsBackWithoutTerminal(t *testing.T) {
	var out bytes.Buffer
	c := New(strings.NewReader("hunter2\n"), &out, false)

	answer, err := c.AskSecret("password: ")
	require.NoError(t, err)
	assert.Equal(t, "hunter2", answer)
}

func TestConfirm(t *testing.T) {
	tests := []struct {
		answer   string
		expected bool
	}{
		{answer: "yes", expected: true},
		{answer: "YES", expected: true},
		{answer: "y", expected: false},
		{answer: "no", expected: false},
		{answer: "", expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.answer, func(t *testing.T) {
			c := New(strings.NewReader(tt.answer+"\n"), &bytes.Buffer{}, false)
			ok, err := c.Confirm("create? ")
			require.NoError(t, err)
			assert.Equal(t, tt.expected, ok)
		})
	}
}

func TestNoColorOutputIsPlain(t *testing.T) {
	var out bytes.Buffer
	c := New(strings.NewReader(""), &out, false)

	c.Info("Added new key: '%s'", "vcenter.VCENTER_USER")
	c.Error("Invalid JSON format in base-cred file.")
	assert.Equal(t, "[INFO] Added new key: 'vcenter.VCENTER_USER'\n[ERROR] Invalid JSON format in base-cred file.\n", out.String())

	assert.Equal(t, `["a","b"]`, c.Highlight([]interface{}{"a", "b"}))
	assert.Equal(t, "value", c.Label("value"))
}
