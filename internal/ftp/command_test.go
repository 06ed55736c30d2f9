package ftp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ============================================================================
// Parse
// ============================================================================

func TestParseVerbAndArgument(t *testing.T) {
	tests := []struct {
		name string
		line string
		verb Verb
		arg  string
	}{
		{"bare verb", "PASV", VerbPasv, ""},
		{"verb with argument", "USER alice", VerbUser, "alice"},
		{"lowercase verb", "user alice", VerbUser, "alice"},
		{"mixed case verb", "StOr notes.txt", VerbStor, "notes.txt"},
		{"trailing CRLF", "QUIT\r\n", VerbQuit, ""},
		{"surrounding whitespace", "  PWD  ", VerbPwd, ""},
		{"argument keeps case", "RETR Report.PDF", VerbRetr, "Report.PDF"},
		{"argument with spaces", "STOR my notes.txt", VerbStor, "my notes.txt"},
		{"quit alias", "Q", VerbQuit, ""},
		{"quit alias lowercase", "q\r\n", VerbQuit, ""},
		{"easter egg", "RAX", VerbRax, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd, err := Parse(tt.line)
			require.NoError(t, err)
			assert.Equal(t, tt.verb, cmd.Verb)
			assert.Equal(t, tt.arg, cmd.Arg)
		})
	}
}

func TestParseUnknownCommand(t *testing.T) {
	for _, line := range []string{"", "NOOP", "FEAT", "XYZZY something", "\r\n"} {
		_, err := Parse(line)
		assert.ErrorIs(t, err, ErrUnknownCommand, "line %q", line)
	}
}

func TestParseMissingArgument(t *testing.T) {
	for _, line := range []string{"USER", "PASS", "CWD", "RETR", "STOR", "DEL", "PORT", "USER   "} {
		_, err := Parse(line)
		assert.ErrorIs(t, err, ErrMissingArgument, "line %q", line)
	}
}

func TestParseOptionalArgument(t *testing.T) {
	// LIST takes an optional path; PASV and QUIT take none.
	cmd, err := Parse("LIST")
	require.NoError(t, err)
	assert.Empty(t, cmd.Arg)

	cmd, err = Parse("LIST docs")
	require.NoError(t, err)
	assert.Equal(t, "docs", cmd.Arg)
}
