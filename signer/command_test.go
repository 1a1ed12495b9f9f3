package signer

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseCommandRecognisesVerbs(t *testing.T) {
	cmd, err := ParseCommand("sign example.com")
	require.NoError(t, err)
	require.Equal(t, CmdSign, cmd.Verb)
	require.Equal(t, []string{"example.com"}, cmd.Args)
}

func TestParseCommandIsExactNotPrefix(t *testing.T) {
	// "signzone" must not be treated as "sign" via prefix matching --
	// this is exactly the tagged-dispatch property that replaces the
	// source engine's string-prefix switch.
	_, err := ParseCommand("signzone example.com")
	require.Error(t, err)
}

func TestParseCommandUnknownVerb(t *testing.T) {
	_, err := ParseCommand("frobnicate")
	require.Error(t, err)
}

func TestParseCommandEmptyLine(t *testing.T) {
	_, err := ParseCommand("   ")
	require.Error(t, err)
}

func TestParseCommandCaseInsensitiveVerb(t *testing.T) {
	cmd, err := ParseCommand("FLUSH")
	require.NoError(t, err)
	require.Equal(t, CmdFlush, cmd.Verb)
}
