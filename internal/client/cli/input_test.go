package cli

import (
	"bufio"
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGetSimpleText(t *testing.T) {
	var out bytes.Buffer
	reader := bufio.NewReader(strings.NewReader("  ghost  \n"))

	got, err := GetSimpleText(reader, "Username", &out)
	require.NoError(t, err)
	require.Equal(t, "ghost", got)
	require.Contains(t, out.String(), "Username")
}

func TestGetSimpleText_EOFWithPartialLine(t *testing.T) {
	var out bytes.Buffer
	reader := bufio.NewReader(strings.NewReader("partial"))

	got, err := GetSimpleText(reader, "Prompt", &out)
	require.NoError(t, err)
	require.Equal(t, "partial", got)
}

func TestGetSimpleText_EOFEmpty(t *testing.T) {
	var out bytes.Buffer
	reader := bufio.NewReader(strings.NewReader(""))

	_, err := GetSimpleText(reader, "Prompt", &out)
	require.Error(t, err)
}

func TestGetPin(t *testing.T) {
	orig := readPassword
	readPassword = func(fd int) ([]byte, error) { return []byte("1234"), nil }
	t.Cleanup(func() { readPassword = orig })

	var out bytes.Buffer
	pin, err := GetPin(&out)
	require.NoError(t, err)
	require.Equal(t, "1234", pin)
	require.Contains(t, out.String(), "Enter PIN")
}
