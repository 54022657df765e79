package cli

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetExitCode(t *testing.T) {
	assert.Equal(t, ExitFailure, GetExitCode(errors.New("plain")))
	assert.Equal(t, ExitCommandError, GetExitCode(NewExitError(ExitCommandError, "bad")))

	wrapped := fmt.Errorf("outer: %w", WrapExitError(ExitFailure, "rejected", io.EOF))
	assert.Equal(t, ExitFailure, GetExitCode(wrapped))
	assert.ErrorIs(t, wrapped, io.EOF)
}

func TestOutputFormatter_JSON(t *testing.T) {
	var buf bytes.Buffer
	f := &OutputFormatter{Format: "json", Writer: &buf}

	assert.NoError(t, f.Success(map[string]int{"products": 2}, nil))
	assert.JSONEq(t, `{"status":"ok","data":{"products":2}}`, buf.String())

	buf.Reset()
	assert.NoError(t, f.Error(ErrCodeStorage, "disk full", nil))
	assert.JSONEq(t, `{"status":"error","error":{"code":"E003","message":"disk full"}}`, buf.String())
}

func TestOutputFormatter_Text(t *testing.T) {
	var buf bytes.Buffer
	f := &OutputFormatter{Format: "text", Writer: &buf}

	assert.NoError(t, f.Success("plain", nil))
	assert.Equal(t, "plain\n", buf.String())

	buf.Reset()
	assert.NoError(t, f.Success(nil, func(w io.Writer) { io.WriteString(w, "custom\n") }))
	assert.Equal(t, "custom\n", buf.String())
}

func TestOutputFormatter_VerboseLogUsesErrWriter(t *testing.T) {
	var out, errOut bytes.Buffer
	f := &OutputFormatter{Format: "json", Writer: &out, ErrWriter: &errOut, Verbose: true}

	f.VerboseLog("opened %s", "sqlite")
	assert.Empty(t, out.String())
	assert.Equal(t, "opened sqlite\n", errOut.String())
}
