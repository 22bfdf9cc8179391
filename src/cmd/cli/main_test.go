package main

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"desk-bridge/src/command"
	"desk-bridge/src/errkind"
	"desk-bridge/src/monitor"
	"desk-bridge/src/session"
	"desk-bridge/src/singleinstance"
)

type fakeClient struct {
	delegated bool
	result    json.RawMessage
	err       error
	got       singleinstance.Request
	called    bool
}

func (f *fakeClient) Invoke(ctx context.Context, req singleinstance.Request) (bool, json.RawMessage, error) {
	f.called = true
	f.got = req
	return f.delegated, f.result, f.err
}

type recordingFallback struct{ called bool }

func (r *recordingFallback) run(ctx context.Context, req singleinstance.Request, target session.ResultTarget) error {
	r.called = true
	return target.OnSuccess("standalone")
}

func TestInvokeWithDelegation(t *testing.T) {
	req := singleinstance.Request{Command: command.GetCursorPosition, Args: map[string]any{"monitor_id": "0"}}

	t.Run("Delegated", func(t *testing.T) {
		client := &fakeClient{delegated: true, result: json.RawMessage(`{"x":1,"y":2}`)}
		fb := &recordingFallback{}
		var out bytes.Buffer

		err := invokeWithDelegation(context.Background(), client, req, session.StdoutTarget{Writer: &out}, fb.run)
		require.NoError(t, err)
		assert.False(t, fb.called)
		assert.Equal(t, req, client.got)
		assert.JSONEq(t, `{"x":1,"y":2}`, out.String())
	})

	t.Run("ResidentErrorIsFinal", func(t *testing.T) {
		client := &fakeClient{delegated: true, err: errkind.ErrBusy}
		fb := &recordingFallback{}

		err := invokeWithDelegation(context.Background(), client, req, session.StdoutTarget{Writer: &bytes.Buffer{}}, fb.run)
		assert.ErrorIs(t, err, errkind.ErrBusy)
		assert.False(t, fb.called)
	})

	t.Run("NoResidentFallsBack", func(t *testing.T) {
		client := &fakeClient{}
		fb := &recordingFallback{}
		var out bytes.Buffer

		require.NoError(t, invokeWithDelegation(context.Background(), client, req, session.StdoutTarget{Writer: &out}, fb.run))
		assert.True(t, client.called)
		assert.True(t, fb.called)
		assert.Equal(t, "standalone\n", out.String())
	})

	t.Run("DelegationErrorFallsBack", func(t *testing.T) {
		client := &fakeClient{err: errors.New("connection reset")}
		fb := &recordingFallback{}

		require.NoError(t, invokeWithDelegation(context.Background(), client, req, session.StdoutTarget{Writer: &bytes.Buffer{}}, fb.run))
		assert.True(t, fb.called)
	})
}

func findDef(t *testing.T, use string) commandDef {
	t.Helper()
	for _, s := range commandDefs {
		if s.use == use {
			return s
		}
	}
	t.Fatalf("no command %q", use)
	return commandDef{}
}

func TestBuildArgsOnlyIncludesSetFlags(t *testing.T) {
	cmd, argsOf := bindDefFlags(findDef(t, "screenshot"))
	require.NoError(t, cmd.ParseFlags([]string{"--monitor", "1", "--width", "1280", "--height", "800", "--cut"}))

	assert.Equal(t, map[string]any{
		"monitor_id":   "1",
		"resize_x":     1280,
		"resize_y":     800,
		"use_cut_mode": true,
	}, argsOf())
}

func TestBuildArgsKeepsDefaults(t *testing.T) {
	cmd, argsOf := bindDefFlags(findDef(t, "click"))
	require.NoError(t, cmd.ParseFlags([]string{"--monitor", "0"}))

	assert.Equal(t, map[string]any{"monitor_id": "0", "side": "left"}, argsOf())
}

func TestEveryDefNamesARegisteredCommand(t *testing.T) {
	known := map[string]bool{}
	for _, name := range []string{
		command.GetMonitors, command.TakeScreenshot, command.MoveMouse, command.MouseClick,
		command.MouseDoubleClick, command.MouseDrag, command.MouseScroll, command.MouseDown,
		command.MouseUp, command.GetCursorPosition, command.TypeText, command.PressKey,
		command.HoldKey, command.ReleaseAll, command.ReadClipboard, command.WriteClipboard,
		command.ScaleCoordinates,
	} {
		known[name] = true
	}
	seen := map[string]bool{}
	for _, s := range commandDefs {
		assert.True(t, known[s.command], "%s maps to unknown command %s", s.use, s.command)
		seen[s.command] = true
	}
	assert.Len(t, seen, len(known))
}

func TestRootHasSubcommands(t *testing.T) {
	root := newRootCmd(&cliOptions{})
	for _, use := range []string{"monitors", "screenshot", "press", "invoke", "status"} {
		cmd, _, err := root.Find([]string{use})
		require.NoError(t, err)
		assert.Equal(t, use, cmd.Name())
	}
}

func TestParseArgsJSON(t *testing.T) {
	args, err := parseArgsJSON(`{"key":"ctrl+s","duration":2}`)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"key": "ctrl+s", "duration": float64(2)}, args)

	args, err = parseArgsJSON("  ")
	require.NoError(t, err)
	assert.Empty(t, args)

	_, err = parseArgsJSON(`[1,2]`)
	assert.ErrorIs(t, err, errkind.ErrInvalidArgument)
}

func TestFileTarget(t *testing.T) {
	png := []byte{0x89, 'P', 'N', 'G', 0x0d, 0x0a, 0x1a, 0x0a}
	encoded := base64.StdEncoding.EncodeToString(png)
	path := filepath.Join(t.TempDir(), "shot.png")

	require.NoError(t, fileTarget{path: path}.OnSuccess(json.RawMessage(`"`+encoded+`"`)))
	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, png, got)

	require.NoError(t, fileTarget{path: path}.OnSuccess(encoded))

	err = fileTarget{path: path}.OnSuccess(json.RawMessage(`{"x":1}`))
	assert.ErrorIs(t, err, errkind.ErrEncode)

	err = fileTarget{path: path}.OnSuccess("not base64!")
	assert.ErrorIs(t, err, errkind.ErrEncode)
}

func TestFitArgs(t *testing.T) {
	monitors := []monitor.Monitor{
		{ID: "0", Width: 1920, Height: 1080},
		{ID: "1", Width: 2560, Height: 1600},
	}

	args := map[string]any{"monitor_id": "1"}
	require.NoError(t, fitArgs(args, monitors))
	assert.Equal(t, 1280, args["resize_x"])
	assert.Equal(t, 800, args["resize_y"])

	args = map[string]any{"monitor_id": "0", "resize_x": 10}
	require.NoError(t, fitArgs(args, monitors))
	assert.Equal(t, 1366, args["resize_x"])
	assert.Equal(t, 768, args["resize_y"])

	args = map[string]any{"monitor_id": "0", "use_cut_mode": true}
	require.NoError(t, fitArgs(args, monitors))
	assert.Equal(t, 1280, args["resize_x"])

	assert.ErrorIs(t, fitArgs(map[string]any{"monitor_id": "9"}, monitors), errkind.ErrNotFound)
}

func TestCaptureTargetNormalizesDelegatedMonitors(t *testing.T) {
	var got captureTarget
	require.NoError(t, got.OnSuccess(json.RawMessage(`[{"id":"0","width":1024,"height":768}]`)))

	raw, err := json.Marshal(got.value)
	require.NoError(t, err)
	var monitors []monitor.Monitor
	require.NoError(t, json.Unmarshal(raw, &monitors))
	require.Len(t, monitors, 1)
	assert.Equal(t, uint32(1024), monitors[0].Width)
}
