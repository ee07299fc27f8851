package main

import (
	"io"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uber/incbuild/src/buildworker/entity"
	"go.uber.org/fx"
	"go.uber.org/goleak"
)

const _sessionID = "6ba7b810-9dad-11d1-80b4-00c04fd430c8"

func TestDependenciesAreSatisfied(t *testing.T) {
	assert.NoError(t, fx.ValidateApp(opts(entity.LaunchArgs{})))
}

func TestRootCommand(t *testing.T) {
	stateDir := t.TempDir()
	tests := []struct {
		name    string
		args    []string
		wantErr string
		check   func(t *testing.T, args entity.LaunchArgs)
	}{
		{
			name: "launch arguments",
			args: []string{"localhost", "7070", _sessionID, stateDir},
			check: func(t *testing.T, args entity.LaunchArgs) {
				assert.Equal(t, "localhost:7070", args.Address())
				assert.Equal(t, _sessionID, args.SessionID.String())
				assert.Equal(t, stateDir, args.StateDir)
				assert.Empty(t, args.PreloadProject)
			},
		},
		{
			name: "preloaded project",
			args: []string{"--preload-project", "project", "::1", "7070", _sessionID, "state"},
			check: func(t *testing.T, args entity.LaunchArgs) {
				assert.Equal(t, "[::1]:7070", args.Address())
				assert.True(t, filepath.IsAbs(args.StateDir))
				assert.True(t, filepath.IsAbs(args.PreloadProject))
				assert.Equal(t, "project", filepath.Base(args.PreloadProject))
			},
		},
		{
			name:    "missing argument",
			args:    []string{"localhost", "7070", _sessionID},
			wantErr: "accepts 4 arg(s)",
		},
		{
			name:    "non numeric port",
			args:    []string{"localhost", "http", _sessionID, stateDir},
			wantErr: "invalid controller port",
		},
		{
			name:    "port out of range",
			args:    []string{"localhost", "70000", _sessionID, stateDir},
			wantErr: "invalid controller port",
		},
		{
			name:    "malformed session id",
			args:    []string{"localhost", "7070", "not-a-uuid", stateDir},
			wantErr: "invalid session id",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got *entity.LaunchArgs
			cmd := newRootCommand(func(args entity.LaunchArgs) { got = &args })
			cmd.SetArgs(tt.args)
			cmd.SetOut(io.Discard)
			cmd.SetErr(io.Discard)

			err := cmd.Execute()
			if tt.wantErr != "" {
				assert.ErrorContains(t, err, tt.wantErr)
				assert.Nil(t, got)
				return
			}
			require.NoError(t, err)
			require.NotNil(t, got)
			tt.check(t, *got)
		})
	}
}

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}
