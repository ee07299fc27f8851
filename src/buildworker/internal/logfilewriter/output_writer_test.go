package logfilewriter

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gofrs/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uber/incbuild/src/buildworker/entity"
	"github.com/uber/incbuild/src/buildworker/internal/fs/fsmock"
	"go.uber.org/fx/fxtest"
	"go.uber.org/mock/gomock"
)

func TestSetupOutputWriter(t *testing.T) {
	ctrl := gomock.NewController(t)
	sessionID := uuid.Must(uuid.FromString("6ba7b810-9dad-11d1-80b4-00c04fd430c8"))

	t.Run("success", func(t *testing.T) {
		lifecycleMock := fxtest.NewLifecycle(t)
		fsMock := fsmock.NewMockWorkerFS(ctrl)
		stateDir := t.TempDir()
		p := Params{Lifecycle: lifecycleMock, FS: fsMock, Args: entity.LaunchArgs{StateDir: stateDir, SessionID: sessionID}}

		logPath := filepath.Join(stateDir, "logs", "build-"+sessionID.String()+".log")
		fsMock.EXPECT().MkdirAll(filepath.Join(stateDir, "logs")).Return(nil)
		fsMock.EXPECT().Create(logPath).DoAndReturn(func(name string) (*os.File, error) {
			require.NoError(t, os.MkdirAll(filepath.Dir(name), 0755))
			return os.Create(name)
		})

		w, err := SetupOutputWriter(p, BuildLogName)
		require.NoError(t, err)

		sample := "first line\n\nsecond line"
		n, err := w.Write([]byte(sample))
		assert.NoError(t, err)
		assert.Equal(t, len(sample), n)

		lifecycleMock.RequireStart().RequireStop()

		data, err := os.ReadFile(logPath)
		require.NoError(t, err)
		lines := strings.Split(strings.TrimSpace(string(data)), "\n")
		require.Len(t, lines, 2)
		assert.Contains(t, lines[0], "first line")
		assert.Contains(t, lines[1], "second line")
	})

	t.Run("mkdir failure", func(t *testing.T) {
		fsMock := fsmock.NewMockWorkerFS(ctrl)
		p := Params{Lifecycle: fxtest.NewLifecycle(t), FS: fsMock, Args: entity.LaunchArgs{StateDir: "/state"}}
		fsMock.EXPECT().MkdirAll(gomock.Any()).Return(errors.New("denied"))

		_, err := SetupOutputWriter(p, BuildLogName)
		assert.Error(t, err)
	})

	t.Run("create failure", func(t *testing.T) {
		fsMock := fsmock.NewMockWorkerFS(ctrl)
		p := Params{Lifecycle: fxtest.NewLifecycle(t), FS: fsMock, Args: entity.LaunchArgs{StateDir: "/state"}}
		fsMock.EXPECT().MkdirAll(gomock.Any()).Return(nil)
		fsMock.EXPECT().Create(gomock.Any()).Return(nil, errors.New("denied"))

		_, err := SetupOutputWriter(p, BuildLogName)
		assert.Error(t, err)
	})
}
