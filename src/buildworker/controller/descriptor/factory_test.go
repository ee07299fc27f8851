package descriptor

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tally "github.com/uber-go/tally/v4"
	"github.com/uber/incbuild/src/buildworker/entity"
	"github.com/uber/incbuild/src/buildworker/internal/fs"
	"github.com/uber/incbuild/src/buildworker/internal/projectmodel"
	"github.com/uber/incbuild/src/buildworker/repository/buildstate"
	"github.com/uber/incbuild/src/buildworker/repository/buildstate/buildstatemock"
	"go.uber.org/mock/gomock"
	"go.uber.org/zap"
)

func newTestFactory(t *testing.T, opener buildstate.Opener, stateDir string) (Factory, tally.TestScope) {
	stats := tally.NewTestScope("", nil)
	return NewFactory(FactoryParams{
		Opener: opener,
		FS:     fs.New(),
		Args:   entity.LaunchArgs{StateDir: stateDir},
		Logger: zap.NewNop().Sugar(),
		Stats:  stats,
	}), stats
}

func TestFactoryOpen(t *testing.T) {
	stateDir := t.TempDir()
	project := &projectmodel.Project{Name: "sample", Dir: "/work/sample"}
	f, stats := newTestFactory(t, buildstate.NewOpenerWithOptions(buildstate.Options{LockTimeout: 100 * time.Millisecond}), stateDir)

	t.Run("fresh state", func(t *testing.T) {
		d, err := f.Open(context.Background(), project, nil, func(error) { t.Fatal("unexpected recovery") })
		require.NoError(t, err)
		assert.Equal(t, buildstate.DataRoot(stateDir, "sample", "/work/sample"), d.DataRoot)
		require.NoError(t, d.Timestamps.MarkDirty(entity.Target{Type: entity.TargetTypeProduction, ID: "x"}, "/a"))
		d.Release()
	})

	t.Run("corrupt state is discarded once", func(t *testing.T) {
		dataRoot := buildstate.DataRoot(stateDir, "sample", "/work/sample")
		require.NoError(t, os.WriteFile(filepath.Join(dataRoot, buildstate.TimestampsFileName), []byte(strings.Repeat("garbage!", 1024)), 0o600))

		fsState := NewFSState()
		var cause error
		d, err := f.Open(context.Background(), project, fsState, func(err error) { cause = err })
		require.NoError(t, err)
		defer d.Release()

		assert.Error(t, cause)
		assert.Same(t, fsState, d.FSState)
		files, err := d.Timestamps.Files(entity.Target{Type: entity.TargetTypeProduction, ID: "x"})
		require.NoError(t, err)
		assert.Empty(t, files, "previous state was deleted")
		assert.Equal(t, int64(1), stats.Snapshot().Counters()["storage.recovered+cause=store"].Value())
	})
}

func TestFactoryOpenSecondFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	opener := buildstatemock.NewMockOpener(ctrl)
	f, _ := newTestFactory(t, opener, t.TempDir())

	opener.EXPECT().Open(gomock.Any()).Return(nil, errors.New("corrupt")).Times(1)
	opener.EXPECT().Open(gomock.Any()).Return(nil, errors.New("still corrupt")).Times(1)

	recovered := false
	_, err := f.Open(context.Background(), &projectmodel.Project{Name: "sample", Dir: "/work/sample"}, nil, func(error) { recovered = true })
	require.Error(t, err)
	assert.Contains(t, err.Error(), "still corrupt")
	assert.False(t, recovered)
}

func TestFactoryOpenRecoversOtherFailures(t *testing.T) {
	ctrl := gomock.NewController(t)
	opener := buildstatemock.NewMockOpener(ctrl)
	ts := buildstatemock.NewMockTimestampStore(ctrl)
	deps := buildstatemock.NewMockDependencyStore(ctrl)
	f, stats := newTestFactory(t, opener, t.TempDir())

	gomock.InOrder(
		opener.EXPECT().Open(gomock.Any()).Return(nil, errors.New("disk hiccup")),
		opener.EXPECT().Open(gomock.Any()).Return(&buildstate.Stores{Timestamps: ts, Dependencies: deps}, nil),
	)
	ts.EXPECT().Close().Return(nil)
	deps.EXPECT().Close().Return(nil)

	d, err := f.Open(context.Background(), &projectmodel.Project{Name: "sample", Dir: "/work/sample"}, nil, nil)
	require.NoError(t, err)
	d.Release()

	counters := stats.Snapshot().Counters()
	assert.Equal(t, int64(1), counters["storage.recovered+cause=other"].Value())
	assert.NotContains(t, counters, "storage.recovered+cause=store")
}
