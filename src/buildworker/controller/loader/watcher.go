package loader

import (
	iofs "io/fs"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/uber/incbuild/src/buildworker/controller/descriptor"
	"github.com/uber/incbuild/src/buildworker/internal/fs"
	"go.uber.org/zap"
)

// watcher marks files under the build roots of a descriptor dirty as they change on disk.
type watcher struct {
	d      *descriptor.ProjectDescriptor
	fs     fs.WorkerFS
	logger *zap.SugaredLogger
	notify *fsnotify.Watcher

	done chan struct{}
	wg   sync.WaitGroup
}

func newWatcher(d *descriptor.ProjectDescriptor, workerFS fs.WorkerFS, logger *zap.SugaredLogger) (*watcher, error) {
	notify, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	w := &watcher{
		d:      d,
		fs:     workerFS,
		logger: logger,
		notify: notify,
		done:   make(chan struct{}),
	}

	seen := make(map[string]bool)
	for _, target := range d.Targets.Targets() {
		for _, root := range d.Roots.RootsOf(target) {
			if seen[root.Root] {
				continue
			}
			seen[root.Root] = true
			if exists, err := workerFS.DirExists(root.Root); err != nil || !exists {
				continue
			}
			w.addTree(root.Root, false)
		}
	}

	w.wg.Add(1)
	go w.run()
	return w, nil
}

// addTree watches dir and every directory under it. With markFiles, files found are marked dirty.
func (w *watcher) addTree(dir string, markFiles bool) {
	err := w.fs.Walk(dir, func(path string, entry iofs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if w.skipped(path) {
			if entry.IsDir() {
				return iofs.SkipDir
			}
			return nil
		}
		if !entry.IsDir() {
			if markFiles {
				w.d.FSState.MarkDirty(path)
			}
			return nil
		}
		if err := w.notify.Add(path); err != nil {
			w.logger.Warnw("failed to watch directory", "dir", path, "error", err)
		}
		return nil
	})
	if err != nil {
		w.logger.Warnw("failed to walk directory", "dir", dir, "error", err)
	}
}

func (w *watcher) skipped(path string) bool {
	return w.d.Ignored.IsIgnored(path) || w.d.Excludes.IsExcluded(path)
}

func (w *watcher) run() {
	defer w.wg.Done()
	for {
		select {
		case <-w.done:
			return
		case event, ok := <-w.notify.Events:
			if !ok {
				return
			}
			w.handle(event)
		case err, ok := <-w.notify.Errors:
			if !ok {
				return
			}
			w.logger.Warnw("file watcher error", "error", err)
		}
	}
}

func (w *watcher) handle(event fsnotify.Event) {
	if w.skipped(event.Name) {
		return
	}
	switch {
	case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
		w.d.FSState.MarkDeleted(event.Name)
	case event.Has(fsnotify.Create):
		if isDir, _ := w.fs.DirExists(event.Name); isDir {
			w.addTree(event.Name, true)
			return
		}
		w.d.FSState.MarkDirty(event.Name)
	case event.Has(fsnotify.Write):
		w.d.FSState.MarkDirty(event.Name)
	}
}

// Close stops watching and waits for the event loop to exit.
func (w *watcher) Close() {
	close(w.done)
	if err := w.notify.Close(); err != nil {
		w.logger.Warnw("failed to close file watcher", "error", err)
	}
	w.wg.Wait()
}
