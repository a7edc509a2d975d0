package parts

import (
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// ChangeKind says what a watched file is to the customizer.
type ChangeKind int

const (
	// CatalogChanged is a parts catalog YAML file.
	CatalogChanged ChangeKind = iota
	// PartChanged is a part asset; PartID names the part.
	PartChanged
)

// Change is one coalesced file change.
type Change struct {
	Kind    ChangeKind
	Path    string
	PartID  string
	Removed bool
}

// Classify maps a path to the change it would produce. Files that are neither
// a catalog nor a part asset report false.
func Classify(path string) (Change, bool) {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".yaml", ".yml":
		return Change{Kind: CatalogChanged, Path: path}, true
	case ".glb", ".gltf":
		id := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		return Change{Kind: PartChanged, Path: path, PartID: id}, id != ""
	}
	return Change{}, false
}

// DefaultSettle is how long a path must stay quiet before its change is reported.
const DefaultSettle = 100 * time.Millisecond

// Watcher reports catalog and part asset changes in the watched dirs.
// Editors write a file in several steps, so events for one path are held
// until the path has been quiet for DefaultSettle and then reported once.
type Watcher struct {
	Changes chan Change
	Errors  chan error

	settle  time.Duration
	fs      *fsnotify.Watcher
	closeCh chan struct{}
	done    chan struct{}
	once    sync.Once
}

func NewWatcher(dirs ...string) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	for _, dir := range dirs {
		if err := fw.Add(dir); err != nil {
			_ = fw.Close()
			return nil, err
		}
	}

	w := &Watcher{
		Changes: make(chan Change, 16),
		Errors:  make(chan error, 1),
		settle:  DefaultSettle,
		fs:      fw,
		closeCh: make(chan struct{}),
		done:    make(chan struct{}),
	}
	go w.run()
	return w, nil
}

func (w *Watcher) Close() error {
	var err error
	w.once.Do(func() {
		close(w.closeCh)
		err = w.fs.Close()
		<-w.done
		close(w.Changes)
		close(w.Errors)
	})
	return err
}

type pendingChange struct {
	change Change
	seen   time.Time
}

func (w *Watcher) run() {
	defer close(w.done)

	settle := w.settle
	tick := time.NewTicker(settle / 2)
	defer tick.Stop()

	pending := make(map[string]pendingChange)
	for {
		select {
		case ev, ok := <-w.fs.Events:
			if !ok {
				return
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) == 0 {
				continue
			}
			c, ok := Classify(ev.Name)
			if !ok {
				continue
			}
			c.Removed = ev.Op&(fsnotify.Remove|fsnotify.Rename) != 0
			pending[ev.Name] = pendingChange{change: c, seen: time.Now()}

		case now := <-tick.C:
			for path, p := range pending {
				if now.Sub(p.seen) < settle {
					continue
				}
				delete(pending, path)
				select {
				case w.Changes <- p.change:
				case <-w.closeCh:
					return
				}
			}

		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			select {
			case w.Errors <- err:
			default:
			}

		case <-w.closeCh:
			return
		}
	}
}
