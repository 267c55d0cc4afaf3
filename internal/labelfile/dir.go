package labelfile

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/dgallion1/rdhtml/internal/labels"
)

var errOutsideRoot = errors.New("path escapes label directory")

// Dir resolves cross-document labels from files under Root. For a referenced
// "guide.rd" it reads "guide.rbl", falling back to scanning "guide.html".
// Each document is loaded at most once per Dir. Names that are absolute or
// climb out of Root resolve nothing.
type Dir struct {
	Root string
	Log  *slog.Logger

	mu     sync.Mutex
	tables map[string]map[string]string
}

func NewDir(root string, log *slog.Logger) *Dir {
	return &Dir{Root: root, Log: log, tables: make(map[string]map[string]string)}
}

func (d *Dir) LookupExternal(filename, label string) (string, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.tables == nil {
		d.tables = make(map[string]map[string]string)
	}
	tab, ok := d.tables[filename]
	if !ok {
		tab = d.load(filename)
		d.tables[filename] = tab
	}
	a, ok := tab[label]
	return a, ok
}

func (d *Dir) load(filename string) map[string]string {
	if !filepath.IsLocal(filename) {
		d.warn("label lookup outside root", filename, errOutsideRoot)
		return nil
	}
	tab := make(map[string]map[string]string)
	m := labels.Map(tab)

	f, err := ReadFile(filepath.Join(d.Root, Path(filename)))
	if err == nil {
		m.Add(filename, f.Entries())
		return tab[filename]
	}
	if !errors.Is(err, fs.ErrNotExist) {
		d.warn("unreadable label file", filename, err)
	}

	page, err := os.Open(filepath.Join(d.Root, labels.OutputFilename(filename)))
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			d.warn("unreadable rendered page", filename, err)
		}
		return nil
	}
	defer page.Close()
	entries, err := ScanHTML(page)
	if err != nil {
		d.warn("unscannable rendered page", filename, err)
		return nil
	}
	m.Add(filename, entries)
	return tab[filename]
}

func (d *Dir) warn(msg, filename string, err error) {
	if d.Log != nil {
		d.Log.Warn(msg, "filename", filename, "error", err)
	}
}
