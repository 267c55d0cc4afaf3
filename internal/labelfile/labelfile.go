// Package labelfile persists a document's label table so that other documents
// can link to its anchors. Label files are TOML:
//
//	filename = "guide.rd"
//
//	[[label]]
//	name = "Installation"
//	anchor = "label-0"
package labelfile

import (
	"fmt"
	"io"
	"os"

	"github.com/BurntSushi/toml"
	"github.com/dgallion1/rdhtml/internal/labels"
)

// Suffix is the extension of label files.
const Suffix = ".rbl"

// File is the on-disk form of one document's labels.
type File struct {
	Filename string  `toml:"filename"`
	Labels   []Label `toml:"label"`
}

type Label struct {
	Name   string `toml:"name"`
	Anchor string `toml:"anchor"`
}

// FromEntries builds a File for the document named filename.
func FromEntries(filename string, entries []labels.Entry) File {
	f := File{Filename: filename, Labels: make([]Label, len(entries))}
	for i, e := range entries {
		f.Labels[i] = Label{Name: e.Label, Anchor: e.Anchor}
	}
	return f
}

// Entries converts f back to label entries.
func (f File) Entries() []labels.Entry {
	out := make([]labels.Entry, len(f.Labels))
	for i, l := range f.Labels {
		out[i] = labels.Entry{Label: l.Name, Anchor: l.Anchor}
	}
	return out
}

func Write(w io.Writer, f File) error {
	if err := toml.NewEncoder(w).Encode(f); err != nil {
		return fmt.Errorf("encode label file: %w", err)
	}
	return nil
}

func Read(r io.Reader) (File, error) {
	var f File
	if _, err := toml.NewDecoder(r).Decode(&f); err != nil {
		return File{}, fmt.Errorf("decode label file: %w", err)
	}
	return f, nil
}

// WriteFile writes f to path, replacing any existing file.
func WriteFile(path string, f File) error {
	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create label file: %w", err)
	}
	if err := Write(out, f); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

func ReadFile(path string) (File, error) {
	var f File
	if _, err := toml.DecodeFile(path, &f); err != nil {
		return File{}, fmt.Errorf("decode label file %s: %w", path, err)
	}
	return f, nil
}

// Path returns the label file name for a source document: "guide.rd" and
// "guide.rd.ja" map to "guide.rbl".
func Path(source string) string {
	return labels.TrimSourceSuffix(source) + Suffix
}
