package labels

// External looks labels up in other documents' label tables.
type External interface {
	LookupExternal(filename, label string) (anchor string, ok bool)
}

// Map is an in-memory External keyed by filename, then label.
type Map map[string]map[string]string

func (m Map) LookupExternal(filename, label string) (string, bool) {
	a, ok := m[filename][label]
	return a, ok
}

// Add records the entries of one document.
func (m Map) Add(filename string, entries []Entry) {
	tab := m[filename]
	if tab == nil {
		tab = make(map[string]string, len(entries))
		m[filename] = tab
	}
	for _, e := range entries {
		tab[e.Label] = e.Anchor
	}
}

// Chain consults each External in order and returns the first hit.
type Chain []External

func (c Chain) LookupExternal(filename, label string) (string, bool) {
	for _, ext := range c {
		if ext == nil {
			continue
		}
		if a, ok := ext.LookupExternal(filename, label); ok {
			return a, true
		}
	}
	return "", false
}
