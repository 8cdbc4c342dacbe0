package yamlconf

import "fmt"

// Aliases maps the accepted spellings of mapping keys to their canonical
// name. Keys it does not list are their own canonical name.
type Aliases map[string]string

// NewAliases builds Aliases from groups of spellings. The first spelling of
// each group is the canonical one.
func NewAliases(groups ...[]string) Aliases {
	a := make(Aliases)
	for _, g := range groups {
		for _, k := range g {
			a[NormalizeKey(k)] = NormalizeKey(g[0])
		}
	}
	return a
}

// Canonical returns the canonical name of normalized key k.
func (a Aliases) Canonical(k string) string {
	if name, ok := a[k]; ok {
		return name
	}
	return k
}

// ForEachKV calls fn for every entry of mapping v in document order with
// the canonical key. The key as written is pushed on c, so error paths name
// the spelling the document used. Two spellings of one canonical key fail
// with ErrDuplicateKey at the second.
func (a Aliases) ForEachKV(c *Context, v Node, fn func(k string, v Node) error) error {
	entries, err := v.Entries()
	if err != nil {
		return err
	}
	seen := make(map[string]string, len(entries))
	for _, e := range entries {
		name := a.Canonical(e.Key)
		if first, dup := seen[name]; dup {
			return &Error{
				Kind:   ErrDuplicateKey,
				Path:   Path{KeySegment(e.Key)},
				Pos:    e.KeyPos,
				Detail: fmt.Sprintf("%q is already set as %q", e.RawKey, first),
			}
		}
		seen[name] = e.RawKey
		if err := c.Key(e.Key, func() error { return fn(name, e.Value) }); err != nil {
			return err
		}
	}
	return nil
}

// ForEachKV calls fn for every entry of mapping v in document order, with
// the entry's key pushed on c. The first error stops the walk.
func ForEachKV(c *Context, v Node, fn func(k string, v Node) error) error {
	return Aliases(nil).ForEachKV(c, v, fn)
}

// ForEachItem calls fn for every item of sequence v, with the item index
// pushed on c. The first error stops the walk.
func ForEachItem(c *Context, v Node, fn func(i int, v Node) error) error {
	items, err := v.Items()
	if err != nil {
		return err
	}
	for i, item := range items {
		if err := c.Index(i, func() error { return fn(i, item) }); err != nil {
			return err
		}
	}
	return nil
}

// ForEachValue accepts either a sequence or a single scalar/mapping standing
// for a one item list. Only real sequence items get an index on the path.
func ForEachValue(c *Context, v Node, fn func(v Node) error) error {
	switch v.Kind() {
	case KindSequence:
		return ForEachItem(c, v, func(_ int, item Node) error { return fn(item) })
	case KindNull:
		return mismatch(v, KindSequence)
	default:
		return fn(v)
	}
}
