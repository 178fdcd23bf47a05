package state

import "fmt"

// Overlay buffers writes on top of a base Store. Reads see staged writes
// first. Commit applies them to the base, atomically when the base is a
// Batcher; Discard drops them.
//
// An Overlay is not safe for concurrent use.
type Overlay struct {
	base   Store
	writes map[string]*Value // nil entry marks a staged delete
	order  []string
}

var _ Store = (*Overlay)(nil)

// NewOverlay stages writes over base.
func NewOverlay(base Store) (*Overlay, error) {
	if base == nil {
		return nil, fmt.Errorf("%w: base store", ErrNilParam)
	}
	return &Overlay{base: base, writes: make(map[string]*Value)}, nil
}

// Get returns the staged value if any, else the base value.
func (o *Overlay) Get(key []byte) (Value, bool, error) {
	if w, ok := o.writes[string(key)]; ok {
		if w == nil {
			return Value{}, false, nil
		}
		return w.clone(), true, nil
	}
	return o.base.Get(key)
}

// Put stages a write.
func (o *Overlay) Put(key []byte, v Value) error {
	if err := CheckEntry(key, v); err != nil {
		return err
	}
	c := v.clone()
	o.stage(string(key), &c)
	return nil
}

// Delete stages a delete.
func (o *Overlay) Delete(key []byte) error {
	o.stage(string(key), nil)
	return nil
}

func (o *Overlay) stage(k string, v *Value) {
	if _, seen := o.writes[k]; !seen {
		o.order = append(o.order, k)
	}
	o.writes[k] = v
}

// Keys merges base keys with staged writes.
func (o *Overlay) Keys() ([][]byte, error) {
	base, err := o.base.Keys()
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool, len(base)+len(o.writes))
	keys := make([][]byte, 0, len(base)+len(o.writes))
	for _, k := range base {
		seen[string(k)] = true
		if w, staged := o.writes[string(k)]; staged && w == nil {
			continue
		}
		keys = append(keys, k)
	}
	for k, w := range o.writes {
		if w != nil && !seen[k] {
			keys = append(keys, []byte(k))
		}
	}
	sortKeys(keys)
	return keys, nil
}

// Dirty reports whether any write is staged.
func (o *Overlay) Dirty() bool { return len(o.writes) > 0 }

// Commit applies staged writes to the base store and clears the overlay.
func (o *Overlay) Commit() error {
	if !o.Dirty() {
		return nil
	}
	apply := func(s Store) error {
		for _, k := range o.order {
			w := o.writes[k]
			if w == nil {
				if err := s.Delete([]byte(k)); err != nil {
					return err
				}
				continue
			}
			if err := s.Put([]byte(k), *w); err != nil {
				return err
			}
		}
		return nil
	}

	var err error
	if b, ok := o.base.(Batcher); ok {
		err = b.Batch(apply)
	} else {
		err = apply(o.base)
	}
	if err != nil {
		return fmt.Errorf("state: commit overlay: %w", err)
	}
	o.Discard()
	return nil
}

// Discard drops all staged writes.
func (o *Overlay) Discard() {
	o.writes = make(map[string]*Value)
	o.order = nil
}
