package model

// Table is an insertion-ordered string-keyed mapping. TOML tables and the
// jobs we emit both care about key order, so plain Go maps are not enough
// anywhere on the generation path.
//
// Set keeps the position of the first insertion when a key is overwritten,
// the same way an ordinary dict behaves in most dynamic languages. Override
// resolution (defaults, then annotation) relies on that.
type Table struct {
	keys   []string
	values map[string]any
}

func NewTable() *Table {
	return &Table{values: make(map[string]any)}
}

func (t *Table) Set(key string, value any) {
	if _, ok := t.values[key]; !ok {
		t.keys = append(t.keys, key)
	}
	t.values[key] = value
}

func (t *Table) Get(key string) (any, bool) {
	if t == nil {
		return nil, false
	}
	v, ok := t.values[key]
	return v, ok
}

func (t *Table) Has(key string) bool {
	_, ok := t.Get(key)
	return ok
}

func (t *Table) Delete(key string) {
	if _, ok := t.values[key]; !ok {
		return
	}
	delete(t.values, key)
	for i, k := range t.keys {
		if k == key {
			t.keys = append(t.keys[:i], t.keys[i+1:]...)
			break
		}
	}
}

func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.keys)
}

// Keys returns the keys in insertion order. The returned slice is shared;
// callers must not mutate it.
func (t *Table) Keys() []string {
	if t == nil {
		return nil
	}
	return t.keys
}
