package weave

// OrderedStringMap is a free-form, insertion-ordered string-to-string
// mapping, used both for node content attributes and for the Weave's own
// metadata (§3 "metadata: free-form ordered mapping of string-to-string").
type OrderedStringMap struct {
	keys   []string
	values map[string]string
}

// NewOrderedStringMap returns an empty map.
func NewOrderedStringMap() *OrderedStringMap {
	return &OrderedStringMap{values: make(map[string]string)}
}

// Get returns the value for key and whether it was present.
func (m *OrderedStringMap) Get(key string) (string, bool) {
	if m == nil {
		return "", false
	}
	v, ok := m.values[key]
	return v, ok
}

// Set inserts or overwrites the value for key, appending it to insertion
// order on first assignment.
func (m *OrderedStringMap) Set(key, value string) {
	if _, ok := m.values[key]; !ok {
		m.keys = append(m.keys, key)
	}
	m.values[key] = value
}

// Delete removes key, preserving the order of the remainder.
func (m *OrderedStringMap) Delete(key string) {
	if _, ok := m.values[key]; !ok {
		return
	}
	delete(m.values, key)
	for i, k := range m.keys {
		if k == key {
			m.keys = append(m.keys[:i], m.keys[i+1:]...)
			break
		}
	}
}

// Len returns the number of entries.
func (m *OrderedStringMap) Len() int {
	if m == nil {
		return 0
	}
	return len(m.keys)
}

// Keys returns the keys in insertion order.
func (m *OrderedStringMap) Keys() []string {
	if m == nil {
		return nil
	}
	out := make([]string, len(m.keys))
	copy(out, m.keys)
	return out
}

// Clone returns a deep copy.
func (m *OrderedStringMap) Clone() *OrderedStringMap {
	if m == nil {
		return NewOrderedStringMap()
	}
	c := &OrderedStringMap{
		keys:   make([]string, len(m.keys)),
		values: make(map[string]string, len(m.values)),
	}
	copy(c.keys, m.keys)
	for k, v := range m.values {
		c.values[k] = v
	}
	return c
}

// Equal reports whether m and other hold the same keys, in the same order,
// with the same values — the full structural equality used by
// IsDuplicateOf and by snapshot round-trip checks.
func (m *OrderedStringMap) Equal(other *OrderedStringMap) bool {
	mLen, oLen := m.Len(), other.Len()
	if mLen != oLen {
		return false
	}
	if mLen == 0 {
		return true
	}
	for i, k := range m.keys {
		if other.keys[i] != k || other.values[k] != m.values[k] {
			return false
		}
	}
	return true
}
