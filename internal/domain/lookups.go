package domain

// Lookups holds the hand-maintained code -> display name tables. It is built
// once and never mutated; accessors return copies.
type Lookups struct {
	markets  map[string]string
	managers map[string]string
}

func NewLookups(markets, managers map[string]string) Lookups {
	return Lookups{markets: copyMap(markets), managers: copyMap(managers)}
}

// Market maps a raw survey market code. Unknown codes yield nil.
func (l Lookups) Market(code string) *string { return lookup(l.markets, code) }

// Manager maps a normalized brand key. Unknown keys yield nil.
func (l Lookups) Manager(key string) *string { return lookup(l.managers, key) }

func (l Lookups) Markets() map[string]string  { return copyMap(l.markets) }
func (l Lookups) Managers() map[string]string { return copyMap(l.managers) }

func lookup(m map[string]string, k string) *string {
	v, ok := m[k]
	if !ok {
		return nil
	}
	return &v
}

func copyMap(in map[string]string) map[string]string {
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
