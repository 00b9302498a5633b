package paper

// StoredEntity is one row of an entity table as read back from the store.
type StoredEntity struct {
	ID   int64
	Name string
}

// IdentityMap maps EntityKeys of one kind to surrogate identifiers. It is
// read-only once built and safe for concurrent readers.
type IdentityMap struct {
	kind EntityKind
	ids  map[EntityKey]int64
}

// BuildIdentityMap keys rows by EntityKey. When several stored names share a
// key the smallest identifier wins, which keeps the mapping stable across
// runs. Rows whose key is excluded are ignored.
func BuildIdentityMap(kind EntityKind, rows []StoredEntity) *IdentityMap {
	ids := make(map[EntityKey]int64, len(rows))
	for _, r := range rows {
		key := KeyOf(r.Name, kind.Width())
		if key.Excluded() {
			continue
		}
		if cur, ok := ids[key]; !ok || r.ID < cur {
			ids[key] = r.ID
		}
	}
	return &IdentityMap{kind: kind, ids: ids}
}

// Kind returns the entity kind of the map.
func (m *IdentityMap) Kind() EntityKind { return m.kind }

// Len returns the number of mapped keys.
func (m *IdentityMap) Len() int {
	if m == nil {
		return 0
	}
	return len(m.ids)
}

// Lookup resolves name to its identifier.
func (m *IdentityMap) Lookup(name string) (int64, bool) {
	if m == nil {
		return 0, false
	}
	return m.LookupKey(KeyOf(name, m.kind.Width()))
}

// LookupKey resolves key to its identifier.
func (m *IdentityMap) LookupKey(key EntityKey) (int64, bool) {
	if m == nil {
		return 0, false
	}
	id, ok := m.ids[key]
	return id, ok
}

// Missing returns the keys of set that the map cannot resolve, in key order.
func (m *IdentityMap) Missing(set *EntitySet) []EntityKey {
	var out []EntityKey
	for _, k := range set.Keys() {
		if _, ok := m.LookupKey(k); !ok {
			out = append(out, k)
		}
	}
	return out
}

// IdentityMaps groups the three maps of a run.
type IdentityMaps struct {
	Journals *IdentityMap
	Sources  *IdentityMap
	Authors  *IdentityMap
}

// Get returns the map for kind.
func (m IdentityMaps) Get(kind EntityKind) *IdentityMap {
	switch kind {
	case KindJournal:
		return m.Journals
	case KindSource:
		return m.Sources
	case KindAuthor:
		return m.Authors
	default:
		return nil
	}
}

// Set stores im under its kind.
func (m *IdentityMaps) Set(im *IdentityMap) {
	switch im.Kind() {
	case KindJournal:
		m.Journals = im
	case KindSource:
		m.Sources = im
	case KindAuthor:
		m.Authors = im
	}
}

//Personal.AI order the ending
