package paper

import "sort"

// EntitySet is the distinct-value set of one entity kind. Each key keeps one
// display name: the lexicographically smallest canonical variant seen, so the
// result does not depend on row order.
type EntitySet struct {
	kind  EntityKind
	names map[EntityKey]string
}

// NewEntitySet returns an empty set for kind.
func NewEntitySet(kind EntityKind) *EntitySet {
	return &EntitySet{kind: kind, names: make(map[EntityKey]string)}
}

// Kind returns the entity kind of the set.
func (s *EntitySet) Kind() EntityKind { return s.kind }

// Add inserts name. Empty and sentinel names are ignored.
func (s *EntitySet) Add(name string) {
	display := CanonicalName(name, s.kind.Width())
	key := KeyOf(display, s.kind.Width())
	if key.Excluded() {
		return
	}
	if cur, ok := s.names[key]; !ok || display < cur {
		s.names[key] = display
	}
}

// Len returns the number of distinct entities.
func (s *EntitySet) Len() int { return len(s.names) }

// Contains reports whether name's key is in the set.
func (s *EntitySet) Contains(name string) bool {
	_, ok := s.names[KeyOf(name, s.kind.Width())]
	return ok
}

// Keys returns the keys in ascending order.
func (s *EntitySet) Keys() []EntityKey {
	keys := make([]EntityKey, 0, len(s.names))
	for k := range s.names {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

// Names returns the display names ordered by key.
func (s *EntitySet) Names() []string {
	keys := s.Keys()
	out := make([]string, len(keys))
	for i, k := range keys {
		out[i] = s.names[k]
	}
	return out
}

// Name returns the display name stored for key.
func (s *EntitySet) Name(key EntityKey) (string, bool) {
	n, ok := s.names[key]
	return n, ok
}

// EntitySets groups the three distinct-value sets of a run.
type EntitySets struct {
	Journals *EntitySet
	Sources  *EntitySet
	Authors  *EntitySet
}

// Get returns the set for kind.
func (e EntitySets) Get(kind EntityKind) *EntitySet {
	switch kind {
	case KindJournal:
		return e.Journals
	case KindSource:
		return e.Sources
	case KindAuthor:
		return e.Authors
	default:
		return nil
	}
}

// Deduplicator accumulates entity sets across all records of a run. Authors
// are deduplicated globally, not per paper.
type Deduplicator struct {
	sets EntitySets
}

// NewDeduplicator returns an empty Deduplicator.
func NewDeduplicator() *Deduplicator {
	return &Deduplicator{sets: EntitySets{
		Journals: NewEntitySet(KindJournal),
		Sources:  NewEntitySet(KindSource),
		Authors:  NewEntitySet(KindAuthor),
	}}
}

// Add folds rec's journal, source and authors into the sets.
func (d *Deduplicator) Add(rec NormalizedRecord) {
	d.sets.Journals.Add(rec.Journal)
	d.sets.Sources.Add(rec.Source)
	for _, a := range rec.Authors {
		d.sets.Authors.Add(a)
	}
}

// Sets returns the accumulated sets.
func (d *Deduplicator) Sets() EntitySets { return d.sets }

// Deduplicate builds the entity sets of records in one pass.
func Deduplicate(records []NormalizedRecord) EntitySets {
	d := NewDeduplicator()
	for _, r := range records {
		d.Add(r)
	}
	return d.Sets()
}

//Personal.AI order the ending
