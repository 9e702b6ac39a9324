package core

import (
	"maps"
	"slices"
)

// EmoteDelta describes how one catalog snapshot becomes the next.
// An alias whose reference changed shows up as an addition.
type EmoteDelta struct {
	Additions map[string]string
	Deletions []string
}

// Empty reports whether the delta changes nothing.
func (d EmoteDelta) Empty() bool {
	return len(d.Additions) == 0 && len(d.Deletions) == 0
}

// Apply returns a new catalog with the delta applied to catalog.
func (d EmoteDelta) Apply(catalog map[string]string) map[string]string {
	out := maps.Clone(catalog)
	if out == nil {
		out = make(map[string]string, len(d.Additions))
	}
	for _, alias := range d.Deletions {
		delete(out, alias)
	}
	maps.Copy(out, d.Additions)
	return out
}

// DiffEmotes computes the delta from prev to next. Deletions are sorted.
func DiffEmotes(prev, next map[string]string) EmoteDelta {
	delta := EmoteDelta{
		Additions: make(map[string]string),
		Deletions: []string{},
	}
	for alias, ref := range next {
		if old, ok := prev[alias]; !ok || old != ref {
			delta.Additions[alias] = ref
		}
	}
	for alias := range prev {
		if _, ok := next[alias]; !ok {
			delta.Deletions = append(delta.Deletions, alias)
		}
	}
	slices.Sort(delta.Deletions)
	return delta
}

// RoomDelta lists rooms that entered and left a joined set.
type RoomDelta struct {
	Added   []int64
	Removed []int64
}

// Empty reports whether the sets were equal.
func (d RoomDelta) Empty() bool {
	return len(d.Added) == 0 && len(d.Removed) == 0
}

// DiffRooms compares two joined sets. A nil prev means nothing was ever
// pushed, so every room in next counts as added.
func DiffRooms(prev, next map[int64]struct{}) RoomDelta {
	var delta RoomDelta
	for id := range next {
		if _, ok := prev[id]; !ok {
			delta.Added = append(delta.Added, id)
		}
	}
	for id := range prev {
		if _, ok := next[id]; !ok {
			delta.Removed = append(delta.Removed, id)
		}
	}
	slices.Sort(delta.Added)
	slices.Sort(delta.Removed)
	return delta
}

// BadgeDecreased reports whether any room's unread count went down,
// which means it was marked read somewhere else.
func BadgeDecreased(prev, next map[int64]int) bool {
	for id, count := range next {
		if old, ok := prev[id]; ok && count < old {
			return true
		}
	}
	return false
}
