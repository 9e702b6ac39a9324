package store

import "fmt"

// ActionKind identifies what an action records.
type ActionKind uint8

const (
	// ActionMessage is a chat message.
	ActionMessage ActionKind = iota + 1
	// ActionJoin records an account joining a room.
	ActionJoin
	// ActionLeave records an account leaving a room.
	ActionLeave
	// ActionTopic records a topic change.
	ActionTopic
	// ActionCreate records room creation. History only.
	ActionCreate
)

var kindNames = map[ActionKind]string{
	ActionMessage: "message",
	ActionJoin:    "join",
	ActionLeave:   "leave",
	ActionTopic:   "topic",
	ActionCreate:  "create",
}

func (k ActionKind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// ParseActionKind maps a stored name back to its kind.
func ParseActionKind(name string) (ActionKind, error) {
	for k, n := range kindNames {
		if n == name {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown action kind %q", name)
}

// KindSet is a bit set of action kinds.
type KindSet uint32

// Kinds builds a set from the given kinds.
func Kinds(kinds ...ActionKind) KindSet {
	var s KindSet
	for _, k := range kinds {
		s = s.With(k)
	}
	return s
}

// With returns the set with k added.
func (s KindSet) With(k ActionKind) KindSet {
	return s | 1<<k
}

// Without returns the set with k removed.
func (s KindSet) Without(k ActionKind) KindSet {
	return s &^ (1 << k)
}

// Has reports whether k is in the set.
func (s KindSet) Has(k ActionKind) bool {
	return s&(1<<k) != 0
}

// Slice returns the kinds in ascending order.
func (s KindSet) Slice() []ActionKind {
	var out []ActionKind
	for k := ActionMessage; k <= ActionCreate; k++ {
		if s.Has(k) {
			out = append(out, k)
		}
	}
	return out
}

// UpdateKinds are the kinds pushed to live connections as they happen.
var UpdateKinds = Kinds(ActionMessage, ActionJoin, ActionLeave, ActionTopic)
