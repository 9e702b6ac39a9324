package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKindSet(t *testing.T) {
	s := Kinds(ActionMessage, ActionTopic)
	assert.True(t, s.Has(ActionMessage))
	assert.True(t, s.Has(ActionTopic))
	assert.False(t, s.Has(ActionJoin))

	s = s.With(ActionJoin).Without(ActionTopic)
	assert.Equal(t, []ActionKind{ActionMessage, ActionJoin}, s.Slice())
}

func TestUpdateKindsExcludeCreate(t *testing.T) {
	assert.False(t, UpdateKinds.Has(ActionCreate))
	assert.Equal(t, []ActionKind{ActionMessage, ActionJoin, ActionLeave, ActionTopic}, UpdateKinds.Slice())
}

func TestParseActionKind(t *testing.T) {
	for _, k := range []ActionKind{ActionMessage, ActionJoin, ActionLeave, ActionTopic, ActionCreate} {
		got, err := ParseActionKind(k.String())
		require.NoError(t, err)
		assert.Equal(t, k, got)
	}

	_, err := ParseActionKind("reaction")
	assert.Error(t, err)
}
