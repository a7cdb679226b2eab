package transaction

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLatestActivity(t *testing.T) {
	base := time.Date(2014, 3, 10, 12, 0, 0, 0, time.UTC)

	t.Run("nothing happened yet", func(t *testing.T) {
		t.Parallel()

		tx := newTestTransaction(stubListing{authorID: "author-1"})

		_, found := tx.LatestActivity()
		assert.False(t, found)
	})

	t.Run("without conversation the last transition wins", func(t *testing.T) {
		t.Parallel()

		tx := newTestTransaction(stubListing{authorID: "author-1"})
		tx.Transitions = []Transition{
			{ID: "a", To: StatePending, SortKey: 1, CreatedAt: base},
			{ID: "b", To: StateAccepted, SortKey: 2, CreatedAt: base.Add(time.Hour)},
		}

		got, found := tx.LatestActivity()
		require.True(t, found)
		assert.Equal(t, ActivityTransition, got.Kind)
		assert.Equal(t, "b", got.ID)
	})

	t.Run("a newer message beats an older transition", func(t *testing.T) {
		t.Parallel()

		tx := newTestTransaction(stubListing{authorID: "author-1"})
		tx.Transitions = []Transition{
			{ID: "a", To: StatePending, SortKey: 1, CreatedAt: base},
		}
		tx.Conversation = stubConversation{messages: []Message{
			{ID: "m1", SentAt: base.Add(time.Minute), SortKey: 1},
			{ID: "m2", SentAt: base.Add(2 * time.Minute), SortKey: 2},
		}}

		got, found := tx.LatestActivity()
		require.True(t, found)
		assert.Equal(t, ActivityMessage, got.Kind)
		assert.Equal(t, "m2", got.ID)
	})

	t.Run("equal timestamps break deterministically on sort key", func(t *testing.T) {
		t.Parallel()

		tx := newTestTransaction(stubListing{authorID: "author-1"})
		tx.Transitions = []Transition{
			{ID: "a", To: StatePending, SortKey: 1, CreatedAt: base},
			{ID: "b", To: StateAccepted, SortKey: 2, CreatedAt: base},
		}

		for i := 0; i < 10; i++ {
			got, found := tx.LatestActivity()
			require.True(t, found)
			assert.Equal(t, "b", got.ID)
		}
	})
}
