package transaction

import "time"

// ActivityKind distinguishes what produced an activity entry.
type ActivityKind string

const (
	// ActivityTransition marks activity from a transition log entry.
	ActivityTransition ActivityKind = "transition"
	// ActivityMessage marks activity from a conversation message.
	ActivityMessage ActivityKind = "message"
)

// Activity is one timestamped event considered by LatestActivity.
type Activity struct {
	Kind       ActivityKind
	ID         string
	OccurredAt time.Time
	SortKey    int64
}

// moreRecentThan implements the most-recent-wins comparison. Timestamp
// decides; equal timestamps fall back to the sort key so ties break
// deterministically.
func (a Activity) moreRecentThan(other Activity) bool {
	if !a.OccurredAt.Equal(other.OccurredAt) {
		return a.OccurredAt.After(other.OccurredAt)
	}

	return a.SortKey > other.SortKey
}

// LatestActivity returns the most recent event across the transition log and
// the linked conversation's messages. Without a conversation it reduces to
// the transition log maximum. The second return is false when no activity
// exists at all.
func (t *Transaction) LatestActivity() (Activity, bool) {
	var (
		latest Activity
		found  bool
	)

	consider := func(candidate Activity) {
		if !found || candidate.moreRecentThan(latest) {
			latest = candidate
			found = true
		}
	}

	for _, entry := range t.Transitions {
		consider(Activity{
			Kind:       ActivityTransition,
			ID:         entry.ID,
			OccurredAt: entry.CreatedAt,
			SortKey:    entry.SortKey,
		})
	}

	if t.Conversation != nil {
		for _, message := range t.Conversation.Messages() {
			consider(Activity{
				Kind:       ActivityMessage,
				ID:         message.ID,
				OccurredAt: message.SentAt,
				SortKey:    message.SortKey,
			})
		}
	}

	return latest, found
}
