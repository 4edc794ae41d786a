package scheduler

import (
	"time"

	"github.com/emirpasic/gods/trees/redblacktree"

	"github.com/conorfennell/flashdeck/internal/domain"
)

// before reports whether a sorts ahead of b in the selection order: due cards
// first, then ascending nextReviewAt. Ties are left to the caller's position.
func before(a, b domain.Card, now time.Time) bool {
	aDue, bDue := a.IsDue(now), b.IsDue(now)
	if aDue != bDue {
		return aDue
	}
	return a.NextReviewAt < b.NextReviewAt
}

// SelectNext returns the card to show at now, or false when cards is empty.
// Among equally ranked cards the one earliest in the slice wins.
func SelectNext(cards []domain.Card, now time.Time) (domain.Card, bool) {
	if len(cards) == 0 {
		return domain.Card{}, false
	}
	best := 0
	for i := 1; i < len(cards); i++ {
		if before(cards[i], cards[best], now) {
			best = i
		}
	}
	return cards[best], true
}

// queueKey orders queue entries. seq is fixed when a card first enters the
// queue, so re-keying a card keeps its original tie-break position.
type queueKey struct {
	next domain.Millis
	seq  uint64
}

func compareKeys(a, b interface{}) int {
	ka, kb := a.(queueKey), b.(queueKey)
	switch {
	case ka.next < kb.next:
		return -1
	case ka.next > kb.next:
		return 1
	case ka.seq < kb.seq:
		return -1
	case ka.seq > kb.seq:
		return 1
	}
	return 0
}

// Queue is an ordered index over card ids that yields the same card as
// SelectNext without re-sorting the deck. Ordering by nextReviewAt alone is
// enough: every due card has a smaller nextReviewAt than every card that is
// not due yet, whatever the current time.
//
// Queue is not safe for concurrent use.
type Queue struct {
	tree *redblacktree.Tree
	keys map[string]queueKey
	seq  uint64
}

// NewQueue returns an empty queue.
func NewQueue() *Queue {
	return &Queue{
		tree: redblacktree.NewWith(compareKeys),
		keys: make(map[string]queueKey),
	}
}

// Push adds the card or moves it to its new nextReviewAt.
func (q *Queue) Push(c domain.Card) {
	key, ok := q.keys[c.ID]
	if ok {
		q.tree.Remove(key)
	} else {
		key.seq = q.seq
		q.seq++
	}
	key.next = c.NextReviewAt
	q.keys[c.ID] = key
	q.tree.Put(key, c.ID)
}

// Remove drops the card with the given id. Unknown ids are ignored.
func (q *Queue) Remove(id string) {
	key, ok := q.keys[id]
	if !ok {
		return
	}
	q.tree.Remove(key)
	delete(q.keys, id)
}

// Peek returns the id of the card that would be selected next.
func (q *Queue) Peek() (string, bool) {
	node := q.tree.Left()
	if node == nil {
		return "", false
	}
	return node.Value.(string), true
}

// Len returns the number of queued cards.
func (q *Queue) Len() int {
	return q.tree.Size()
}
