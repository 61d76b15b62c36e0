package overlay

import (
	"cmp"
	"slices"
	"sort"

	"github.com/google/uuid"
)

// CommentStore is an ordered collection of comments sorted by due time
// ascending, ties kept in ingestion order.
// It is not safe for concurrent use; the Scheduler that owns it serializes access.
type CommentStore struct {
	comments []Comment
	index    map[CommentID]int
}

// NewCommentStore returns an empty store.
func NewCommentStore() *CommentStore {
	return &CommentStore{index: make(map[CommentID]int)}
}

// Add merges comments into the store and returns the comments as stored.
// A comment with an empty or already-used ID gets a generated one.
func (s *CommentStore) Add(comments ...Comment) []Comment {
	added := make([]Comment, 0, len(comments))
	seen := make(map[CommentID]struct{}, len(comments))
	for _, c := range comments {
		_, inStore := s.index[c.ID]
		_, inBatch := seen[c.ID]
		if c.ID == "" || inStore || inBatch {
			c.ID = CommentID(uuid.NewString())
		}
		seen[c.ID] = struct{}{}
		added = append(added, c)
	}

	s.comments = append(s.comments, added...)
	slices.SortStableFunc(s.comments, func(a, b Comment) int {
		return cmp.Compare(a.DueTime, b.DueTime)
	})
	s.reindex()
	return added
}

// Len returns the number of stored comments.
func (s *CommentStore) Len() int {
	return len(s.comments)
}

// At returns the i-th comment in due-time order.
func (s *CommentStore) At(i int) Comment {
	return s.comments[i]
}

// Get looks up a comment by ID.
func (s *CommentStore) Get(id CommentID) (Comment, bool) {
	i, ok := s.index[id]
	if !ok {
		return Comment{}, false
	}
	return s.comments[i], true
}

// Range returns the half-open index range [start, end) of comments whose due
// time lies within [from, to].
func (s *CommentStore) Range(from, to float64) (start, end int) {
	start = sort.Search(len(s.comments), func(i int) bool { return s.comments[i].DueTime >= from })
	end = sort.Search(len(s.comments), func(i int) bool { return s.comments[i].DueTime > to })
	if end < start {
		end = start
	}
	return start, end
}

// Snapshot returns a copy of all comments in order.
func (s *CommentStore) Snapshot() []Comment {
	return slices.Clone(s.comments)
}

// Clear removes every comment.
func (s *CommentStore) Clear() {
	s.comments = nil
	s.index = make(map[CommentID]int)
}

func (s *CommentStore) reindex() {
	clear(s.index)
	for i, c := range s.comments {
		s.index[c.ID] = i
	}
}
