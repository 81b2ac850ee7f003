package service

import (
	"context"
	"errors"
	"fmt"

	"clipshare/internal/model"
	"clipshare/internal/repository"
)

// subtree is a breadth-first snapshot of one comment and everything below it.
type subtree struct {
	start  int64
	levels [][]int64 // levels[0] holds only start
	// children lists direct replies per comment, oldest first.
	children map[int64][]int64
}

func (t *subtree) size() int {
	n := 0
	for _, lvl := range t.levels {
		n += len(lvl)
	}
	return n
}

func (t *subtree) descendants() int {
	return t.size() - 1
}

// ids returns every id in the subtree, start first.
func (t *subtree) ids() []int64 {
	out := make([]int64, 0, t.size())
	for _, lvl := range t.levels {
		out = append(out, lvl...)
	}
	return out
}

// preorder flattens the descendants depth-first, siblings oldest first.
// The start comment itself is not included.
func (t *subtree) preorder() []int64 {
	out := make([]int64, 0, t.descendants())
	stack := reversed(t.children[t.start])
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		out = append(out, id)
		stack = append(stack, reversed(t.children[id])...)
	}
	return out
}

func reversed(ids []int64) []int64 {
	out := make([]int64, len(ids))
	for i, id := range ids {
		out[len(ids)-1-i] = id
	}
	return out
}

// walkSubtree loads the subtree below startID one level per query. A
// positive limit caps the number of comments loaded; exceeding it fails
// with ErrThreadTooLarge. With limit <= 0 the walk is unbounded and ends
// once a level yields no unseen ids.
func walkSubtree(ctx context.Context, comments repository.CommentRepository, startID int64, limit int) (*subtree, error) {
	t := &subtree{
		start:    startID,
		levels:   [][]int64{{startID}},
		children: make(map[int64][]int64),
	}
	seen := map[int64]bool{startID: true}
	frontier := []int64{startID}
	steps := 1

	for len(frontier) > 0 {
		refs, err := comments.ListChildren(ctx, frontier)
		if err != nil {
			return nil, fmt.Errorf("walk subtree of comment %d: %w", startID, err)
		}

		var next []int64
		for _, ref := range refs {
			if seen[ref.ID] || ref.ParentCommentID == nil {
				continue
			}
			steps++
			if limit > 0 && steps > limit {
				return nil, model.ErrThreadTooLarge
			}
			seen[ref.ID] = true
			t.children[*ref.ParentCommentID] = append(t.children[*ref.ParentCommentID], ref.ID)
			next = append(next, ref.ID)
		}
		if len(next) > 0 {
			t.levels = append(t.levels, next)
		}
		frontier = next
	}
	return t, nil
}

// errBrokenChain marks an ancestor that no longer exists.
var errBrokenChain = errors.New("comment ancestor chain is broken")

// resolveRoot follows parent links up to the top-level comment.
func resolveRoot(ctx context.Context, comments repository.CommentRepository, ref *model.CommentRef) (int64, error) {
	current := ref
	for steps := 0; ; steps++ {
		if current.ParentCommentID == nil {
			return current.ID, nil
		}
		if steps >= model.MaxTreeWalkSteps {
			return 0, model.ErrTreeWalkLimit
		}
		parent, err := comments.GetRef(ctx, *current.ParentCommentID)
		if err != nil {
			if errors.Is(err, model.ErrCommentNotFound) {
				return 0, fmt.Errorf("resolve root of comment %d: %w", ref.ID, errBrokenChain)
			}
			return 0, fmt.Errorf("resolve root of comment %d: %w", ref.ID, err)
		}
		current = parent
	}
}
