package service

import (
	"context"

	"clipshare/internal/model"
	"clipshare/internal/repository"
)

// attachCommentDetails fills author cards and reaction state in place.
func attachCommentDetails(ctx context.Context, users repository.UserRepository, reactions *ReactionService, comments []model.Comment, viewerID *int64) error {
	if len(comments) == 0 {
		return nil
	}
	ids := make([]int64, len(comments))
	authorIDs := make([]int64, 0, len(comments))
	for i, c := range comments {
		ids[i] = c.ID
		authorIDs = append(authorIDs, c.UserID)
	}

	authors, err := users.GetSummaries(ctx, uniqueIDs(authorIDs))
	if err != nil {
		return err
	}
	states, err := reactions.Enrich(ctx, model.EntityComment, ids, viewerID)
	if err != nil {
		return err
	}

	for i := range comments {
		if a, ok := authors[comments[i].UserID]; ok {
			a := a
			comments[i].Author = &a
		}
		comments[i].Reactions = states[comments[i].ID]
	}
	return nil
}

// attachPostDetails fills author cards and reaction state in place.
// Images are loaded by the repository.
func attachPostDetails(ctx context.Context, users repository.UserRepository, reactions *ReactionService, posts []model.Post, viewerID *int64) error {
	if len(posts) == 0 {
		return nil
	}
	ids := make([]int64, len(posts))
	authorIDs := make([]int64, 0, len(posts))
	for i, p := range posts {
		ids[i] = p.ID
		authorIDs = append(authorIDs, p.UserID)
	}

	authors, err := users.GetSummaries(ctx, uniqueIDs(authorIDs))
	if err != nil {
		return err
	}
	states, err := reactions.Enrich(ctx, model.EntityPost, ids, viewerID)
	if err != nil {
		return err
	}

	for i := range posts {
		if a, ok := authors[posts[i].UserID]; ok {
			a := a
			posts[i].Author = &a
		}
		posts[i].Reactions = states[posts[i].ID]
	}
	return nil
}

func uniqueIDs(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
