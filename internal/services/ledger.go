package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/beer/backend/internal/models"
	"github.com/beer/backend/internal/store"
)

// MaxCommentLength bounds comment text at the input boundary.
const MaxCommentLength = 200

// Vote records one vote per (voter, profile). Re-clicking the held vote is a
// no-op; switching moves exactly one tally unit from the old bucket to the
// new. The store serializes concurrent mutations of the same profile.
func (s *ProfileService) Vote(ctx context.Context, profileID, voterID string, vote models.VoteType) (*models.Profile, error) {
	if vote != models.VoteGreen && vote != models.VoteRed {
		return nil, ErrInvalidVote
	}

	p, err := s.store.MutateProfile(ctx, profileID, func(p *models.Profile) error {
		prev, voted := p.Votes[voterID]
		if voted && prev == vote {
			return nil
		}
		if voted {
			switch prev {
			case models.VoteGreen:
				p.GreenFlags--
			case models.VoteRed:
				p.RedFlags--
			}
		}
		switch vote {
		case models.VoteGreen:
			p.GreenFlags++
		case models.VoteRed:
			p.RedFlags++
		}
		p.Votes[voterID] = vote
		return nil
	})
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrProfileNotFound
	}
	return p, err
}

// AddComment prepends an immutable comment (newest first) and bumps the
// count by exactly one.
func (s *ProfileService) AddComment(ctx context.Context, profileID, userID string, text string) (*models.Profile, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyComment
	}
	if len(text) > MaxCommentLength {
		return nil, ErrCommentTooLong
	}

	u, err := s.store.GetUser(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	comment := models.Comment{
		ID:        uuid.New().String(),
		UserID:    userID,
		Username:  u.Username,
		Text:      text,
		Timestamp: time.Now(),
	}

	p, err := s.store.MutateProfile(ctx, profileID, func(p *models.Profile) error {
		p.Comments = append([]models.Comment{comment}, p.Comments...)
		p.CommentCount++
		return nil
	})
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrProfileNotFound
	}
	return p, err
}
