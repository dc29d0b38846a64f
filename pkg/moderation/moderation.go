// Package moderation manages a group's pending join requests and
// role/ban actions. Mutations are gated client-side as a UX guard (the
// server re-validates) and never patch local state: role and ban actions
// cascade (a banned member's pending request must disappear too), so both
// the queue and the roster are re-derived from source after every call.
package moderation

import (
	"context"
	"sync"

	"chatsync/pkg/errdefs"
	"chatsync/pkg/logger"
	"chatsync/pkg/models"
)

// Backend is the REST surface the queue depends on.
type Backend interface {
	FetchGroup(ctx context.Context, groupID string) (*models.Group, error)
	ListPending(ctx context.Context, groupID string) ([]models.Member, error)
	ApproveRequest(ctx context.Context, groupID, userID string) error
	RejectRequest(ctx context.Context, groupID, userID string) error
	SetRole(ctx context.Context, groupID, userID string, role models.Role) error
	BanMember(ctx context.Context, groupID, userID string) error
	RemoveMember(ctx context.Context, groupID, userID string) error
}

// Queue tracks one group's moderation state.
type Queue struct {
	backend     Backend
	groupID     string
	localUserID string

	mu      sync.RWMutex
	group   *models.Group
	pending []models.Member
}

// NewQueue builds a queue; call Refresh before the first read.
func NewQueue(backend Backend, groupID, localUserID string) *Queue {
	return &Queue{backend: backend, groupID: groupID, localUserID: localUserID}
}

// Refresh re-fetches both the pending queue and the roster.
func (q *Queue) Refresh(ctx context.Context) error {
	group, err := q.backend.FetchGroup(ctx, q.groupID)
	if err != nil {
		return err
	}
	pending, err := q.backend.ListPending(ctx, q.groupID)
	if err != nil {
		return err
	}
	q.mu.Lock()
	q.group = group
	q.pending = pending
	q.mu.Unlock()
	return nil
}

// Pending returns the current pending join requests.
func (q *Queue) Pending() []models.Member {
	q.mu.RLock()
	defer q.mu.RUnlock()
	out := make([]models.Member, len(q.pending))
	copy(out, q.pending)
	return out
}

// Roster returns the current member roster.
func (q *Queue) Roster() []models.Member {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.group == nil {
		return nil
	}
	out := make([]models.Member, len(q.group.Members))
	copy(out, q.group.Members)
	return out
}

// gate verifies the local user may moderate, and that the target is not
// the creator (a creator can never be demoted, banned or removed).
func (q *Queue) gate(targetUserID string, targetProtected bool) error {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.group == nil {
		return errdefs.New(errdefs.KindAuthorizationDenied, "roster not loaded")
	}
	self := q.group.Find(q.localUserID)
	if self == nil || !models.CanModerate(self.Role) {
		return errdefs.New(errdefs.KindAuthorizationDenied, "user %s may not moderate group %s", q.localUserID, q.groupID)
	}
	if targetProtected {
		if t := q.group.Find(targetUserID); t != nil && t.Role == models.RoleCreator {
			return errdefs.New(errdefs.KindAuthorizationDenied, "creator cannot be targeted")
		}
	}
	return nil
}

// mutate runs one gated backend action, then re-derives state.
func (q *Queue) mutate(ctx context.Context, action string, userID string, protected bool, call func() error) error {
	if err := q.gate(userID, protected); err != nil {
		logger.Warn("moderation_denied", "group", q.groupID, "action", action, "target", userID)
		return err
	}
	if err := call(); err != nil {
		return err
	}
	logger.Info("moderation_applied", "group", q.groupID, "action", action, "target", userID)
	return q.Refresh(ctx)
}

// Approve resolves a pending request into an active member.
func (q *Queue) Approve(ctx context.Context, userID string) error {
	return q.mutate(ctx, "approve", userID, false, func() error {
		return q.backend.ApproveRequest(ctx, q.groupID, userID)
	})
}

// Reject removes a pending request.
func (q *Queue) Reject(ctx context.Context, userID string) error {
	return q.mutate(ctx, "reject", userID, false, func() error {
		return q.backend.RejectRequest(ctx, q.groupID, userID)
	})
}

// SetRole promotes or demotes a member.
func (q *Queue) SetRole(ctx context.Context, userID string, role models.Role) error {
	if role == models.RoleCreator {
		return errdefs.New(errdefs.KindAuthorizationDenied, "creator role cannot be granted")
	}
	return q.mutate(ctx, "set_role", userID, true, func() error {
		return q.backend.SetRole(ctx, q.groupID, userID, role)
	})
}

// Ban bans a member. The re-fetch also clears any pending request the
// banned user held.
func (q *Queue) Ban(ctx context.Context, userID string) error {
	return q.mutate(ctx, "ban", userID, true, func() error {
		return q.backend.BanMember(ctx, q.groupID, userID)
	})
}

// Remove removes a member from the roster.
func (q *Queue) Remove(ctx context.Context, userID string) error {
	return q.mutate(ctx, "remove", userID, true, func() error {
		return q.backend.RemoveMember(ctx, q.groupID, userID)
	})
}
