package moderation

import (
	"context"
	"testing"

	"chatsync/pkg/errdefs"
	"chatsync/pkg/models"
)

// fakeBackend holds authoritative group state; mutations cascade the way
// the real server does (a ban clears the pending request too).
type fakeBackend struct {
	group   models.Group
	pending []models.Member
	calls   []string
}

func (f *fakeBackend) FetchGroup(ctx context.Context, groupID string) (*models.Group, error) {
	g := f.group
	g.Members = append([]models.Member(nil), f.group.Members...)
	return &g, nil
}

func (f *fakeBackend) ListPending(ctx context.Context, groupID string) ([]models.Member, error) {
	return append([]models.Member(nil), f.pending...), nil
}

func (f *fakeBackend) ApproveRequest(ctx context.Context, groupID, userID string) error {
	f.calls = append(f.calls, "approve:"+userID)
	f.dropPending(userID)
	f.group.Members = append(f.group.Members, models.Member{UserID: userID, Role: models.RoleMember, Status: models.MemberActive})
	return nil
}

func (f *fakeBackend) RejectRequest(ctx context.Context, groupID, userID string) error {
	f.calls = append(f.calls, "reject:"+userID)
	f.dropPending(userID)
	return nil
}

func (f *fakeBackend) SetRole(ctx context.Context, groupID, userID string, role models.Role) error {
	f.calls = append(f.calls, "role:"+userID)
	for i := range f.group.Members {
		if f.group.Members[i].UserID == userID {
			f.group.Members[i].Role = role
		}
	}
	return nil
}

func (f *fakeBackend) BanMember(ctx context.Context, groupID, userID string) error {
	f.calls = append(f.calls, "ban:"+userID)
	f.dropPending(userID)
	for i := range f.group.Members {
		if f.group.Members[i].UserID == userID {
			f.group.Members[i].Status = models.MemberBanned
		}
	}
	return nil
}

func (f *fakeBackend) RemoveMember(ctx context.Context, groupID, userID string) error {
	f.calls = append(f.calls, "remove:"+userID)
	kept := f.group.Members[:0]
	for _, m := range f.group.Members {
		if m.UserID != userID {
			kept = append(kept, m)
		}
	}
	f.group.Members = kept
	return nil
}

func (f *fakeBackend) dropPending(userID string) {
	kept := f.pending[:0]
	for _, m := range f.pending {
		if m.UserID != userID {
			kept = append(kept, m)
		}
	}
	f.pending = kept
}

func testBackend() *fakeBackend {
	return &fakeBackend{
		group: models.Group{
			ID: "g1",
			Members: []models.Member{
				{UserID: "owner", Role: models.RoleCreator, Status: models.MemberActive},
				{UserID: "adm", Role: models.RoleAdmin, Status: models.MemberActive},
				{UserID: "joe", Role: models.RoleMember, Status: models.MemberActive},
			},
		},
		pending: []models.Member{{UserID: "newbie", Status: models.MemberPending}},
	}
}

func refreshed(t *testing.T, b Backend, localUser string) *Queue {
	t.Helper()
	q := NewQueue(b, "g1", localUser)
	if err := q.Refresh(context.Background()); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	return q
}

func TestApproveMovesRequestIntoRoster(t *testing.T) {
	b := testBackend()
	q := refreshed(t, b, "adm")

	if err := q.Approve(context.Background(), "newbie"); err != nil {
		t.Fatalf("approve: %v", err)
	}
	if len(q.Pending()) != 0 {
		t.Fatalf("pending queue not re-derived: %+v", q.Pending())
	}
	found := false
	for _, m := range q.Roster() {
		if m.UserID == "newbie" && m.Status == models.MemberActive {
			found = true
		}
	}
	if !found {
		t.Fatalf("approved member missing from roster: %+v", q.Roster())
	}
}

func TestBanRederivesPendingQueue(t *testing.T) {
	b := testBackend()
	// newbie has a pending request AND is banned in the same window
	b.group.Members = append(b.group.Members, models.Member{UserID: "newbie", Role: models.RoleMember, Status: models.MemberActive})
	q := refreshed(t, b, "adm")

	if err := q.Ban(context.Background(), "newbie"); err != nil {
		t.Fatalf("ban: %v", err)
	}
	// The cascade is the server's: the client only re-fetched.
	if len(q.Pending()) != 0 {
		t.Fatalf("banned user's pending request survived: %+v", q.Pending())
	}
	for _, m := range q.Roster() {
		if m.UserID == "newbie" && m.Status != models.MemberBanned {
			t.Fatalf("ban not reflected in roster: %+v", m)
		}
	}
}

func TestNonModeratorIsDeniedWithoutNetworkCall(t *testing.T) {
	b := testBackend()
	q := refreshed(t, b, "joe")

	err := q.Approve(context.Background(), "newbie")
	if errdefs.KindOf(err) != errdefs.KindAuthorizationDenied {
		t.Fatalf("expected authorization denial, got %v", err)
	}
	if len(b.calls) != 0 {
		t.Fatalf("denied action still reached the backend: %v", b.calls)
	}
}

func TestCreatorCannotBeTargeted(t *testing.T) {
	b := testBackend()
	q := refreshed(t, b, "adm")

	for _, tc := range []struct {
		name string
		call func() error
	}{
		{"ban", func() error { return q.Ban(context.Background(), "owner") }},
		{"remove", func() error { return q.Remove(context.Background(), "owner") }},
		{"demote", func() error { return q.SetRole(context.Background(), "owner", models.RoleMember) }},
	} {
		if err := tc.call(); errdefs.KindOf(err) != errdefs.KindAuthorizationDenied {
			t.Fatalf("%s of creator must be denied, got %v", tc.name, err)
		}
	}
	if len(b.calls) != 0 {
		t.Fatalf("creator-targeting actions reached the backend: %v", b.calls)
	}
}

func TestCreatorRoleCannotBeGranted(t *testing.T) {
	b := testBackend()
	q := refreshed(t, b, "adm")

	err := q.SetRole(context.Background(), "joe", models.RoleCreator)
	if errdefs.KindOf(err) != errdefs.KindAuthorizationDenied {
		t.Fatalf("granting creator must be denied, got %v", err)
	}
}

func TestReadsBeforeRefreshAreDenied(t *testing.T) {
	q := NewQueue(testBackend(), "g1", "adm")
	err := q.Approve(context.Background(), "newbie")
	if errdefs.KindOf(err) != errdefs.KindAuthorizationDenied {
		t.Fatalf("unloaded roster must deny moderation, got %v", err)
	}
}
