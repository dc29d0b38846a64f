package models

// Role is a member's role inside a group.
type Role string

const (
	RoleCreator Role = "creator"
	RoleAdmin   Role = "admin"
	RoleMember  Role = "member"
)

// MemberStatus is a member's standing inside a group.
type MemberStatus string

const (
	MemberActive  MemberStatus = "active"
	MemberPending MemberStatus = "pending"
	MemberBanned  MemberStatus = "banned"
)

// Member ties a user to a role and standing within one group. A pending
// join request is a Member with status pending.
type Member struct {
	UserID      string       `json:"user_id"`
	Username    string       `json:"username,omitempty"`
	Role        Role         `json:"role"`
	Status      MemberStatus `json:"status"`
	RequestedTS int64        `json:"requested_ts,omitempty"`
}

// Group is a chat group and its roster.
type Group struct {
	ID        string   `json:"id"`
	Name      string   `json:"name,omitempty"`
	CreatedBy string   `json:"created_by"`
	Members   []Member `json:"members"`
}

// Find returns the roster entry for userID, or nil.
func (g *Group) Find(userID string) *Member {
	for i := range g.Members {
		if g.Members[i].UserID == userID {
			return &g.Members[i]
		}
	}
	return nil
}

// CanModerate reports whether a role may approve/reject/promote/demote/ban.
func CanModerate(r Role) bool { return r == RoleCreator || r == RoleAdmin }
