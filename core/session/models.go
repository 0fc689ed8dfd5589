// Package session tracks the authenticated identity for a browser tab and
// implements the admin→teacher impersonation hand-off between tabs.
package session

// Roles the login screen can request.
const (
	RoleAdmin   = "ADMIN"
	RoleTeacher = "TEACHER"
)

// Session is the live identity for a tab: the opaque backend credential plus
// the confirmed display attributes. At most one Session affects outgoing
// requests per tab; a consumed impersonation Grant outranks the durable
// Session until explicitly reversed.
type Session struct {
	Token        string `json:"token"`
	Role         string `json:"role"`
	Name         string `json:"name"`
	UserID       int    `json:"user_id"`
	Impersonated bool   `json:"impersonated,omitempty"`
}

func (s Session) IsAdmin() bool   { return s.Role == RoleAdmin }
func (s Session) IsTeacher() bool { return s.Role == RoleTeacher }

// Identity is the backend's confirmation of who a credential belongs to.
type Identity struct {
	ID   int    `json:"user_id"`
	Name string `json:"name"`
	Role string `json:"role,omitempty"`
}

// TeacherRef identifies the target of an impersonation request.
type TeacherRef struct {
	ID     int    `json:"teacher_id"`
	Name   string `json:"name"`
	UserID string `json:"userid,omitempty"`
	Email  string `json:"email,omitempty"`
}

// Grant is one admin→teacher impersonation hand-off: the short-lived teacher
// credential, the origin tab's backed-up admin session, and the way back.
// It is transmitted once via a one-time exchange code and then lives in
// tab-scoped storage until the user returns to the admin session.
type Grant struct {
	Token       string  `json:"token"`
	TeacherID   int     `json:"teacher_id"`
	TeacherName string  `json:"teacher_name"`
	AdminToken  string  `json:"admin_token"`
	AdminUser   Session `json:"admin_user"`
	ReturnURL   string  `json:"return_url"`
}
