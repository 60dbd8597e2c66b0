package goSession

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// Role is the exhaustive set of account roles known to the session.
// The zero value is not a valid role.
type Role uint8

const (
	// RoleStudent is the default learner role.
	RoleStudent Role = iota + 1
	// RoleInstructor can author courses.
	RoleInstructor
	// RoleAdmin administers the platform.
	RoleAdmin

	roleCount = iota
)

var roleNames = [...]string{
	RoleStudent:    "STUDENT",
	RoleInstructor: "INSTRUCTOR",
	RoleAdmin:      "ADMIN",
}

// ParseRole maps the wire form ("STUDENT", "INSTRUCTOR", "ADMIN") to a Role.
// Matching is case-insensitive and ignores surrounding whitespace.
func ParseRole(s string) (Role, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	for r := RoleStudent; r <= RoleAdmin; r++ {
		if roleNames[r] == s {
			return r, nil
		}
	}
	return 0, fmt.Errorf("unknown role %q", s)
}

// Valid reports whether r is one of the declared roles.
func (r Role) Valid() bool {
	return r >= RoleStudent && r <= RoleAdmin
}

func (r Role) String() string {
	if !r.Valid() {
		return fmt.Sprintf("Role(%d)", uint8(r))
	}
	return roleNames[r]
}

// MarshalJSON encodes the role in its wire form.
func (r Role) MarshalJSON() ([]byte, error) {
	if !r.Valid() {
		return nil, fmt.Errorf("marshal invalid role %d", uint8(r))
	}
	return json.Marshal(roleNames[r])
}

// UnmarshalJSON rejects anything outside the declared roles.
func (r *Role) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseRole(s)
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// RoleSet is a bitmask over [Role] values.
type RoleSet uint8

// AllRoles contains every declared role.
var AllRoles = NewRoleSet(RoleStudent, RoleInstructor, RoleAdmin)

// NewRoleSet builds a set from roles. Invalid roles are ignored.
func NewRoleSet(roles ...Role) RoleSet {
	var s RoleSet
	for _, r := range roles {
		if r.Valid() {
			s |= 1 << r
		}
	}
	return s
}

// Has reports whether r is a member of s.
func (s RoleSet) Has(r Role) bool {
	return r.Valid() && s&(1<<r) != 0
}

// Roles lists members in declaration order.
func (s RoleSet) Roles() []Role {
	out := make([]Role, 0, roleCount)
	for r := RoleStudent; r <= RoleAdmin; r++ {
		if s.Has(r) {
			out = append(out, r)
		}
	}
	return out
}

func (s RoleSet) String() string {
	roles := s.Roles()
	names := make([]string, len(roles))
	for i, r := range roles {
		names[i] = r.String()
	}
	return "{" + strings.Join(names, ",") + "}"
}

// User is the authenticated-user record held by the session and persisted
// under the user key.
type User struct {
	ID             string `json:"id" validate:"required"`
	Email          string `json:"email" validate:"required,email"`
	FirstName      string `json:"first_name,omitempty"`
	LastName       string `json:"last_name,omitempty"`
	Role           Role   `json:"role" validate:"required"`
	EmailVerified  bool   `json:"email_verified"`
	Bio            string `json:"bio,omitempty"`
	PhoneNumber    string `json:"phone_number,omitempty"`
	ProfilePicture string `json:"profile_picture,omitempty"`
}

// FullName joins the first and last name, skipping empty parts.
func (u User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// UserPatch is a partial [User]. Nil fields are "not present" and leave the
// current value untouched. The user ID cannot be patched.
type UserPatch struct {
	Email          *string `json:"email,omitempty"`
	FirstName      *string `json:"first_name,omitempty"`
	LastName       *string `json:"last_name,omitempty"`
	Role           *Role   `json:"role,omitempty"`
	EmailVerified  *bool   `json:"email_verified,omitempty"`
	Bio            *string `json:"bio,omitempty"`
	PhoneNumber    *string `json:"phone_number,omitempty"`
	ProfilePicture *string `json:"profile_picture,omitempty"`
}

// Empty reports whether the patch carries no fields.
func (p UserPatch) Empty() bool {
	return p == UserPatch{}
}

// Apply returns u with every present field of p copied over it.
func (p UserPatch) Apply(u User) User {
	if p.Email != nil {
		u.Email = *p.Email
	}
	if p.FirstName != nil {
		u.FirstName = *p.FirstName
	}
	if p.LastName != nil {
		u.LastName = *p.LastName
	}
	if p.Role != nil {
		u.Role = *p.Role
	}
	if p.EmailVerified != nil {
		u.EmailVerified = *p.EmailVerified
	}
	if p.Bio != nil {
		u.Bio = *p.Bio
	}
	if p.PhoneNumber != nil {
		u.PhoneNumber = *p.PhoneNumber
	}
	if p.ProfilePicture != nil {
		u.ProfilePicture = *p.ProfilePicture
	}
	return u
}

// PatchFromUser builds a patch that sets every field of u except the ID.
func PatchFromUser(u User) UserPatch {
	role := u.Role
	verified := u.EmailVerified
	return UserPatch{
		Email:          &u.Email,
		FirstName:      &u.FirstName,
		LastName:       &u.LastName,
		Role:           &role,
		EmailVerified:  &verified,
		Bio:            &u.Bio,
		PhoneNumber:    &u.PhoneNumber,
		ProfilePicture: &u.ProfilePicture,
	}
}

// Credentials is the opaque access/refresh pair issued by the token
// authority. The session stores and discards it, nothing more.
type Credentials struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

// Status is the session lifecycle. It moves from StatusInitializing to
// StatusSettled once and never back.
type Status uint8

const (
	// StatusInitializing means hydration has not completed; no
	// authorization decision may be taken yet.
	StatusInitializing Status = iota
	// StatusSettled means the session reflects a definitive answer.
	StatusSettled
)

func (s Status) String() string {
	switch s {
	case StatusInitializing:
		return "INITIALIZING"
	case StatusSettled:
		return "SETTLED"
	default:
		return fmt.Sprintf("Status(%d)", uint8(s))
	}
}

// View is an immutable snapshot of the session handed to readers.
type View struct {
	User   *User
	Status Status
}

// IsLoading is true exactly while the session is initializing.
func (v View) IsLoading() bool {
	return v.Status == StatusInitializing
}

// IsAuthenticated is true once settled with a user present.
func (v View) IsAuthenticated() bool {
	return v.Status == StatusSettled && v.User != nil
}

// Reader is the read-only side of the session consumed by guards and views.
type Reader interface {
	View() View
}

// Session is the consumption contract exposed to the rest of an
// application: a read-only view plus the three mutations.
type Session interface {
	Reader
	Login(ctx context.Context, creds Credentials, user User) error
	Logout(ctx context.Context) error
	UpdateUser(ctx context.Context, patch UserPatch) error
}
