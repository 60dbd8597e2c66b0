package goSession

import (
	"encoding/json"
	"testing"
)

func TestParseRole(t *testing.T) {
	cases := map[string]Role{
		"STUDENT":    RoleStudent,
		"instructor": RoleInstructor,
		"  Admin ":   RoleAdmin,
	}
	for in, want := range cases {
		got, err := ParseRole(in)
		if err != nil || got != want {
			t.Fatalf("ParseRole(%q) = %v, %v", in, got, err)
		}
	}
	if _, err := ParseRole("ROOT"); err == nil {
		t.Fatal("expected unknown role error")
	}
}

func TestRoleJSONRejectsUnknown(t *testing.T) {
	var r Role
	if err := json.Unmarshal([]byte(`"GUEST"`), &r); err == nil {
		t.Fatal("expected error for unknown role")
	}
	if _, err := json.Marshal(Role(0)); err == nil {
		t.Fatal("expected error marshaling zero role")
	}
	data, err := json.Marshal(RoleInstructor)
	if err != nil || string(data) != `"INSTRUCTOR"` {
		t.Fatalf("marshal = %s, %v", data, err)
	}
}

func TestRoleSet(t *testing.T) {
	s := NewRoleSet(RoleAdmin, RoleStudent, Role(0), Role(7))
	if !s.Has(RoleAdmin) || !s.Has(RoleStudent) || s.Has(RoleInstructor) {
		t.Fatalf("unexpected membership %s", s)
	}
	if s.Has(Role(7)) {
		t.Fatal("invalid roles are never members")
	}
	if got := s.String(); got != "{STUDENT,ADMIN}" {
		t.Fatalf("unexpected string %q", got)
	}
	if len(AllRoles.Roles()) != 3 {
		t.Fatal("AllRoles must hold every role")
	}
}

func TestUserJSONWireNames(t *testing.T) {
	raw := `{"id":"7","email":"a@example.com","first_name":"A","last_name":"B","role":"ADMIN","email_verified":true,"phone_number":"123"}`
	var u User
	if err := json.Unmarshal([]byte(raw), &u); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if u.ID != "7" || u.Role != RoleAdmin || !u.EmailVerified || u.PhoneNumber != "123" || u.FullName() != "A B" {
		t.Fatalf("unexpected user %+v", u)
	}
}

func TestUserPatchApply(t *testing.T) {
	u := testUser()
	if got := (UserPatch{}).Apply(u); got != u {
		t.Fatal("empty patch must be the identity")
	}
	if !(UserPatch{}).Empty() {
		t.Fatal("zero patch should be empty")
	}

	full := User{ID: "other", Email: "x@example.com", Role: RoleAdmin, Bio: "b"}
	got := PatchFromUser(full).Apply(u)
	want := full
	want.ID = u.ID
	if got != want {
		t.Fatalf("full patch mismatch:\n got %+v\nwant %+v", got, want)
	}
}

func TestUserPatchJSONOmitsAbsentFields(t *testing.T) {
	bio := "hi"
	data, err := json.Marshal(UserPatch{Bio: &bio})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(data) != `{"bio":"hi"}` {
		t.Fatalf("unexpected patch json %s", data)
	}
}

func TestViewDerivedFlags(t *testing.T) {
	u := testUser()
	cases := []struct {
		view          View
		loading, auth bool
	}{
		{View{Status: StatusInitializing}, true, false},
		{View{Status: StatusInitializing, User: &u}, true, false},
		{View{Status: StatusSettled}, false, false},
		{View{Status: StatusSettled, User: &u}, false, true},
	}
	for i, c := range cases {
		if c.view.IsLoading() != c.loading || c.view.IsAuthenticated() != c.auth {
			t.Fatalf("case %d: loading=%v auth=%v", i, c.view.IsLoading(), c.view.IsAuthenticated())
		}
	}
}
