package models

import (
	"testing"
	"time"
)

func TestParseRole(t *testing.T) {
	for _, r := range AllRoles {
		got, err := ParseRole(string(r))
		if err != nil {
			t.Fatalf("ParseRole(%q): %v", r, err)
		}
		if got != r {
			t.Errorf("ParseRole(%q) = %q", r, got)
		}
	}
	if _, err := ParseRole("president"); err == nil {
		t.Error("lowercase role accepted, want error")
	}
	if _, err := ParseRole("OWNER"); err == nil {
		t.Error("unknown role accepted, want error")
	}
}

func TestRoleGroupScoped(t *testing.T) {
	if !RoleLead.GroupScoped() || !RoleCoLead.GroupScoped() {
		t.Error("LEAD/CO-LEAD should be group scoped")
	}
	if RolePresident.GroupScoped() || RoleMember.GroupScoped() {
		t.Error("PRESIDENT/MEMBER should not be group scoped")
	}
}

func TestParseFieldTypeByKind(t *testing.T) {
	if _, err := ParseFieldType("TEXTAREA", FormKindJoin); err == nil {
		t.Error("TEXTAREA allowed on join form, want error")
	}
	if _, err := ParseFieldType("TEXTAREA", FormKindEvent); err != nil {
		t.Errorf("TEXTAREA rejected on event form: %v", err)
	}
	if _, err := ParseFieldType("DROPDOWN", FormKindJoin); err != nil {
		t.Errorf("DROPDOWN rejected on join form: %v", err)
	}
	if _, err := ParseFieldType("RADIO", FormKindEvent); err == nil {
		t.Error("unknown field type accepted, want error")
	}
}

func TestFieldListScanPreservesOrder(t *testing.T) {
	// JSON array deliberately out of declared order.
	raw := []byte(`[{"label":"B","field_type":"TEXT","order":2},{"label":"A","field_type":"EMAIL","order":1}]`)
	var fl FieldList
	if err := fl.Scan(raw); err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(fl) != 2 || fl[0].Label != "A" || fl[1].Label != "B" {
		t.Errorf("fields not sorted by order: %+v", fl)
	}
}

func TestRequestStatusResolved(t *testing.T) {
	if RequestPending.Resolved() {
		t.Error("PENDING should not be resolved")
	}
	if !RequestApproved.Resolved() || !RequestRejected.Resolved() {
		t.Error("APPROVED/REJECTED should be resolved")
	}
}

func TestUserLocked(t *testing.T) {
	now := time.Now()
	until := now.Add(10 * time.Minute)
	u := &User{LockedUntil: &until}
	if !u.Locked(now) {
		t.Error("user inside lockout window reported unlocked")
	}
	if u.Locked(until.Add(time.Second)) {
		t.Error("user past lockout window reported locked")
	}
	if (&User{}).Locked(now) {
		t.Error("user with nil LockedUntil reported locked")
	}
}
