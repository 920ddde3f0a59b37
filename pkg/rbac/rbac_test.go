package rbac

import "testing"

func TestHasPermission(t *testing.T) {
	tests := []struct {
		role       string
		permission string
		want       bool
	}{
		{RoleClient, PermissionCreateTask, true},
		{RoleClient, PermissionAcceptBid, true},
		{RoleClient, PermissionReleasePayment, true},
		{RoleClient, PermissionSubmitBid, false},
		{RoleClient, PermissionCompleteWork, false},
		{RoleFreelancer, PermissionSubmitBid, true},
		{RoleFreelancer, PermissionCompleteWork, true},
		{RoleFreelancer, PermissionCreateTask, false},
		{RoleFreelancer, PermissionAcceptBid, false},
		{RoleAdmin, PermissionCreateTask, true},
		{RoleAdmin, PermissionSubmitBid, true},
		{"ghost", PermissionCreateTask, false},
	}

	for _, tt := range tests {
		if got := HasPermission(tt.role, tt.permission); got != tt.want {
			t.Errorf("HasPermission(%s, %s) = %v, want %v", tt.role, tt.permission, got, tt.want)
		}
	}
}

func TestValidRole(t *testing.T) {
	for _, role := range []string{RoleClient, RoleFreelancer, RoleAdmin} {
		if !ValidRole(role) {
			t.Errorf("ValidRole(%s) = false", role)
		}
	}
	if ValidRole("superuser") {
		t.Error("ValidRole(superuser) = true")
	}
}
