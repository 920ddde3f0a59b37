package rbac

// 权限常量
const (
	PermissionCreateTask      = "task:create"
	PermissionCancelTask      = "task:cancel"
	PermissionSubmitBid       = "bid:submit"
	PermissionAcceptBid       = "bid:accept"
	PermissionCreateMilestone = "milestone:create"
	PermissionCompleteWork    = "milestone:complete"
	PermissionReleasePayment  = "milestone:pay"
)

// 角色常量
const (
	RoleClient     = "client"
	RoleFreelancer = "freelancer"
	RoleAdmin      = "admin"
)

// 角色权限映射
var rolePermissions = map[string][]string{
	RoleClient: {
		PermissionCreateTask,
		PermissionCancelTask,
		PermissionAcceptBid,
		PermissionCreateMilestone,
		PermissionReleasePayment,
	},
	RoleFreelancer: {
		PermissionSubmitBid,
		PermissionCompleteWork,
	},
	RoleAdmin: {
		PermissionCreateTask,
		PermissionCancelTask,
		PermissionSubmitBid,
		PermissionAcceptBid,
		PermissionCreateMilestone,
		PermissionCompleteWork,
		PermissionReleasePayment,
	},
}

func ValidRole(role string) bool {
	switch role {
	case RoleClient, RoleFreelancer, RoleAdmin:
		return true
	default:
		return false
	}
}

// HasPermission 检查角色是否有指定权限
func HasPermission(role string, permission string) bool {
	permissions, ok := rolePermissions[role]
	if !ok {
		return false
	}

	for _, p := range permissions {
		if p == permission {
			return true
		}
	}
	return false
}
