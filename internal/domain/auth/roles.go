package auth

import (
	"sync"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
)

const (
	RoleEmployee = "employee"
	RoleManager  = "manager"
	RoleAdmin    = "admin"
)

const (
	PermLeaveRead   = "leave.read"
	PermLeaveWrite  = "leave.write"
	PermLeaveReview = "leave.review"
	PermLeaveAll    = "leave.all"
	PermUsersManage = "users.manage"
	PermAuditRead   = "audit.read"
)

var RolePermissions = map[string][]string{
	RoleEmployee: {
		PermLeaveRead,
		PermLeaveWrite,
	},
	RoleManager: {
		PermLeaveRead,
		PermLeaveWrite,
		PermLeaveReview,
		PermLeaveAll,
	},
	RoleAdmin: {
		PermLeaveRead,
		PermLeaveWrite,
		PermLeaveReview,
		PermLeaveAll,
		PermUsersManage,
		PermAuditRead,
	},
}

func ValidRole(role string) bool {
	_, ok := RolePermissions[role]
	return ok
}

const policyModel = `[request_definition]
r = sub, obj

[policy_definition]
p = sub, obj

[policy_effect]
e = some(where (p.eft == allow))

[matchers]
m = r.sub == p.sub && r.obj == p.obj
`

var (
	enforcerOnce sync.Once
	enforcer     *casbin.Enforcer
)

// NewEnforcer builds a casbin enforcer loaded with RolePermissions.
func NewEnforcer() (*casbin.Enforcer, error) {
	m, err := model.NewModelFromString(policyModel)
	if err != nil {
		return nil, err
	}
	e, err := casbin.NewEnforcer(m)
	if err != nil {
		return nil, err
	}
	for role, perms := range RolePermissions {
		for _, perm := range perms {
			if _, err := e.AddPolicy(role, perm); err != nil {
				return nil, err
			}
		}
	}
	return e, nil
}

func defaultEnforcer() *casbin.Enforcer {
	enforcerOnce.Do(func() {
		e, err := NewEnforcer()
		if err != nil {
			panic("auth: build enforcer: " + err.Error())
		}
		enforcer = e
	})
	return enforcer
}

func HasPermission(role, permission string) bool {
	if role == "" || permission == "" {
		return false
	}
	ok, err := defaultEnforcer().Enforce(role, permission)
	return err == nil && ok
}
