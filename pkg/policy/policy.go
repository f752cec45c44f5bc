// Package policy holds the coarse capability matrix gating routes by role.
// Instance level rules (ownership, unit match, time window) live in the services.
package policy

import (
	"fmt"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"

	"github.com/noah-isme/unibody-docs-api/internal/models"
)

const rbacModel = `
[request_definition]
r = sub, obj, act

[policy_definition]
p = sub, obj, act

[role_definition]
g = _, _

[policy_effect]
e = some(where (p.eft == allow))

[matchers]
m = g(r.sub, p.sub) && r.obj == p.obj && r.act == p.act
`

// Capability is an object/action pair a role may be granted.
type Capability struct {
	Object string
	Action string
}

func (c Capability) String() string {
	return c.Object + ":" + c.Action
}

var (
	DocumentUpload = Capability{"document", "upload"}
	DocumentModify = Capability{"document", "modify"}
	DocumentStats  = Capability{"document", "stats"}
	DocumentReview = Capability{"document", "review"}
	DocumentExport = Capability{"document", "export"}
	UnitRead       = Capability{"unit", "read"}
	UnitManage     = Capability{"unit", "manage"}
	UserRead       = Capability{"user", "read"}
	UserManage     = Capability{"user", "manage"}
	MetricsRead    = Capability{"metrics", "read"}
)

// grants lists what each role adds on top of the role it inherits from.
var grants = map[models.UserRole][]Capability{
	models.RoleSubAdmin:   {DocumentUpload, DocumentModify, DocumentStats, UnitRead, UserRead},
	models.RoleAdmin:      {DocumentReview, DocumentExport, UserManage},
	models.RoleSuperAdmin: {UnitManage, MetricsRead},
}

// inherits maps a role to the role whose capabilities it includes.
var inherits = [][2]models.UserRole{
	{models.RoleSuperAdmin, models.RoleAdmin},
	{models.RoleAdmin, models.RoleSubAdmin},
}

// Policy evaluates capabilities through a casbin enforcer.
type Policy struct {
	enforcer *casbin.SyncedEnforcer
}

// New builds the default role hierarchy policy.
func New() (*Policy, error) {
	m, err := model.NewModelFromString(rbacModel)
	if err != nil {
		return nil, fmt.Errorf("load policy model: %w", err)
	}
	enforcer, err := casbin.NewSyncedEnforcer(m)
	if err != nil {
		return nil, fmt.Errorf("create enforcer: %w", err)
	}
	for role, caps := range grants {
		for _, capability := range caps {
			if _, err := enforcer.AddPolicy(string(role), capability.Object, capability.Action); err != nil {
				return nil, fmt.Errorf("grant %s to %s: %w", capability, role, err)
			}
		}
	}
	for _, pair := range inherits {
		if _, err := enforcer.AddGroupingPolicy(string(pair[0]), string(pair[1])); err != nil {
			return nil, fmt.Errorf("inherit %s from %s: %w", pair[0], pair[1], err)
		}
	}
	return &Policy{enforcer: enforcer}, nil
}

// Allowed reports whether role holds capability. Unknown roles hold nothing.
func (p *Policy) Allowed(role models.UserRole, capability Capability) bool {
	if p == nil || !role.Valid() {
		return false
	}
	ok, err := p.enforcer.Enforce(string(role), capability.Object, capability.Action)
	return err == nil && ok
}
