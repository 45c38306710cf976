package types

// Role identifies one of the five pipeline roles.
type Role string

const (
	RoleArchitect Role = "architect"
	RoleCoder     Role = "coder"
	RoleExecutor  Role = "executor"
	RoleCritic    Role = "critic"
	RoleDeployer  Role = "deployer"
)

// PipelineRoles returns the roles in pipeline stage order.
func PipelineRoles() []Role {
	return []Role{RoleArchitect, RoleCoder, RoleExecutor, RoleCritic, RoleDeployer}
}

// Valid reports whether r is one of the five known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleArchitect, RoleCoder, RoleExecutor, RoleCritic, RoleDeployer:
		return true
	}
	return false
}

// String implements fmt.Stringer.
func (r Role) String() string {
	return string(r)
}
