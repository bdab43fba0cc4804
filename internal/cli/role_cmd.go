package cli

import (
	"strconv"

	"github.com/spf13/cobra"

	"github.com/charlesng35/authzd/internal/authz"
)

func newRoleCmd(s *session) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "role",
		Short: "Manage roles and their permissions",
	}
	cmd.AddCommand(
		newRoleListCmd(s),
		newRoleCreateCmd(s),
		newRoleDeleteCmd(s),
		newRolePermissionsCmd(s),
		newRoleGrantCmd(s),
		newRoleRevokePermissionsCmd(s),
		newRoleAssignCmd(s),
		newRoleUnassignCmd(s),
		newRoleUserCmd(s),
	)
	return cmd
}

func (s *session) renderRoles(roles []authz.Role) error {
	return s.render(roles, []string{"ID", "NAME"}, func() [][]string {
		rows := make([][]string, 0, len(roles))
		for _, role := range roles {
			rows = append(rows, []string{strconv.FormatInt(role.ID, 10), role.Name})
		}
		return rows
	})
}

func (s *session) renderPermissions(perms []authz.Permission) error {
	return s.render(perms, []string{"ID", "RESOURCE TYPE", "ACTION"}, func() [][]string {
		rows := make([][]string, 0, len(perms))
		for _, perm := range perms {
			rows = append(rows, []string{strconv.FormatInt(perm.ID, 10), perm.ResourceType.String(), string(perm.Action)})
		}
		return rows
	})
}

func newRoleListCmd(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List roles",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := s.runtime()
			if err != nil {
				return err
			}
			roles, err := rt.RBAC.ListRoles(s.context(cmd))
			if err != nil {
				return err
			}
			return s.renderRoles(roles)
		},
	}
}

func newRoleCreateCmd(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "create <name>",
		Short: "Create a role",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := s.runtime()
			if err != nil {
				return err
			}
			role, err := rt.RBAC.CreateRole(s.context(cmd), args[0])
			if err != nil {
				return err
			}
			return s.renderRoles([]authz.Role{role})
		},
	}
}

func newRoleDeleteCmd(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <role-id>",
		Short: "Delete a role together with its grants and assignments",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			roleID, err := parseID("role id", args[0])
			if err != nil {
				return err
			}
			rt, err := s.runtime()
			if err != nil {
				return err
			}
			if err := rt.RBAC.DeleteRole(s.context(cmd), roleID); err != nil {
				return err
			}
			if s.json() {
				return printJSON(s.out, map[string]any{"role_id": roleID, "deleted": true})
			}
			return s.printf("role %d deleted\n", roleID)
		},
	}
}

func newRolePermissionsCmd(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "permissions <role-id>",
		Short: "List the permissions granted to a role",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			roleID, err := parseID("role id", args[0])
			if err != nil {
				return err
			}
			rt, err := s.runtime()
			if err != nil {
				return err
			}
			perms, err := rt.RBAC.RolePermissions(s.context(cmd), roleID)
			if err != nil {
				return err
			}
			return s.renderPermissions(perms)
		},
	}
}

func newRoleGrantCmd(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "grant <role-id> <permission-id>...",
		Short: "Grant catalog permissions to a role",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			roleID, err := parseID("role id", args[0])
			if err != nil {
				return err
			}
			permIDs, err := parseIDs("permission id", args[1:])
			if err != nil {
				return err
			}
			rt, err := s.runtime()
			if err != nil {
				return err
			}
			added, err := rt.RBAC.GrantPermissions(s.context(cmd), roleID, permIDs)
			if err != nil {
				return err
			}
			if s.json() {
				return printJSON(s.out, map[string]any{"role_id": roleID, "added": added})
			}
			return s.printf("granted %d permission(s) to role %d\n", added, roleID)
		},
	}
}

func newRoleRevokePermissionsCmd(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "revoke-permissions <role-id> <resource-type>...",
		Short: "Remove every permission of the given resource types from a role",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			roleID, err := parseID("role id", args[0])
			if err != nil {
				return err
			}
			types := make([]authz.ResourceType, 0, len(args)-1)
			for _, arg := range args[1:] {
				rt, err := authz.ParseResourceType(arg)
				if err != nil {
					return err
				}
				types = append(types, rt)
			}
			rt, err := s.runtime()
			if err != nil {
				return err
			}
			removed, err := rt.RBAC.RevokePermissions(s.context(cmd), roleID, types)
			if err != nil {
				return err
			}
			return s.renderPermissions(removed)
		},
	}
}

func newRoleAssignCmd(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "assign <user-id> <role-id>",
		Short: "Give a role to a user",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return s.changeAssignment(cmd, args, true)
		},
	}
}

func newRoleUnassignCmd(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "unassign <user-id> <role-id>",
		Short: "Take a role away from a user",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return s.changeAssignment(cmd, args, false)
		},
	}
}

func (s *session) changeAssignment(cmd *cobra.Command, args []string, assign bool) error {
	userID, err := parseID("user id", args[0])
	if err != nil {
		return err
	}
	roleID, err := parseID("role id", args[1])
	if err != nil {
		return err
	}
	rt, err := s.runtime()
	if err != nil {
		return err
	}

	var changed bool
	if assign {
		changed, err = rt.RBAC.AssignRole(s.context(cmd), userID, roleID)
	} else {
		changed, err = rt.RBAC.RevokeRole(s.context(cmd), userID, roleID)
	}
	if err != nil {
		return err
	}
	if s.json() {
		return printJSON(s.out, map[string]any{"user_id": userID, "role_id": roleID, "changed": changed})
	}
	if !changed {
		return s.printf("no change\n")
	}
	return s.printf("ok\n")
}

func newRoleUserCmd(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "user <user-id>",
		Short: "List the roles a user holds",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := parseID("user id", args[0])
			if err != nil {
				return err
			}
			rt, err := s.runtime()
			if err != nil {
				return err
			}
			roles, err := rt.RBAC.UserRoles(s.context(cmd), userID)
			if err != nil {
				return err
			}
			return s.renderRoles(roles)
		},
	}
}
