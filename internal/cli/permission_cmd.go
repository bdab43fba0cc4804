package cli

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/charlesng35/authzd/internal/authz"
)

func newPermissionCmd(s *session) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "permission",
		Aliases: []string{"permissions"},
		Short:   "Inspect and extend the permission catalog",
	}
	cmd.AddCommand(newPermissionListCmd(s), newPermissionDefineCmd(s), newPermissionUserCmd(s))
	return cmd
}

func newPermissionListCmd(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the permission catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := s.runtime()
			if err != nil {
				return err
			}
			perms, err := rt.RBAC.ListPermissions(s.context(cmd))
			if err != nil {
				return err
			}
			return s.renderPermissions(perms)
		},
	}
}

func newPermissionDefineCmd(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "define <resource-type> <action>",
		Short: "Add a (resource type, action) pair to the catalog",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			resourceType, err := authz.ParseResourceType(args[0])
			if err != nil {
				return err
			}
			rt, err := s.runtime()
			if err != nil {
				return err
			}
			perm, err := rt.RBAC.DefinePermission(s.context(cmd), resourceType, authz.Action(strings.TrimSpace(args[1])))
			if err != nil {
				return err
			}
			return s.renderPermissions([]authz.Permission{perm})
		},
	}
}

func newPermissionUserCmd(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "user <user-id>",
		Short: "List a user's effective permissions",
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
			perms, err := rt.RBAC.UserPermissions(s.context(cmd), userID)
			if err != nil {
				return err
			}
			return s.renderPermissions(perms)
		},
	}
}

func newCheckCmd(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "check <user-id> <resource-type> <action>",
		Short: "Evaluate an RBAC check; exits non-zero on deny",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := parseID("user id", args[0])
			if err != nil {
				return err
			}
			resourceType, err := authz.ParseResourceType(args[1])
			if err != nil {
				return err
			}
			rt, err := s.runtime()
			if err != nil {
				return err
			}
			decision, err := rt.RBAC.Check(s.context(cmd), userID, resourceType, authz.Action(strings.TrimSpace(args[2])))
			if err != nil {
				return err
			}

			if s.json() {
				err = printJSON(s.out, map[string]any{"allowed": bool(decision), "decision": decision.String()})
			} else {
				err = s.printf("%s\n", decision)
			}
			if err != nil {
				return err
			}
			if decision != authz.Allow {
				return errDenied
			}
			return nil
		},
	}
}
