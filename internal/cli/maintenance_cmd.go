package cli

import (
	"github.com/spf13/cobra"
)

func newMaintenanceCmd(s *session) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "maintenance",
		Short: "Housekeeping tasks",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "run",
		Short: "Run audit retention and expired cache cleanup once",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := s.runtime()
			if err != nil {
				return err
			}
			report, err := rt.Cleaner.RunOnce(s.context(cmd))
			if err != nil {
				return err
			}
			if s.json() {
				return printJSON(s.out, report)
			}
			return s.printf("audit logs removed: %d\ncache entries removed: %d\n", report.AuditLogs, report.CacheEntries)
		},
	}, &cobra.Command{
		Use:   "bootstrap",
		Short: "Seed the catalog and admin role and grant it to bootstrap.admin_user_ids",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := s.runtime()
			if err != nil {
				return err
			}
			if err := rt.Bootstrap(cmd.Context()); err != nil {
				return err
			}
			return s.printf("ok\n")
		},
	})
	return cmd
}
