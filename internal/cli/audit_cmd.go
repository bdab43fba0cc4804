package cli

import (
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/charlesng35/authzd/internal/models"
	"github.com/charlesng35/authzd/internal/services"
)

func newAuditCmd(s *session) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Inspect and prune the audit trail",
	}
	cmd.AddCommand(newAuditListCmd(s), newAuditPruneCmd(s))
	return cmd
}

func newAuditListCmd(s *session) *cobra.Command {
	var (
		opts   services.AuditListOptions
		userID int64
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List audit entries, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := s.runtime()
			if err != nil {
				return err
			}
			if userID > 0 {
				opts.Filters.UserID = &userID
			}
			logs, total, err := rt.Audit.List(s.context(cmd), opts)
			if err != nil {
				return err
			}
			if s.json() {
				return printJSON(s.out, map[string]any{"data": logs, "total": total})
			}
			return printTable(s.out, []string{"TIME", "ACTION", "RESOURCE", "RESULT", "USER", "METADATA"}, auditRows(logs))
		},
	}
	cmd.Flags().IntVar(&opts.Page, "page", 1, "Page number")
	cmd.Flags().IntVar(&opts.PageSize, "per-page", 50, "Entries per page (max 200)")
	cmd.Flags().StringVar(&opts.Filters.Action, "action", "", "Filter by action, e.g. role.create")
	cmd.Flags().StringVar(&opts.Filters.Result, "result", "", "Filter by result (success, failure)")
	cmd.Flags().StringVar(&opts.Filters.Resource, "resource", "", "Filter by resource")
	cmd.Flags().Int64Var(&userID, "user", 0, "Filter by acting user id")
	return cmd
}

func auditRows(logs []models.AuditLog) [][]string {
	rows := make([][]string, 0, len(logs))
	for _, entry := range logs {
		user := "-"
		if entry.UserID != nil {
			user = strconv.FormatInt(*entry.UserID, 10)
		}
		rows = append(rows, []string{
			entry.CreatedAt.UTC().Format(time.RFC3339),
			entry.Action,
			entry.Resource,
			entry.Result,
			user,
			string(entry.Metadata),
		})
	}
	return rows
}

func newAuditPruneCmd(s *session) *cobra.Command {
	var days int
	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete audit entries older than the retention window",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := s.runtime()
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("days") {
				days = s.cfg.Audit.RetentionDays
			}
			n, err := rt.Audit.CleanupOlderThan(s.context(cmd), days)
			if err != nil {
				return err
			}
			if s.json() {
				return printJSON(s.out, map[string]any{"deleted": n})
			}
			return s.printf("deleted %d audit entr(ies)\n", n)
		},
	}
	cmd.Flags().IntVar(&days, "days", 0, "Retention in days (defaults to audit.retention_days)")
	return cmd
}
