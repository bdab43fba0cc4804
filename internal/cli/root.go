// Package cli implements authzctl, an administration tool that operates on
// the authorization database directly. Every mutation goes through the same
// audited services as the HTTP API.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/multierr"

	"github.com/charlesng35/authzd/internal/app"
	"github.com/charlesng35/authzd/internal/auditctx"
	"github.com/charlesng35/authzd/pkg/logger"
)

// AuditSource tags audit rows written by authzctl.
const AuditSource = "cli"

var (
	version = "dev"
	commit  = "none"
)

// Execute runs the CLI.
func Execute() int {
	rootCmd := newRootCmd(os.Stdout)
	if err := rootCmd.Execute(); err != nil {
		output, _ := rootCmd.PersistentFlags().GetString("output")
		if output == "json" {
			_ = printJSON(os.Stdout, map[string]any{"error": err.Error()})
		} else {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		return 1
	}
	return 0
}

// session carries state resolved once per invocation.
type session struct {
	configPath string
	output     string
	logLevel   string
	out        io.Writer

	cfg       *app.Config
	generated map[string]bool
	rt        *app.Runtime
}

func newRootCmd(out io.Writer) *cobra.Command {
	s := &session{out: out}

	rootCmd := &cobra.Command{
		Use:           "authzctl",
		Short:         "Administer roles, permissions and authorizations",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.SetOut(out)

	rootCmd.PersistentFlags().StringVarP(&s.configPath, "config", "c", "", "Path to configuration directory or file")
	rootCmd.PersistentFlags().StringVarP(&s.output, "output", "o", "table", "Output format (table, json)")
	rootCmd.PersistentFlags().StringVar(&s.logLevel, "log-level", "error", "Log level for engine diagnostics")

	rootCmd.AddCommand(
		newRoleCmd(s),
		newPermissionCmd(s),
		newCheckCmd(s),
		newGrantCmd(s),
		newRevokeCmd(s),
		newListCmd(s),
		newPreviewCmd(s),
		newPurgeCmd(s),
		newTokenCmd(s),
		newAuditCmd(s),
		newMaintenanceCmd(s),
		newDoctorCmd(s),
		newVersionCmd(s),
	)
	closeAfterRun(rootCmd, s)
	return rootCmd
}

// closeAfterRun releases the session's runtime once a command finishes,
// including when it fails; cobra skips post-run hooks on error.
func closeAfterRun(cmd *cobra.Command, s *session) {
	if run := cmd.RunE; run != nil {
		cmd.RunE = func(c *cobra.Command, args []string) (err error) {
			defer func() {
				err = multierr.Append(err, s.close())
			}()
			return run(c, args)
		}
	}
	for _, child := range cmd.Commands() {
		closeAfterRun(child, s)
	}
}

// runtime lazily loads configuration and opens the database.
func (s *session) runtime() (*app.Runtime, error) {
	if s.rt != nil {
		return s.rt, nil
	}
	if err := validateOutputFormat(s.output); err != nil {
		return nil, err
	}

	cfg, err := loadConfig(s.configPath)
	if err != nil {
		return nil, err
	}
	if err := app.ConfigureLogging(s.logLevel); err != nil {
		return nil, fmt.Errorf("configure logging: %w", err)
	}
	generated, err := app.ApplyRuntimeDefaults(cfg)
	if err != nil {
		return nil, err
	}

	rt, err := app.NewRuntime(cfg)
	if err != nil {
		return nil, err
	}
	s.cfg, s.generated, s.rt = cfg, generated, rt
	return rt, nil
}

func (s *session) close() error {
	defer logger.Sync() // best effort
	if s.rt == nil {
		return nil
	}
	err := s.rt.Close()
	s.rt = nil
	return err
}

func (s *session) context(cmd *cobra.Command) context.Context {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return auditctx.WithActor(ctx, auditctx.Actor{Source: AuditSource})
}

func (s *session) json() bool {
	return s.output == "json"
}

func loadConfig(path string) (*app.Config, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return app.LoadConfig()
	}
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("config path %q does not exist", path)
		}
		return nil, fmt.Errorf("stat config path: %w", err)
	}
	if info.IsDir() {
		return app.LoadConfig(path)
	}
	return app.LoadConfig(filepath.Dir(path))
}

func parseID(name, value string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid %s %q: must be a positive integer", name, value)
	}
	return id, nil
}

func parseIDs(name string, values []string) ([]int64, error) {
	ids := make([]int64, 0, len(values))
	for _, value := range values {
		id, err := parseID(name, value)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func newVersionCmd(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the CLI version",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			if s.json() {
				return printJSON(s.out, map[string]string{"version": version, "commit": commit})
			}
			_, err := fmt.Fprintf(s.out, "authzctl version %s (commit: %s)\n", version, commit)
			return err
		},
	}
}
