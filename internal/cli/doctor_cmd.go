package cli

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/charlesng35/authzd/internal/security"
)

func newDoctorCmd(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Audit the deployment for risky settings; exits non-zero on failures",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := s.runtime()
			if err != nil {
				return err
			}
			// Audit what was configured, not the secret generated for this run.
			cfg := *s.cfg
			if s.generated["auth.jwt.secret"] {
				cfg.Auth.JWT.Secret = ""
			}

			result := security.NewAuditor(rt.DB, &cfg).Run(s.context(cmd))
			err = s.render(result, []string{"CHECK", "STATUS", "MESSAGE"}, func() [][]string {
				rows := make([][]string, 0, len(result.Checks))
				for _, check := range result.Checks {
					rows = append(rows, []string{check.ID, string(check.Status), check.Message})
				}
				return rows
			})
			if err != nil {
				return err
			}
			if result.Failed() {
				return errors.New("security audit failed")
			}
			return nil
		},
	}
}
