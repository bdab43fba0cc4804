package cli

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	iauth "github.com/charlesng35/authzd/internal/auth"
	"github.com/charlesng35/authzd/internal/authz"
)

// errDenied makes `check` and `authorized` exit non-zero without extra output.
var errDenied = errors.New("denied")

func (s *session) renderAuthorizations(auths []authz.Authorization) error {
	return s.render(auths, []string{"ID", "USER", "CLIENT", "SCOPE", "STATUS", "CREATED", "UPDATED", "REMOVED"}, func() [][]string {
		rows := make([][]string, 0, len(auths))
		for _, a := range auths {
			created := a.CreatedTime
			rows = append(rows, []string{
				strconv.FormatInt(a.ID, 10),
				strconv.FormatInt(a.UserID, 10),
				strconv.FormatInt(a.ClientID, 10),
				strconv.FormatInt(a.ScopeID, 10),
				a.Status.String(),
				formatTime(&created),
				formatTime(a.UpdatedTime),
				formatTime(a.RemovedTime),
			})
		}
		return rows
	})
}

func parseTriple(args []string) (userID, clientID, scopeID int64, err error) {
	if userID, err = parseID("user id", args[0]); err != nil {
		return
	}
	if clientID, err = parseID("client id", args[1]); err != nil {
		return
	}
	scopeID, err = parseID("scope id", args[2])
	return
}

func newGrantCmd(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "grant <user-id> <client-id> <scope-id>",
		Short: "Record consent for a scope, reactivating a revoked authorization",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, clientID, scopeID, err := parseTriple(args)
			if err != nil {
				return err
			}
			rt, err := s.runtime()
			if err != nil {
				return err
			}
			auth, err := rt.Consent.Grant(s.context(cmd), userID, clientID, scopeID)
			if err != nil {
				return err
			}
			return s.renderAuthorizations([]authz.Authorization{auth})
		},
	}
}

func newRevokeCmd(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "revoke <user-id> <client-id> <scope-id>",
		Short: "Soft-revoke an authorization",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, clientID, scopeID, err := parseTriple(args)
			if err != nil {
				return err
			}
			rt, err := s.runtime()
			if err != nil {
				return err
			}
			auth, err := rt.Consent.Revoke(s.context(cmd), userID, clientID, scopeID)
			if err != nil {
				return err
			}
			return s.renderAuthorizations([]authz.Authorization{auth})
		},
	}
}

func newListCmd(s *session) *cobra.Command {
	var authorized []string
	cmd := &cobra.Command{
		Use:   "list <user-id>",
		Short: "List a user's active authorizations",
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

			if len(authorized) > 0 {
				if len(authorized) != 2 {
					return fmt.Errorf("--authorized expects <client-id>,<scope-id>")
				}
				ids, err := parseIDs("id", authorized)
				if err != nil {
					return err
				}
				ok, err := rt.Consent.IsAuthorized(s.context(cmd), userID, ids[0], ids[1])
				if err != nil {
					return err
				}
				if s.json() {
					err = printJSON(s.out, map[string]any{"user_id": userID, "client_id": ids[0], "scope_id": ids[1], "authorized": ok})
				} else {
					err = s.printf("%t\n", ok)
				}
				if err == nil && !ok {
					err = errDenied
				}
				return err
			}

			auths, err := rt.Consent.ListActive(s.context(cmd), userID)
			if err != nil {
				return err
			}
			return s.renderAuthorizations(auths)
		},
	}
	cmd.Flags().StringSliceVar(&authorized, "authorized", nil, "Only test a single <client-id>,<scope-id> pair")
	return cmd
}

func newPreviewCmd(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "preview <user-id> <client-id> <scope-id>...",
		Short: "Classify requested scopes against the ledger without writing",
		Args:  cobra.MinimumNArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := parseID("user id", args[0])
			if err != nil {
				return err
			}
			clientID, err := parseID("client id", args[1])
			if err != nil {
				return err
			}
			scopeIDs, err := parseIDs("scope id", args[2:])
			if err != nil {
				return err
			}
			rt, err := s.runtime()
			if err != nil {
				return err
			}
			decisions, err := rt.Consent.Preview(s.context(cmd), userID, clientID, scopeIDs)
			if err != nil {
				return err
			}
			return s.render(decisions, []string{"SCOPE", "STATE", "AUTHORIZATION"}, func() [][]string {
				rows := make([][]string, 0, len(decisions))
				for _, d := range decisions {
					ref := "-"
					if d.Authorization != nil {
						ref = strconv.FormatInt(d.Authorization.ID, 10)
					}
					rows = append(rows, []string{strconv.FormatInt(d.ScopeID, 10), string(d.State), ref})
				}
				return rows
			})
		},
	}
}

func newPurgeCmd(s *session) *cobra.Command {
	var olderThan time.Duration
	cmd := &cobra.Command{
		Use:   "purge",
		Short: "Hard-delete revoked authorizations removed before the cutoff",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := s.runtime()
			if err != nil {
				return err
			}
			n, err := rt.Consent.Purge(s.context(cmd), olderThan)
			if err != nil {
				return err
			}
			if s.json() {
				return printJSON(s.out, map[string]any{"purged": n})
			}
			return s.printf("purged %d authorization(s)\n", n)
		},
	}
	cmd.Flags().DurationVar(&olderThan, "older-than", 30*24*time.Hour, "Minimum age since revocation")
	return cmd
}

func newTokenCmd(s *session) *cobra.Command {
	var ttl time.Duration
	cmd := &cobra.Command{
		Use:   "token <user-id>",
		Short: "Mint an access token for the HTTP API",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			userID, err := parseID("user id", args[0])
			if err != nil {
				return err
			}
			rt, err := s.runtime()
			if err != nil {
				return err
			}
			if s.generated["auth.jwt.secret"] {
				return errors.New("auth.jwt.secret is not configured; a token signed with a generated secret would be useless")
			}
			token, err := rt.JWT.GenerateAccessToken(iauth.AccessTokenInput{UserID: userID, TTL: ttl})
			if err != nil {
				return err
			}
			if s.json() {
				return printJSON(s.out, map[string]any{"user_id": userID, "access_token": token})
			}
			return s.printf("%s\n", token)
		},
	}
	cmd.Flags().DurationVar(&ttl, "ttl", 0, "Token lifetime (defaults to auth.jwt.access_token_ttl)")
	return cmd
}
