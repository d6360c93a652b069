package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/frahmantamala/hr-portal/internal/access"
	"github.com/frahmantamala/hr-portal/internal/guard"
	"github.com/frahmantamala/hr-portal/internal/route"
	"github.com/spf13/cobra"
)

var routesCmd = &cobra.Command{
	Use:   "routes",
	Short: "Print the route table",
	Long:  `Print every page of the portal with its access requirements`,
	Run: func(cmd *cobra.Command, args []string) {
		printRoutes()
	},
}

var decideCmd = &cobra.Command{
	Use:   "decide [path...]",
	Short: "Dry-run navigation decisions",
	Long:  `Run the authorization pipeline for one or more paths as a synthetic user`,
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runDecide(cmd, args)
	},
}

var (
	decideGuest         bool
	decideLoading       bool
	decideNoProfile     bool
	decideLevel         string
	decideVerification  string
	decideProfileStatus string
	decideRoles         []string
	decideJSON          bool
)

func init() {
	decideCmd.Flags().BoolVar(&decideGuest, "guest", false, "decide as a visitor without a session")
	decideCmd.Flags().BoolVar(&decideLoading, "loading", false, "decide while the session is still loading")
	decideCmd.Flags().BoolVar(&decideNoProfile, "no-profile", false, "the user has no employee profile yet")
	decideCmd.Flags().StringVar(&decideLevel, "level", "", "force an access level instead of deriving it")
	decideCmd.Flags().StringVar(&decideVerification, "verification", string(access.StatusVerified), "employee verification status")
	decideCmd.Flags().StringVar(&decideProfileStatus, "profile-status", string(access.ProfileComplete), "employee profile status")
	decideCmd.Flags().StringSliceVar(&decideRoles, "roles", nil, "active role codes, e.g. MANAGER,ADMIN")
	decideCmd.Flags().BoolVar(&decideJSON, "json", false, "print decisions as JSON lines")
}

func printRoutes() {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "PATH\tTITLE\tACCESS\tLEVEL\tROLES\tVERIFICATION")
	for _, e := range route.Entries() {
		kind := "protected"
		switch {
		case e.GuestOnly:
			kind = "guest-only"
		case e.Public:
			kind = "public"
		}
		level := "-"
		if e.RequiredLevel != nil {
			level = e.RequiredLevel.String()
		}
		roles := "-"
		if len(e.RequiredRoles) > 0 {
			parts := make([]string, len(e.RequiredRoles))
			for i, r := range e.RequiredRoles {
				parts[i] = string(r)
			}
			roles = strings.Join(parts, ",")
		}
		gated := ""
		if e.VerificationGated {
			gated = "gated"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n", e.Path, e.Title, kind, level, roles, gated)
	}
	_ = w.Flush()
}

// syntheticState builds the session state described by the decide flags.
func syntheticState() (guard.State, error) {
	if decideGuest {
		s := guard.Guest()
		s.Loading = decideLoading
		return s, nil
	}

	var roles []access.RoleAssignment
	for _, r := range decideRoles {
		code := access.RoleCode(strings.ToUpper(strings.TrimSpace(r)))
		if code != "" {
			roles = append(roles, access.RoleAssignment{RoleCode: code, IsActive: true})
		}
	}

	var profile *access.EmployeeProfile
	if !decideNoProfile {
		profile = &access.EmployeeProfile{
			VerificationStatus: access.VerificationStatus(strings.ToUpper(decideVerification)),
			ProfileStatus:      access.ProfileStatus(strings.ToUpper(decideProfileStatus)),
		}
	}

	level := access.DeriveAccessLevel(profile, roles)
	if decideLevel != "" {
		forced, err := access.ParseAccessLevel(decideLevel)
		if err != nil {
			return guard.State{}, err
		}
		level = forced
	}

	return guard.State{
		Loading:            decideLoading,
		Authenticated:      true,
		Level:              level,
		VerificationStatus: access.VerificationStatusOf(profile),
		ProfileStatus:      access.ProfileStatusOf(profile),
		Roles:              roles,
	}, nil
}

func runDecide(cmd *cobra.Command, paths []string) error {
	state, err := syntheticState()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if !decideJSON {
		fmt.Fprintf(out, "level=%s verification=%s profile=%s\n", state.Level, state.VerificationStatus, state.ProfileStatus)
	}
	enc := json.NewEncoder(out)
	for _, p := range paths {
		d := guard.Decide(p, state)
		if decideJSON {
			if err := enc.Encode(map[string]interface{}{"path": p, "decision": d}); err != nil {
				return err
			}
			continue
		}
		fmt.Fprintf(out, "%-28s %s\n", p, d)
	}
	return nil
}
