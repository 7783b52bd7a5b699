// Command admin runs operator tasks against the team task database.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/yukikurage/team-task-api/internal/cache"
	"github.com/yukikurage/team-task-api/internal/config"
	"github.com/yukikurage/team-task-api/internal/database"
	"github.com/yukikurage/team-task-api/internal/models"
	"github.com/yukikurage/team-task-api/internal/observability/audit"
	"github.com/yukikurage/team-task-api/internal/repository"
	"github.com/yukikurage/team-task-api/internal/services"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// app holds what every subcommand needs once configuration is loaded.
type app struct {
	cfg      *config.Config
	store    repository.Store
	identity *services.IdentityService
}

func setup(migrate bool) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
	slog.SetDefault(logger)

	db, err := database.Connect(cfg)
	if err != nil {
		return nil, err
	}
	if migrate {
		if err := database.Migrate(db); err != nil {
			return nil, err
		}
	}

	store := repository.NewStore(db)
	identity := services.NewIdentityService(
		store,
		services.NewBcryptHasher(0),
		services.NewTokenService(cfg.JWTSecret, cfg.JWTExpiry),
		cache.NewMemoryDenylist(),
		services.NewGuard(audit.NewLogger(logger)),
	)
	return &app{cfg: cfg, store: store, identity: identity}, nil
}

func commandContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Operator tasks for the team task API",
		Long: `Operator tasks for the team task API.

Configuration is read from the environment and an optional .env file,
the same way the server reads it.

Examples:
  admin migrate                      # Create or update tables and indexes
  admin seed-admin                   # Create ADMIN_EMAIL as an active admin
  admin promote alice@example.com    # Make an existing user an active admin
  admin users --role TEAM_LEADER     # List team leaders
`,
		SilenceUsage: true,
	}

	cmd.AddCommand(migrateCmd(), seedAdminCmd(), promoteCmd(), usersCmd())
	return cmd
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := setup(true); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
			return nil
		},
	}
}

func seedAdminCmd() *cobra.Command {
	var email, password string

	cmd := &cobra.Command{
		Use:   "seed-admin",
		Short: "Create the initial admin account if it does not exist",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(true)
			if err != nil {
				return err
			}
			if email == "" {
				email = a.cfg.AdminEmail
			}
			if password == "" {
				password = a.cfg.AdminPassword
			}

			ctx, cancel := commandContext()
			defer cancel()

			user, created, err := a.identity.SeedAdmin(ctx, email, password)
			if err != nil {
				return err
			}
			if created {
				fmt.Fprintf(cmd.OutOrStdout(), "created admin %s (%s)\n", user.Email, user.ID)
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "%s already exists, nothing to do\n", user.Email)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Admin email (defaults to ADMIN_EMAIL)")
	cmd.Flags().StringVar(&password, "password", "", "Admin password (defaults to ADMIN_PASSWORD)")
	return cmd
}

func promoteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "promote <email>",
		Short: "Make an existing user an active admin",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(false)
			if err != nil {
				return err
			}

			ctx, cancel := commandContext()
			defer cancel()

			user, err := a.identity.Promote(ctx, args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s is now an active admin\n", user.Email)
			return nil
		},
	}
}

func usersCmd() *cobra.Command {
	var (
		role       string
		inactive   bool
		outputJSON bool
		page       int
		limit      int
	)

	cmd := &cobra.Command{
		Use:   "users",
		Short: "List users",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(false)
			if err != nil {
				return err
			}

			filter := repository.UserFilter{Page: page, PageSize: limit}
			if role != "" {
				r := models.Role(role)
				if !r.Valid() {
					return services.ErrInvalidRole
				}
				filter.Role = &r
			}
			if inactive {
				active := false
				filter.IsActive = &active
			}

			ctx, cancel := commandContext()
			defer cancel()

			users, total, err := a.store.Users().List(ctx, filter)
			if err != nil {
				return err
			}

			if outputJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(map[string]any{"users": users, "total": total})
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tEMAIL\tUSERNAME\tROLE\tACTIVE")
			for _, u := range users {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%t\n", u.ID, u.Email, u.Username, u.Role, u.IsActive)
			}
			fmt.Fprintf(w, "\n%d of %d users\n", len(users), total)
			return w.Flush()
		},
	}

	cmd.Flags().StringVar(&role, "role", "", "Filter by role (ADMIN, TEAM_LEADER, MEMBER)")
	cmd.Flags().BoolVar(&inactive, "inactive", false, "Only users awaiting activation")
	cmd.Flags().BoolVar(&outputJSON, "json", false, "Output as JSON")
	cmd.Flags().IntVar(&page, "page", 1, "Page number")
	cmd.Flags().IntVar(&limit, "limit", 50, "Page size")
	return cmd
}
