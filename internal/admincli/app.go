// Package admincli implements the operator command line: account
// maintenance, schema migrations and a health probe against a running API.
package admincli

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/dmitrijs2005/hourbank/internal/common"
	"github.com/dmitrijs2005/hourbank/internal/cryptox"
	"github.com/dmitrijs2005/hourbank/internal/logging"
	"github.com/dmitrijs2005/hourbank/internal/server"
	"github.com/dmitrijs2005/hourbank/internal/server/config"
	"github.com/dmitrijs2005/hourbank/internal/server/services"
	"github.com/go-resty/resty/v2"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

type App struct {
	configPath string
	dsn        string
	verbose    bool

	// seams for tests
	openStore    func(ctx context.Context, cfg *config.Config, migrate bool) (*server.Store, error)
	readPassword func(fd int) ([]byte, error)
	httpClient   func() *resty.Client
}

func New() *App {
	return &App{
		openStore:    server.OpenStore,
		readPassword: term.ReadPassword,
		httpClient:   resty.New,
	}
}

// Command builds the root command with every subcommand attached.
func (a *App) Command() *cobra.Command {
	root := &cobra.Command{
		Use:          "hourbank-cli",
		Short:        "Banco de Horas administration",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "config file (YAML or JSON)")
	root.PersistentFlags().StringVar(&a.dsn, "dsn", "", "database DSN, overrides the config")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "log to stderr")

	root.AddCommand(a.userCommand(), a.migrateCommand(), a.healthCommand())
	return root
}

func (a *App) loadConfig() (*config.Config, error) {
	cfg, err := config.LoadFile(a.configPath)
	if err != nil {
		return nil, err
	}
	if a.dsn != "" {
		cfg.DatabaseDSN = a.dsn
	}
	return cfg, nil
}

func (a *App) logger(w io.Writer) logging.Logger {
	if !a.verbose {
		return logging.Discard()
	}
	return logging.New(w, true)
}

// withAdmin opens the store, hands an AdminService to fn and closes the
// store afterwards.
func (a *App) withAdmin(cmd *cobra.Command, fn func(ctx context.Context, svc *services.AdminService) error) error {
	ctx := cmd.Context()
	cfg, err := a.loadConfig()
	if err != nil {
		return err
	}

	store, err := a.openStore(ctx, cfg, false)
	if err != nil {
		return err
	}
	defer store.Close()

	svc := services.NewAdminService(store.Pool, store.Manager, a.logger(cmd.ErrOrStderr()), services.OptionsFromConfig(cfg))
	return fn(ctx, svc)
}

func (a *App) userCommand() *cobra.Command {
	user := &cobra.Command{
		Use:   "user",
		Short: "Manage user accounts",
	}

	var password string
	create := &cobra.Command{
		Use:   "create <email> <name>",
		Short: "Create an active account",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if password == "" {
				pw, err := a.promptPassword(cmd.OutOrStdout())
				if err != nil {
					return err
				}
				password = pw
			}

			return a.withAdmin(cmd, func(ctx context.Context, svc *services.AdminService) error {
				u, err := svc.CreateUser(ctx, services.RegisterInput{Email: args[0], Name: args[1], Password: password})
				if err != nil {
					return describe(err)
				}
				out := cmd.OutOrStdout()
				fmt.Fprintln(out, "User created")
				fmt.Fprintln(out, "ID    :", u.ID)
				fmt.Fprintln(out, "Email :", u.Email)
				fmt.Fprintln(out, "Name  :", u.Name)
				return nil
			})
		},
	}
	create.Flags().StringVarP(&password, "password", "p", "", "password; prompted for when empty")

	del := &cobra.Command{
		Use:   "delete <email>",
		Short: "Delete an account and everything it owns",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withAdmin(cmd, func(ctx context.Context, svc *services.AdminService) error {
				n, err := svc.DeleteUser(ctx, args[0])
				if err != nil {
					return describe(err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Users deleted:", n)
				return nil
			})
		},
	}

	user.AddCommand(create, del, a.setActiveCommand("activate", true), a.setActiveCommand("deactivate", false))
	return user
}

func (a *App) setActiveCommand(name string, active bool) *cobra.Command {
	short := "Allow the account to log in"
	if !active {
		short = "Block the account and end its sessions"
	}
	return &cobra.Command{
		Use:   name + " <email>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withAdmin(cmd, func(ctx context.Context, svc *services.AdminService) error {
				if err := svc.SetActive(ctx, args[0], active); err != nil {
					return describe(err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "User %s: %sd\n", strings.ToLower(strings.TrimSpace(args[0])), name)
				return nil
			})
		},
	}
}

type migrationStatuser interface {
	MigrationStatus(ctx context.Context, db *sql.DB) error
}

func (a *App) migrateCommand() *cobra.Command {
	var status bool
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending schema migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			cfg, err := a.loadConfig()
			if err != nil {
				return err
			}

			store, err := a.openStore(ctx, cfg, false)
			if err != nil {
				return err
			}
			defer store.Close()

			if store.DB == nil {
				fmt.Fprintln(cmd.OutOrStdout(), "In-memory store: nothing to migrate")
				return nil
			}

			if status {
				s, ok := store.Manager.(migrationStatuser)
				if !ok {
					return errors.New("store does not report migration status")
				}
				return s.MigrationStatus(ctx, store.DB)
			}

			if err := store.Manager.RunMigrations(ctx, store.DB); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Migrations applied")
			return nil
		},
	}
	cmd.Flags().BoolVar(&status, "status", false, "print migration status instead of migrating")
	return cmd
}

type healthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Service   string `json:"service"`
}

type responseError struct {
	Message string `json:"message"`
}

func (a *App) healthCommand() *cobra.Command {
	var url string
	cmd := &cobra.Command{
		Use:   "health",
		Short: "Probe a running API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if url == "" {
				cfg, err := a.loadConfig()
				if err != nil {
					return err
				}
				url = baseURL(cfg.HTTPAddr)
			}

			resp, err := a.httpClient().
				SetBaseURL(strings.TrimRight(url, "/")).
				SetHeader("Accept", "application/json").
				R().
				SetContext(cmd.Context()).
				SetResult(&healthResponse{}).
				SetError(&responseError{}).
				Get("/api/health")
			if err != nil {
				return fmt.Errorf("health check failed: %w", err)
			}
			if resp.IsError() {
				msg := resp.Status()
				if e, ok := resp.Error().(*responseError); ok && e.Message != "" {
					msg = e.Message
				}
				return fmt.Errorf("health check failed: %s", msg)
			}

			h := resp.Result().(*healthResponse)
			fmt.Fprintln(cmd.OutOrStdout(), "Status    :", h.Status)
			fmt.Fprintln(cmd.OutOrStdout(), "Service   :", h.Service)
			fmt.Fprintln(cmd.OutOrStdout(), "Timestamp :", h.Timestamp)
			return nil
		},
	}
	cmd.Flags().StringVar(&url, "url", "", "API base URL; derived from the configured address when empty")
	return cmd
}

// baseURL turns a listen address such as ":3000" into a local URL.
func baseURL(addr string) string {
	if strings.HasPrefix(addr, ":") {
		return "http://localhost" + addr
	}
	return "http://" + addr
}

func (a *App) promptPassword(w io.Writer) (string, error) {
	if _, err := fmt.Fprint(w, "Password: "); err != nil {
		return "", err
	}
	pw, err := a.readPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(w)
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	defer cryptox.Wipe(pw)
	return string(pw), nil
}

// describe rewords workflow errors for an operator.
func describe(err error) error {
	var verr *common.ValidationError
	switch {
	case errors.As(err, &verr):
		parts := make([]string, 0, len(verr.Fields))
		for _, f := range verr.Fields {
			parts = append(parts, f.Field+": "+f.Message)
		}
		return fmt.Errorf("invalid input: %s", strings.Join(parts, "; "))
	case errors.Is(err, common.ErrDuplicateEmail):
		return errors.New("email already registered")
	case errors.Is(err, common.ErrorNotFound):
		return errors.New("user not found")
	default:
		return err
	}
}
