package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/nhle/support-desk/internal/credential"
	"github.com/nhle/support-desk/internal/model"
	"github.com/nhle/support-desk/internal/store"
	"github.com/nhle/support-desk/internal/theme"
)

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:          "supportdesk",
		Short:        "Turn support emails into tickets",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runPoller(cmd.Context(), configPath, 0)
		},
	}
	root.PersistentFlags().StringVar(&configPath, "config", model.DefaultConfigPath,
		"optional YAML config file; environment variables take precedence")

	root.AddCommand(
		&cobra.Command{
			Use:   "run",
			Short: "Poll the inbox until interrupted",
			RunE: func(cmd *cobra.Command, _ []string) error {
				return runPoller(cmd.Context(), configPath, 0)
			},
		},
		&cobra.Command{
			Use:   "once",
			Short: "Run a single poll cycle and exit",
			RunE: func(cmd *cobra.Command, _ []string) error {
				return runPoller(cmd.Context(), configPath, 1)
			},
		},
		newTicketsCmd(&configPath),
		newCredentialCmd(),
	)

	return root
}

// runPoller polls until SIGINT/SIGTERM, or for maxCycles cycles when > 0.
func runPoller(parent context.Context, configPath string, maxCycles int) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	a, err := newApp(cfg, maxCycles)
	if err != nil {
		return err
	}
	defer a.Close()

	a.logger.Info("support desk started",
		"mailbox", cfg.Mail.Username,
		"store", cfg.Store.Path,
		"interval", cfg.Poll.Interval,
	)

	err = a.poller.Run(ctx)
	if errors.Is(err, context.Canceled) {
		a.logger.Info("support desk stopped")
		return nil
	}
	return err
}

func newTicketsCmd(configPath *string) *cobra.Command {
	var (
		limit  int
		sender string
	)

	cmd := &cobra.Command{
		Use:   "tickets",
		Short: "List stored tickets, newest first",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := model.LoadConfig(*configPath)
			if err != nil {
				return err
			}

			st, err := store.NewSQLiteStore(cfg.Store.Path)
			if err != nil {
				return fmt.Errorf("opening ticket store: %w", err)
			}
			defer st.Close()

			filter := store.TicketFilter{SortDesc: true, Limit: limit}
			if sender != "" {
				filter.Sender = &sender
			}

			tickets, err := st.ListTickets(cmd.Context(), filter)
			if err != nil {
				return err
			}
			total, err := st.CountTickets(cmd.Context(), store.TicketFilter{Sender: filter.Sender})
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), renderTickets(tickets, isTerminal(os.Stdout)))
			fmt.Fprintf(cmd.OutOrStdout(), "%d of %d tickets\n", len(tickets), total)
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum tickets to show (0 for all)")
	cmd.Flags().StringVar(&sender, "sender", "", "only show tickets from this sender")

	return cmd
}

// renderTickets formats tickets as a table, styled only for terminals.
func renderTickets(tickets []model.Ticket, styled bool) string {
	rows := make([][]string, 0, len(tickets))
	for _, tk := range tickets {
		created := ""
		if tk.CreatedAt != nil {
			created = tk.CreatedAt.Local().Format(time.DateTime)
		}
		rows = append(rows, []string{
			strconv.FormatInt(tk.ID, 10),
			tk.Status,
			tk.Sender,
			truncate(tk.Subject, 48),
			created,
		})
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("ID", "STATUS", "SENDER", "SUBJECT", "CREATED").
		Rows(rows...)

	if styled {
		t = t.BorderStyle(theme.BorderStyle).
			StyleFunc(func(row, col int) lipgloss.Style {
				switch {
				case row == table.HeaderRow:
					return theme.HeaderStyle
				case col == 1:
					return theme.StatusStyle(rows[row][col])
				default:
					return theme.CellStyle
				}
			})
	}

	return t.Render()
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

func newCredentialCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "credential",
		Short: "Manage the mailbox app password in the system keyring",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "set",
			Short: "Store the app password, prompting on a terminal or reading stdin",
			RunE: func(cmd *cobra.Command, _ []string) error {
				pass, err := readAppPassword(cmd.InOrStdin(), isTerminal(os.Stdin))
				if err != nil {
					return err
				}
				if err := credential.New().SetAppPassword(pass); err != nil {
					return err
				}
				fmt.Fprintln(cmd.ErrOrStderr(), "App password saved to keyring")
				return nil
			},
		},
		&cobra.Command{
			Use:   "delete",
			Short: "Remove the stored app password",
			RunE: func(*cobra.Command, []string) error {
				return credential.New().DeleteAppPassword()
			},
		},
	)

	return cmd
}

// readAppPassword prompts with a masked huh input on a terminal and
// otherwise reads the first line of in.
func readAppPassword(in io.Reader, tty bool) (string, error) {
	if !tty {
		line, err := bufio.NewReader(in).ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return "", fmt.Errorf("reading password: %w", err)
		}
		if strings.TrimSpace(line) == "" {
			return "", errors.New("empty password")
		}
		return line, nil
	}

	var pass string
	err := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("App password").
				Description("Mailbox app password, used when APP_PASS is unset").
				EchoMode(huh.EchoModePassword).
				Value(&pass).
				Validate(validateRequired("App password")),
		),
	).Run()
	if errors.Is(err, huh.ErrUserAborted) {
		return "", errors.New("cancelled")
	}
	if err != nil {
		return "", fmt.Errorf("reading password: %w", err)
	}
	return pass, nil
}

func validateRequired(fieldName string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s is required", fieldName)
		}
		return nil
	}
}
