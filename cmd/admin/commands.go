package main

import (
	"errors"
	"fmt"
	"strings"

	"aiswo-backend/internal/chatbot"
	"aiswo-backend/internal/config"
	"aiswo-backend/internal/models"
	"aiswo-backend/internal/store"

	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"
)

var (
	adminEmail    string
	adminPassword string
	adminName     string
	xlsxPath      string
)

var createAdminCmd = &cobra.Command{
	Use:   "create-admin",
	Short: "Create or update an admin account",
	Example: `  aiswo-admin create-admin --email admin@aiswo.io --password admin123 --name "Admin User"`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if adminEmail == "" || adminPassword == "" {
			return errors.New("--email and --password are required")
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(adminPassword), bcrypt.DefaultCost)
		if err != nil {
			return fmt.Errorf("failed to hash password: %w", err)
		}

		name := adminName
		if name == "" {
			name = "Admin User"
		}
		admin := &models.Admin{Email: strings.TrimSpace(adminEmail), Name: name, Password: string(hash)}
		if err := backend.Store.UpsertAdmin(cmd.Context(), admin); err != nil {
			return fmt.Errorf("failed to save admin: %w", err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "✅ Admin %s saved (id %s)\n", admin.Email, admin.ID)
		return nil
	},
}

var resetPasswordCmd = &cobra.Command{
	Use:   "reset-password",
	Short: "Reset the password of an admin or operator",
	RunE: func(cmd *cobra.Command, args []string) error {
		if adminEmail == "" || adminPassword == "" {
			return errors.New("--email and --password are required")
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(adminPassword), bcrypt.DefaultCost)
		if err != nil {
			return fmt.Errorf("failed to hash password: %w", err)
		}
		ctx := cmd.Context()

		admin, err := backend.Store.GetAdminByEmail(ctx, adminEmail)
		switch {
		case err == nil:
			admin.Password = string(hash)
			if err := backend.Store.UpsertAdmin(ctx, admin); err != nil {
				return fmt.Errorf("failed to update admin: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✅ Password reset for admin %s\n", admin.Email)
			return nil
		case !errors.Is(err, store.ErrNotFound):
			return err
		}

		op, err := backend.Store.FindOperatorByEmail(ctx, adminEmail)
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("no admin or operator with email %s", adminEmail)
		}
		if err != nil {
			return err
		}
		op.Password = string(hash)
		if err := backend.Store.UpdateOperator(ctx, op); err != nil {
			return fmt.Errorf("failed to update operator: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✅ Password reset for operator %s (%s)\n", op.Name, op.Email)
		return nil
	},
}

var checkBinsCmd = &cobra.Command{
	Use:   "check-bins",
	Short: "Print the status of every bin, optionally exporting an xlsx report",
	RunE: func(cmd *cobra.Command, args []string) error {
		snap, err := chatbot.LoadSnapshot(cmd.Context(), backend.Store)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintln(out, chatbot.FormatOverview(snap))
		fmt.Fprintln(out)
		fmt.Fprintln(out, chatbot.FormatAttentionList(snap))

		if xlsxPath != "" {
			if err := writeBinsReport(xlsxPath, snap); err != nil {
				return err
			}
			fmt.Fprintf(out, "\n📄 Report written to %s\n", xlsxPath)
		}
		return nil
	},
}

var listOperatorsCmd = &cobra.Command{
	Use:   "list-operators",
	Short: "List operators and the bins they handle",
	RunE: func(cmd *cobra.Command, args []string) error {
		snap, err := chatbot.LoadSnapshot(cmd.Context(), backend.Store)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), chatbot.FormatOperatorRoster(snap))
		return nil
	},
}

var migrateBinsCmd = &cobra.Command{
	Use:   "migrate-bins",
	Short: "Copy Realtime Database bins into the Firestore bins collection",
	RunE: func(cmd *cobra.Command, args []string) error {
		fs, ok := backend.Store.(*store.FirebaseStore)
		if !ok {
			return fmt.Errorf("migrate-bins requires STORE_BACKEND=%s, got %s", config.BackendFirebase, cfg.StoreBackend)
		}
		n, err := fs.MigrateBinsToFirestore(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✅ Migrated %d bins to Firestore\n", n)
		return nil
	},
}

func init() {
	for _, c := range []*cobra.Command{createAdminCmd, resetPasswordCmd} {
		c.Flags().StringVar(&adminEmail, "email", "", "account email")
		c.Flags().StringVar(&adminPassword, "password", "", "new plain-text password")
	}
	createAdminCmd.Flags().StringVar(&adminName, "name", "", "display name (default \"Admin User\")")
	checkBinsCmd.Flags().StringVar(&xlsxPath, "xlsx", "", "write an xlsx report to this path")
}
