package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/platinummonkey/prodhub/pkg/apperrors"
	"github.com/platinummonkey/prodhub/pkg/auth"
	"github.com/platinummonkey/prodhub/pkg/httputil"
	"github.com/platinummonkey/prodhub/pkg/users"
	"github.com/spf13/cobra"
)

type bootstrapInput struct {
	Email    string `json:"email" validate:"required,email,max=255"`
	Password string `json:"password" validate:"required,min=6"`
}

func newBootstrapAdminCommand() *cobra.Command {
	var input bootstrapInput

	cmd := &cobra.Command{
		Use:   "bootstrap-admin",
		Short: "Create or promote a global superadmin",
		Long: `Create a global superadmin outside any organization, or promote an existing
account with the same email. The CRM endpoints are only reachable by global
superadmins, so a fresh installation needs this once.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if input.Password == "" {
				input.Password = os.Getenv("PRODHUB_BOOTSTRAP_PASSWORD")
			}

			cfg, logger, err := loadConfig()
			if err != nil {
				return err
			}
			db, err := openDatabase(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer db.Close()

			u, created, err := bootstrapAdmin(cmd.Context(), users.NewPostgresService(db), auth.NewPasswordHasher(cfg.Auth.BcryptCost), input)
			if err != nil {
				return err
			}

			action := "Promoted"
			if created {
				action = "Created"
			}
			logger.WithFields(map[string]interface{}{"user_id": u.ID, "email": u.Email}).Info("Global superadmin ready")
			fmt.Fprintf(cmd.OutOrStdout(), "%s global superadmin %s (id %d)\n", action, u.Email, u.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&input.Email, "email", "", "Account email (required)")
	cmd.Flags().StringVar(&input.Password, "password", "", "Account password, defaults to $PRODHUB_BOOTSTRAP_PASSWORD")
	cmd.MarkFlagRequired("email")

	return cmd
}

// bootstrapAdmin promotes the account holding the email, or creates one without an
// organization. The password is reset either way. Reports whether a user was created.
func bootstrapAdmin(ctx context.Context, store users.Service, hasher *auth.PasswordHasher, input bootstrapInput) (*users.User, bool, error) {
	if err := httputil.ValidateStruct(&input); err != nil {
		return nil, false, err
	}

	hash, err := hasher.Hash(input.Password)
	if err != nil {
		return nil, false, err
	}

	existing, err := store.GetUserByEmail(ctx, input.Email)
	switch {
	case err == nil:
		existing.PasswordHash = hash
		existing.IsSuperadmin = true
		existing.IsGlobalSuperadmin = true
		if err := store.UpdateUser(ctx, existing); err != nil {
			return nil, false, err
		}
		return existing, false, nil
	case !apperrors.IsNotFound(err):
		return nil, false, err
	}

	u := &users.User{
		Email:              input.Email,
		PasswordHash:       hash,
		IsSuperadmin:       true,
		IsGlobalSuperadmin: true,
	}
	if err := store.CreateUser(ctx, u); err != nil {
		return nil, false, err
	}
	return u, true, nil
}
