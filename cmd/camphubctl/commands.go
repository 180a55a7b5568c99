package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/dalemusser/camphub/internal/app/bootstrap"
	"github.com/dalemusser/camphub/internal/app/maintenance"
	"github.com/spf13/cobra"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	ownersSince string
	confirmYes  bool
	fixDupes    bool
)

var repairCmd = &cobra.Command{
	Use:   "repair",
	Short: "Repair broken camp ownership",
}

var repairOwnersCmd = &cobra.Command{
	Use:   "owners",
	Short: "Link camps without a valid owner to their contact email's account",
	Long: `Find camps whose owner is missing or points at a deleted user and link
them to the account registered with the camp's contact email, creating a
camp account when none exists.

--since limits the scan to camps created on or after a date
(YYYY-MM-DD); use --since=all to check every camp.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		since, err := bootstrap.ParseSince(ownersSince)
		if err != nil {
			return err
		}
		return withService(cmd, func(ctx context.Context, svc *maintenance.Service) error {
			rep, err := svc.FixMissingOwners(ctx, since)
			if err != nil {
				return err
			}
			return printJSON(cmd, rep)
		})
	},
}

var repairCampCmd = &cobra.Command{
	Use:   "camp <campId>",
	Short: "Restore the owner of one camp",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := primitive.ObjectIDFromHex(args[0])
		if err != nil {
			return fmt.Errorf("invalid camp id %q", args[0])
		}
		return withService(cmd, func(ctx context.Context, svc *maintenance.Service) error {
			fix, err := svc.RestoreCampOwner(ctx, id, nil)
			if err != nil {
				return err
			}
			return printJSON(cmd, fix)
		})
	},
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Migrate legacy document shapes",
}

var migratePhotosCmd = &cobra.Command{
	Use:   "photos",
	Short: "Convert camp photos stored as plain URLs into photo objects",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withService(cmd, func(ctx context.Context, svc *maintenance.Service) error {
			rep, err := svc.MigratePhotos(ctx)
			if err != nil {
				return err
			}
			return printJSON(cmd, rep)
		})
	},
}

var migrateStatusesCmd = &cobra.Command{
	Use:   "statuses",
	Short: "Rename legacy application statuses",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withService(cmd, func(ctx context.Context, svc *maintenance.Service) error {
			counts, err := svc.MigrateApplicationStatuses(ctx)
			if err != nil {
				return err
			}
			return printJSON(cmd, counts)
		})
	},
}

var migrateVisibilityCmd = &cobra.Command{
	Use:   "visibility",
	Short: "Default missing camp visibility flags",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withService(cmd, func(ctx context.Context, svc *maintenance.Service) error {
			counts, err := svc.MigrateVisibility(ctx)
			if err != nil {
				return err
			}
			return printJSON(cmd, counts)
		})
	},
}

var fixCmd = &cobra.Command{
	Use:   "fix",
	Short: "Fix inconsistent data",
}

var fixSlugsCmd = &cobra.Command{
	Use:   "slugs",
	Short: "Regenerate missing, invalid and duplicate camp slugs",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withService(cmd, func(ctx context.Context, svc *maintenance.Service) error {
			fixes, err := svc.FixSlugs(ctx)
			if err != nil {
				return err
			}
			return printJSON(cmd, map[string]any{"fixed": len(fixes), "changes": fixes})
		})
	},
}

var reactivateCmd = &cobra.Command{
	Use:   "reactivate",
	Short: "Reactivate records",
}

var reactivateCampsCmd = &cobra.Command{
	Use:   "camps",
	Short: "Set inactive and suspended camps back to active",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withService(cmd, func(ctx context.Context, svc *maintenance.Service) error {
			n, err := svc.ReactivateCamps(ctx)
			if err != nil {
				return err
			}
			return printJSON(cmd, map[string]int64{"reactivated": n})
		})
	},
}

var resetPasswordCmd = &cobra.Command{
	Use:   "reset-password <email> <new-password>",
	Short: "Set a user's password",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withService(cmd, func(ctx context.Context, svc *maintenance.Service) error {
			u, err := svc.ResetPassword(ctx, args[0], args[1])
			if err != nil {
				return err
			}
			return printJSON(cmd, map[string]string{"userId": u.ID.Hex(), "email": u.Email, "status": "password updated"})
		})
	},
}

var accountCmd = &cobra.Command{
	Use:   "account",
	Short: "Inspect or delete an account",
}

var accountDiagnoseCmd = &cobra.Command{
	Use:   "diagnose <idOrEmail>",
	Short: "Report ownership and linkage problems for an account",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withService(cmd, func(ctx context.Context, svc *maintenance.Service) error {
			rep, err := svc.Diagnose(ctx, args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd, rep)
		})
	},
}

var accountDeleteCmd = &cobra.Command{
	Use:   "delete <idOrEmail>",
	Short: "Permanently delete users and camps matching an id or email",
	Long: `Delete every user and camp matching the id or email, along with their
applications, memberships, roster entries, invites, tasks, activity logs
and password reset tokens. This cannot be undone; pass --yes to confirm.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if !confirmYes {
			return errors.New("refusing to delete without --yes")
		}
		return withService(cmd, func(ctx context.Context, svc *maintenance.Service) error {
			sum, err := svc.DeleteAccount(ctx, args[0], nil)
			if err != nil {
				return err
			}
			return printJSON(cmd, sum)
		})
	},
}

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Look for inconsistent data",
}

var checkDuplicatesCmd = &cobra.Command{
	Use:   "duplicates",
	Short: "Find users listed more than once in the same roster",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withService(cmd, func(ctx context.Context, svc *maintenance.Service) error {
			rep, err := svc.DuplicateMembers(ctx, fixDupes)
			if err != nil {
				return err
			}
			return printJSON(cmd, rep)
		})
	},
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate stored documents",
}

var validateSchemasCmd = &cobra.Command{
	Use:   "schemas",
	Short: "Count documents missing required fields",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withService(cmd, func(ctx context.Context, svc *maintenance.Service) error {
			rep, err := svc.ValidateSchemas(ctx)
			if err != nil {
				return err
			}
			return printJSON(cmd, map[string]any{"invalid": rep.Invalid(), "checks": rep.Checks})
		})
	},
}

func init() {
	repairOwnersCmd.Flags().StringVar(&ownersSince, "since", "2025-12-01", "Only camps created on or after this date (YYYY-MM-DD or 'all')")
	repairCmd.AddCommand(repairOwnersCmd, repairCampCmd)

	migrateCmd.AddCommand(migratePhotosCmd, migrateStatusesCmd, migrateVisibilityCmd)
	fixCmd.AddCommand(fixSlugsCmd)
	reactivateCmd.AddCommand(reactivateCampsCmd)

	accountDeleteCmd.Flags().BoolVar(&confirmYes, "yes", false, "Confirm permanent deletion")
	accountCmd.AddCommand(accountDiagnoseCmd, accountDeleteCmd)

	checkDuplicatesCmd.Flags().BoolVar(&fixDupes, "fix", false, "Remove duplicate roster entries, keeping the first")
	checkCmd.AddCommand(checkDuplicatesCmd)

	validateCmd.AddCommand(validateSchemasCmd)
}
