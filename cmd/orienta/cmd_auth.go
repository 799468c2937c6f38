package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/orienta/orienta/internal/client"
	"github.com/orienta/orienta/internal/models"
)

func printUser(w io.Writer, u *models.User) {
	fmt.Fprintf(w, "%s <%s>\nid:   %s\nrole: %s\n", u.Name, u.Email, u.ID, u.Role)
}

func (c *cli) signupCmd() *cobra.Command {
	var req client.SignupRequest
	cmd := &cobra.Command{
		Use:   "signup",
		Short: "Create an account and sign in",
		RunE: func(cmd *cobra.Command, args []string) error {
			if req.Email == "" {
				return errors.New("--email is required")
			}
			pw, err := c.secret(cmd, req.Password, "Password: ")
			if err != nil {
				return err
			}
			req.Password = pw
			ctx, cancel := c.ctx(cmd)
			defer cancel()
			u, err := c.portal.Register(ctx, req)
			if err != nil {
				return err
			}
			return c.print(cmd, u, func(w io.Writer) {
				fmt.Fprintln(w, "Account created.")
				printUser(w, u)
			})
		},
	}
	f := cmd.Flags()
	f.StringVar(&req.Email, "email", "", "e-mail address")
	f.StringVar(&req.Name, "name", "", "display name")
	f.StringVar(&req.Password, "password", "", "password (prompted when empty)")
	f.StringVar(&req.Role, "role", models.RoleStudent, "student or institution")
	return cmd
}

func (c *cli) loginCmd() *cobra.Command {
	var email, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in with e-mail and password",
		RunE: func(cmd *cobra.Command, args []string) error {
			if email == "" {
				return errors.New("--email is required")
			}
			pw, err := c.secret(cmd, password, "Password: ")
			if err != nil {
				return err
			}
			ctx, cancel := c.ctx(cmd)
			defer cancel()
			u, err := c.portal.Login(ctx, email, pw)
			if err != nil {
				return err
			}
			if u == nil {
				return errors.New("wrong e-mail or password")
			}
			return c.print(cmd, u, func(w io.Writer) {
				fmt.Fprintf(w, "Signed in as %s (%s).\n", u.Email, u.Role)
			})
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "e-mail address")
	cmd.Flags().StringVar(&password, "password", "", "password (prompted when empty)")
	return cmd
}

func (c *cli) googleCmd() *cobra.Command {
	var idToken string
	var register bool
	cmd := &cobra.Command{
		Use:   "google",
		Short: "Sign in with a Google ID token",
		RunE: func(cmd *cobra.Command, args []string) error {
			if idToken == "" {
				return errors.New("--id-token is required")
			}
			ctx, cancel := c.ctx(cmd)
			defer cancel()
			u, err := c.portal.GoogleLogin(ctx, idToken, register)
			if err != nil {
				return err
			}
			return c.print(cmd, u, func(w io.Writer) {
				fmt.Fprintf(w, "Signed in as %s (%s).\n", u.Email, u.Role)
			})
		},
	}
	cmd.Flags().StringVar(&idToken, "id-token", "", "Google ID token")
	cmd.Flags().BoolVar(&register, "register", false, "create the account on first use")
	return cmd
}

func (c *cli) logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored session",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := c.ctx(cmd)
			defer cancel()
			if err := c.portal.Logout(ctx); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Signed out.")
			return nil
		},
	}
}

func (c *cli) whoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in account",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := c.ctx(cmd)
			defer cancel()
			u, err := c.portal.Me(ctx)
			if err != nil {
				return err
			}
			return c.print(cmd, u, func(w io.Writer) { printUser(w, u) })
		},
	}
}

func (c *cli) deactivateCmd() *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "deactivate",
		Short: "Deactivate the signed-in account",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return errors.New("pass --yes to confirm; the account cannot sign in afterwards")
			}
			ctx, cancel := c.ctx(cmd)
			defer cancel()
			if err := c.portal.Deactivate(ctx); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Account deactivated.")
			return nil
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "confirm")
	return cmd
}

func (c *cli) passwordCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "password",
		Short: "Forgot, reset and change passwords",
	}

	var email string
	forgot := &cobra.Command{
		Use:   "forgot",
		Short: "Request a reset token",
		RunE: func(cmd *cobra.Command, args []string) error {
			if email == "" {
				return errors.New("--email is required")
			}
			ctx, cancel := c.ctx(cmd)
			defer cancel()
			if err := c.portal.Auth.ForgotPassword(ctx, email); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "If the account exists, a reset token has been issued.")
			return nil
		},
	}
	forgot.Flags().StringVar(&email, "email", "", "e-mail address")

	var token, next string
	reset := &cobra.Command{
		Use:   "reset",
		Short: "Set a new password with a reset token",
		RunE: func(cmd *cobra.Command, args []string) error {
			if token == "" {
				return errors.New("--token is required")
			}
			pw, err := c.secret(cmd, next, "New password: ")
			if err != nil {
				return err
			}
			ctx, cancel := c.ctx(cmd)
			defer cancel()
			if err := c.portal.Auth.ResetPassword(ctx, token, pw); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Password updated. Sign in with the new password.")
			return nil
		},
	}
	reset.Flags().StringVar(&token, "token", "", "reset token")
	reset.Flags().StringVar(&next, "password", "", "new password (prompted when empty)")

	validate := &cobra.Command{
		Use:   "validate TOKEN",
		Short: "Check whether a reset token is still usable",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := c.ctx(cmd)
			defer cancel()
			ok, err := c.portal.Auth.ValidateResetToken(ctx, args[0])
			if err != nil {
				return err
			}
			return c.print(cmd, map[string]bool{"valid": ok}, func(w io.Writer) {
				if ok {
					fmt.Fprintln(w, "Token is valid.")
				} else {
					fmt.Fprintln(w, "Token is invalid or expired.")
				}
			})
		},
	}

	var current, replacement string
	change := &cobra.Command{
		Use:   "change",
		Short: "Change the signed-in account's password",
		RunE: func(cmd *cobra.Command, args []string) error {
			cur, err := c.secret(cmd, current, "Current password: ")
			if err != nil {
				return err
			}
			nw, err := c.secret(cmd, replacement, "New password: ")
			if err != nil {
				return err
			}
			ctx, cancel := c.ctx(cmd)
			defer cancel()
			if err := c.portal.ChangePassword(ctx, cur, nw); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Password changed.")
			return nil
		},
	}
	change.Flags().StringVar(&current, "current", "", "current password (prompted when empty)")
	change.Flags().StringVar(&replacement, "new", "", "new password (prompted when empty)")

	cmd.AddCommand(forgot, reset, validate, change)
	return cmd
}
