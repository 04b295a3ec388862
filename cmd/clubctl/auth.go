package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"clubhub/client/internal/security"
	"clubhub/client/internal/session"
)

var (
	loginEmail    string
	loginPassword string

	signupEmail    string
	signupPassword string
	signupMajor    string
	signupCode     string
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in with email and password",
	RunE:  withEnv(runLogin),
}

var signupCmd = &cobra.Command{
	Use:   "signup",
	Short: "Create an account and verify it with the emailed code",
	Long: `signup registers a new account and then asks for the verification
code. The code must be entered in the same run; an unverified account can
still sign in later with login once it is verified.`,
	RunE: withEnv(runSignup),
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the stored session",
	RunE:  withEnv(runStatus),
}

var refreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Exchange the refresh token for a new access token now",
	RunE:  withEnv(runRefresh),
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Forget the session locally",
	RunE:  withEnv(runLogout),
}

func init() {
	loginCmd.Flags().StringVarP(&loginEmail, "email", "e", "", "account email")
	loginCmd.Flags().StringVarP(&loginPassword, "password", "p", "", "password (prompted when empty)")
	_ = loginCmd.MarkFlagRequired("email")

	signupCmd.Flags().StringVarP(&signupEmail, "email", "e", "", "account email")
	signupCmd.Flags().StringVarP(&signupPassword, "password", "p", "", "password (prompted when empty)")
	signupCmd.Flags().StringVarP(&signupMajor, "major", "m", "", "major, e.g. Computer Science")
	signupCmd.Flags().StringVar(&signupCode, "code", "", "verification code (prompted when empty)")
	_ = signupCmd.MarkFlagRequired("email")

	rootCmd.AddCommand(loginCmd, signupCmd, statusCmd, refreshCmd, logoutCmd)
}

func runLogin(ctx context.Context, cmd *cobra.Command, e *env, _ []string) error {
	password := loginPassword
	if password == "" {
		var err error
		if password, err = prompt(bufio.NewReader(cmd.InOrStdin()), cmd.ErrOrStderr(), "Password: "); err != nil {
			return err
		}
	}

	if err := e.sessions.SignIn(ctx, loginEmail, password); err != nil {
		return fmt.Errorf("login: %w", err)
	}
	printSession(cmd, e.sessions.Snapshot())
	return nil
}

func runSignup(ctx context.Context, cmd *cobra.Command, e *env, _ []string) error {
	in := bufio.NewReader(cmd.InOrStdin())

	password := signupPassword
	if password == "" {
		var err error
		if password, err = prompt(in, cmd.ErrOrStderr(), "Password: "); err != nil {
			return err
		}
	}

	if err := e.sessions.SignUp(ctx, signupEmail, password, signupMajor); err != nil {
		return fmt.Errorf("signup: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Account created for %s, check your email for a code.\n", signupEmail)

	code := signupCode
	if code == "" {
		var err error
		if code, err = prompt(in, cmd.ErrOrStderr(), "Verification code: "); err != nil {
			return err
		}
	}

	if err := e.sessions.Verify(ctx, code); err != nil {
		return fmt.Errorf("verify: %w", err)
	}

	snap := e.sessions.Snapshot()
	if !snap.IsAuthenticated() {
		return errors.New("verification failed, run signup again or sign in once verified")
	}
	printSession(cmd, snap)
	return nil
}

func runStatus(_ context.Context, cmd *cobra.Command, e *env, _ []string) error {
	printSession(cmd, e.sessions.Snapshot())
	return nil
}

func runRefresh(ctx context.Context, cmd *cobra.Command, e *env, _ []string) error {
	snap := e.sessions.Snapshot()
	if !snap.IsAuthenticated() {
		return errors.New("not signed in")
	}
	if err := e.sessions.Refresh(ctx, snap); err != nil {
		return err
	}
	printSession(cmd, e.sessions.Snapshot())
	return nil
}

func runLogout(ctx context.Context, cmd *cobra.Command, e *env, _ []string) error {
	e.sessions.SignOut(ctx)
	fmt.Fprintln(cmd.OutOrStdout(), "Signed out.")
	return nil
}

func printSession(cmd *cobra.Command, snap session.Snapshot) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "State:    %s\n", snap.State)
	if snap.User == nil {
		return
	}

	fmt.Fprintf(out, "User:     %s (%s)\n", snap.User.Email, snap.User.ID)
	if snap.User.Role != "" {
		fmt.Fprintf(out, "Role:     %s\n", snap.User.Role)
	}
	if snap.User.Major != "" {
		fmt.Fprintf(out, "Major:    %s\n", snap.User.Major)
	}
	if snap.IsVerified != nil {
		fmt.Fprintf(out, "Verified: %t\n", *snap.IsVerified)
	}
	if snap.User.AccessToken != "" {
		if claims, err := security.DecodeClaims(snap.User.AccessToken); err == nil {
			fmt.Fprintf(out, "Expires:  %s\n", claims.ExpiresAt.Local().Format(time.RFC1123))
		}
	}
}
