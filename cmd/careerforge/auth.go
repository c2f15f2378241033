package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/ahmetcoskunkizilkaya/careerforge/internal/client/localstore"
	"github.com/ahmetcoskunkizilkaya/careerforge/internal/client/remote"
	"github.com/ahmetcoskunkizilkaya/careerforge/internal/client/session"
	"github.com/ahmetcoskunkizilkaya/careerforge/internal/dto"
	"github.com/spf13/cobra"
)

var loginCmd = &cobra.Command{
	Use:     "login",
	GroupID: "account",
	Short:   "Log in (or register) and migrate guest roadmaps",
	Long: `Log in to the CareerForge server.

After a successful login the roadmaps you created as a guest are uploaded to
your account once and removed from the guest mirror. Entries that fail to
upload stay in the guest mirror and are retried on the next sync.

The password may also be given through CAREERFORGE_PASSWORD.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		email, _ := cmd.Flags().GetString("email")
		password, _ := cmd.Flags().GetString("password")
		register, _ := cmd.Flags().GetBool("register")
		if password == "" {
			password = settings.GetString("password")
		}
		if email == "" || password == "" {
			return errors.New("--email and --password are required")
		}

		ctx := cmd.Context()
		env, err := openEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		var resp *dto.AuthResponse
		if register {
			resp, err = env.remote.Register(ctx, email, password)
		} else {
			resp, err = env.remote.Login(ctx, email, password)
		}
		if err != nil {
			if errors.Is(err, remote.ErrAuth) {
				return errors.New("invalid email or password")
			}
			return err
		}

		env.sess = &session.Session{
			Email:        resp.User.Email,
			UserID:       resp.User.ID.String(),
			AccessToken:  resp.AccessToken,
			RefreshToken: resp.RefreshToken,
			SavedAt:      time.Now().UTC(),
		}
		if err := env.sessions.Save(env.sess); err != nil {
			return fmt.Errorf("save session: %w", err)
		}
		env.remote = remote.New(settings.GetString("server"), session.NewTokens(env.sess))

		engine := env.engine()
		engine.Load(ctx)

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "%s Logged in as %s\n", renderPass("✓"), renderAccent(env.sess.Email))
		fmt.Fprintf(out, "   Roadmaps: %d\n", len(engine.Roadmaps()))
		if left := env.store.LoadRoadmaps(localstore.GuestKey); len(left) > 0 {
			fmt.Fprintf(out, "%s %d guest roadmap(s) not migrated yet; they will be retried\n", renderWarn("⚠"), len(left))
		}
		return nil
	},
}

var logoutCmd = &cobra.Command{
	Use:     "logout",
	GroupID: "account",
	Short:   "Forget the session and revoke its refresh token",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		env, err := openEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		if env.sess == nil {
			fmt.Fprintln(cmd.OutOrStdout(), "Not logged in")
			return nil
		}
		if err := env.remote.Logout(ctx, env.identity(), env.sess.RefreshToken); err != nil {
			env.log.Warn("server logout failed", "error", err)
		}
		if err := env.sessions.Clear(); err != nil {
			return fmt.Errorf("clear session: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s Logged out %s\n", renderPass("✓"), env.sess.Email)
		return nil
	},
}

var whoamiCmd = &cobra.Command{
	Use:     "whoami",
	GroupID: "account",
	Short:   "Show the current identity",
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := openEnv(cmd.Context())
		if err != nil {
			return err
		}
		defer env.Close()

		out := cmd.OutOrStdout()
		if env.sess == nil {
			fmt.Fprintf(out, "%s (local only)\n", renderAccent("guest"))
			return nil
		}
		state := renderPass("active")
		if env.sess.AccessExpired(time.Now()) {
			state = renderWarn("expired")
		}
		fmt.Fprintf(out, "%s  token %s  server %s\n", renderAccent(env.sess.Email), state, renderMuted(settings.GetString("server")))
		return nil
	},
}

func init() {
	loginCmd.Flags().String("email", "", "Account email")
	loginCmd.Flags().String("password", "", "Account password")
	loginCmd.Flags().Bool("register", false, "Create the account first")
}
