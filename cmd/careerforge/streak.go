package main

import (
	"fmt"
	"io"
	"time"

	"github.com/ahmetcoskunkizilkaya/careerforge/internal/streak"
	"github.com/spf13/cobra"
)

var streakCmd = &cobra.Command{
	Use:     "streak",
	GroupID: "learning",
	Short:   "Show or update the daily streak",
}

var streakShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the current streak",
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := openEnv(cmd.Context())
		if err != nil {
			return err
		}
		defer env.Close()

		printStreak(cmd.OutOrStdout(), env.streak().Load(cmd.Context()))
		return nil
	},
}

var streakTouchCmd = &cobra.Command{
	Use:   "touch",
	Short: "Record activity for today or --date",
	RunE: func(cmd *cobra.Command, args []string) error {
		expr, _ := cmd.Flags().GetString("date")
		day, err := parseDay(expr, time.Now())
		if err != nil {
			return err
		}

		env, err := openEnv(cmd.Context())
		if err != nil {
			return err
		}
		defer env.Close()

		st, err := env.streak().Touch(cmd.Context(), day)
		if err != nil {
			return fmt.Errorf("touch streak: %w", err)
		}
		printStreak(cmd.OutOrStdout(), st)
		return nil
	},
}

var streakResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Reset the streak",
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := openEnv(cmd.Context())
		if err != nil {
			return err
		}
		defer env.Close()

		st, err := env.streak().Reset(cmd.Context())
		if err != nil {
			return fmt.Errorf("reset streak: %w", err)
		}
		printStreak(cmd.OutOrStdout(), st)
		return nil
	},
}

func printStreak(out io.Writer, st streak.State) {
	last := "never"
	if st.LastActive != nil {
		last = *st.LastActive
	}
	days := "days"
	if st.Count == 1 {
		days = "day"
	}
	fmt.Fprintf(out, "%s %s %s\n", renderAccent("🔥"), renderPass(fmt.Sprintf("%d", st.Count)), days)
	fmt.Fprintf(out, "%s %s\n", renderMuted("last active:"), last)
}

func init() {
	streakTouchCmd.Flags().String("date", "", "Day to record: YYYY-MM-DD or a phrase like \"yesterday\"")
	streakCmd.AddCommand(streakShowCmd, streakTouchCmd, streakResetCmd)
}
