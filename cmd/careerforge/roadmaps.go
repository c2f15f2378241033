package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/ahmetcoskunkizilkaya/careerforge/internal/client/roadmapsync"
	"github.com/ahmetcoskunkizilkaya/careerforge/internal/roadmap"
	"github.com/spf13/cobra"
)

var roadmapsCmd = &cobra.Command{
	Use:     "roadmaps",
	GroupID: "learning",
	Short:   "Manage learning roadmaps",
}

var roadmapsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List roadmaps, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withEngine(cmd, func(ctx context.Context, engine *roadmapsync.Engine) error {
			printRoadmaps(cmd.OutOrStdout(), engine.Roadmaps())
			return nil
		})
	},
}

var roadmapsAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Create a roadmap",
	Long: `Create a roadmap from a name and skills, or let the server generate the
phases for a role with --role.

The roadmap is stored in the local mirror first and uploaded afterwards when
logged in; an upload failure keeps the local copy.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		name, _ := cmd.Flags().GetString("name")
		skills, _ := cmd.Flags().GetStringSlice("skills")
		role, _ := cmd.Flags().GetString("role")

		return withEngine(cmd, func(ctx context.Context, engine *roadmapsync.Engine) error {
			draft := roadmapsync.Draft{Name: name}
			// Unset leaves Skills nil so a generated payload supplies them.
			if cmd.Flags().Changed("skills") {
				draft.Skills = skills
			}
			if role != "" {
				phases, err := currentEnv.remote.GenerateRoadmap(ctx, role)
				if err != nil {
					return fmt.Errorf("generate roadmap: %w", err)
				}
				draft.Payload = generatedPayload(role, name, phases)
				if draft.Name == "" {
					draft.Name = role
				}
			}

			saved := engine.Add(ctx, draft)
			fmt.Fprintf(cmd.OutOrStdout(), "%s Added %s %s\n", renderPass("✓"), renderAccent(saved.Name), renderMuted(saved.ID))
			return nil
		})
	},
}

var roadmapsDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a roadmap",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withEngine(cmd, func(ctx context.Context, engine *roadmapsync.Engine) error {
			id, err := resolveRoadmapID(engine.Roadmaps(), args[0])
			if err != nil {
				return err
			}
			engine.Delete(ctx, id)
			fmt.Fprintf(cmd.OutOrStdout(), "%s Deleted %s\n", renderPass("✓"), id)
			return nil
		})
	},
}

var roadmapsProgressCmd = &cobra.Command{
	Use:   "progress <id> <node>",
	Short: "Record a practice result for a roadmap node",
	Long: `Record the outcome of a practice round. Mastery is the rounded percentage
of correct answers and is stored under payload.progress.<node>.<type>.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		qtype, _ := cmd.Flags().GetString("type")
		correct, _ := cmd.Flags().GetInt("correct")
		total, _ := cmd.Flags().GetInt("total")
		if correct < 0 || total < 0 || correct > total {
			return errors.New("--correct must be between 0 and --total")
		}

		return withEngine(cmd, func(ctx context.Context, engine *roadmapsync.Engine) error {
			id, err := resolveRoadmapID(engine.Roadmaps(), args[0])
			if err != nil {
				return err
			}
			mastery := roadmap.Mastery(correct, total)
			if _, ok := engine.UpdateProgress(ctx, id, roadmap.ProgressPatch(args[1], qtype, mastery, time.Now())); !ok {
				return fmt.Errorf("unknown roadmap %q", args[0])
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s %s mastery %d%%\n", renderPass("✓"), args[1], qtype, mastery)
			return nil
		})
	},
}

var roadmapsRefreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Re-sync with the server and list the result",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withEngine(cmd, func(ctx context.Context, engine *roadmapsync.Engine) error {
			engine.Refresh(ctx)
			printRoadmaps(cmd.OutOrStdout(), engine.Roadmaps())
			return nil
		})
	},
}

var roadmapsWatchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Print the collection whenever another terminal changes it",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		return withEngine(cmd, func(_ context.Context, engine *roadmapsync.Engine) error {
			out := cmd.OutOrStdout()
			printRoadmaps(out, engine.Roadmaps())

			if err := currentEnv.listen(ctx); err != nil {
				return err
			}
			unsubscribe := engine.OnChange(func(items []roadmap.Roadmap) {
				fmt.Fprintf(out, "\n%s %s\n", renderAccent("↻"), renderMuted(time.Now().Format(time.Kitchen)))
				printRoadmaps(out, items)
			})
			defer unsubscribe()
			engine.Start()
			defer engine.Close()

			fmt.Fprintln(out, renderMuted("Watching for changes, Ctrl-C to stop"))
			<-ctx.Done()
			return nil
		})
	},
}

// currentEnv is the environment of the running command.
var currentEnv *clientEnv

// withEngine opens the environment, loads the collection and runs fn.
func withEngine(cmd *cobra.Command, fn func(ctx context.Context, engine *roadmapsync.Engine) error) error {
	ctx := cmd.Context()
	env, err := openEnv(ctx)
	if err != nil {
		return err
	}
	defer env.Close()
	currentEnv = env

	engine := env.engine()
	engine.Load(ctx)
	return fn(ctx, engine)
}

// resolveRoadmapID accepts a full id, a client id or a unique id prefix.
func resolveRoadmapID(items []roadmap.Roadmap, ref string) (string, error) {
	var matches []string
	for _, r := range items {
		if r.ID == ref || (r.ClientID != "" && r.ClientID == ref) {
			return r.ID, nil
		}
		if strings.HasPrefix(r.ID, ref) {
			matches = append(matches, r.ID)
		}
	}
	switch len(matches) {
	case 0:
		return "", fmt.Errorf("unknown roadmap %q", ref)
	case 1:
		return matches[0], nil
	default:
		return "", fmt.Errorf("roadmap prefix %q is ambiguous (%d matches)", ref, len(matches))
	}
}

func generatedPayload(role, name string, phases []roadmap.Phase) map[string]any {
	payload := roadmap.DefaultPayload()
	payload["roadmap"] = roadmap.PhasesPayload(phases)
	meta := map[string]any{"role": role}
	if name != "" {
		meta["name"] = name
	}
	payload["metadata"] = meta
	return payload
}

func printRoadmaps(out io.Writer, items []roadmap.Roadmap) {
	if len(items) == 0 {
		fmt.Fprintln(out, renderMuted("No roadmaps yet. Create one with 'careerforge roadmaps add'."))
		return
	}
	fmt.Fprintln(out, renderTitle(fmt.Sprintf("%d roadmap(s)", len(items))))
	for _, r := range items {
		id := r.ID
		if len(id) > 8 {
			id = id[:8]
		}
		skills := strings.Join(r.Skills, ", ")
		if len(r.Skills) > 4 {
			skills = strings.Join(r.Skills[:4], ", ") + fmt.Sprintf(" +%d", len(r.Skills)-4)
		}
		fmt.Fprintf(out, "  %s  %s  %s\n", renderMuted(id), renderAccent(r.Name), renderMuted(r.CreatedAt))
		if skills != "" {
			fmt.Fprintf(out, "      %s\n", skills)
		}
	}
}

func init() {
	roadmapsAddCmd.Flags().String("name", "", "Roadmap name")
	roadmapsAddCmd.Flags().StringSlice("skills", nil, "Comma-separated skills")
	roadmapsAddCmd.Flags().String("role", "", "Generate phases for this role through the server")

	roadmapsProgressCmd.Flags().String("type", "mcq", "Question type practiced")
	roadmapsProgressCmd.Flags().Int("correct", 0, "Correct answers")
	roadmapsProgressCmd.Flags().Int("total", 0, "Questions answered")

	roadmapsCmd.AddCommand(roadmapsListCmd, roadmapsAddCmd, roadmapsDeleteCmd, roadmapsProgressCmd, roadmapsRefreshCmd, roadmapsWatchCmd)
}
