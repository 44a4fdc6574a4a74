package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"pulseline/internal/app"
	"pulseline/internal/domain"
	"pulseline/internal/engine"
	"pulseline/internal/statuslog"
)

func mentionFlag(ids []string) []domain.User {
	var out []domain.User
	for _, id := range ids {
		out = append(out, domain.User{ID: id})
	}
	return out
}

func goalCmd() *cobra.Command {
	goal := &cobra.Command{
		Use:   "goal",
		Short: "Manage goals",
		Long:  "Goal progress is the mean progress of its sub-goals and is recomputed whenever a sub-goal changes.",
	}
	goal.AddCommand(goalCreateCmd(), goalListCmd(), goalShowCmd(), goalDeleteCmd())
	return goal
}

func goalCreateCmd() *cobra.Command {
	var opts engine.GoalCreateOptions
	var mentions []string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a goal",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.ActorID = viper.GetString("actor-id")
			opts.Mentions = mentionFlag(mentions)
			return withApp(cmd.Context(), func(ctx context.Context, a *app.Context) error {
				g, err := a.Engine.CreateGoal(ctx, opts)
				if err != nil {
					return err
				}
				return printJSONOrTable(g)
			})
		},
	}
	cmd.Flags().StringVar(&opts.ID, "id", "", "goal id (optional)")
	cmd.Flags().StringVar(&opts.OrgID, "org", "", "organization id")
	cmd.Flags().StringVar(&opts.ProjectID, "project", "", "project id")
	cmd.Flags().StringVar(&opts.Reference, "ref", "", "human readable reference")
	cmd.Flags().StringVar(&opts.Title, "title", "", "title")
	cmd.Flags().StringVar(&opts.Description, "description", "", "description")
	cmd.Flags().StringVar(&opts.Level, "level", "", "project or organization")
	cmd.Flags().StringArrayVar(&mentions, "mention", nil, "user id mentioned in the description (repeatable)")
	_ = cmd.MarkFlagRequired("org")
	_ = cmd.MarkFlagRequired("title")
	return cmd
}

func goalListCmd() *cobra.Command {
	var orgID, projectID string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List goals",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.Context) error {
				goals, err := a.Engine.ListGoals(ctx, orgID, projectID)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(goals)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Ref", "Title", "Level", "Status", "Progress"})
				for _, g := range goals {
					tw.AppendRow(table.Row{g.ID, g.Reference, g.Title, g.Level, g.Status, fmt.Sprintf("%.2f", domain.RoundProgress(g.Progress))})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&orgID, "org", "", "organization filter")
	cmd.Flags().StringVar(&projectID, "project", "", "project filter")
	return cmd
}

func goalShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show a goal and its sub-goals",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.Context) error {
				g, subGoals, err := a.Engine.GetGoal(ctx, args[0])
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(map[string]any{"goal": g, "sub_goals": subGoals})
				}
				fmt.Printf("%s  %s  [%s]  progress %.2f\n", g.ID, g.Title, g.Status, domain.RoundProgress(g.Progress))
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"#", "ID", "Title", "Status", "Progress"})
				for _, s := range subGoals {
					tw.AppendRow(table.Row{s.Position, s.ID, s.Title, s.Status, fmt.Sprintf("%.2f", domain.RoundProgress(s.Progress))})
				}
				tw.Render()
				return nil
			})
		},
	}
}

func goalDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a goal and its sub-goals",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.Context) error {
				return a.Engine.DeleteGoal(ctx, args[0])
			})
		},
	}
}

func subGoalCmd() *cobra.Command {
	sub := &cobra.Command{
		Use:     "subgoal",
		Aliases: []string{"sub-goal"},
		Short:   "Manage sub-goals",
	}

	var create engine.SubGoalCreateOptions
	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Add a sub-goal to a goal",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.Context) error {
				s, err := a.Engine.CreateSubGoal(ctx, create)
				if err != nil {
					return err
				}
				return printJSONOrTable(s)
			})
		},
	}
	createCmd.Flags().StringVar(&create.ID, "id", "", "sub-goal id (optional)")
	createCmd.Flags().StringVar(&create.GoalID, "goal", "", "goal id")
	createCmd.Flags().StringVar(&create.Reference, "ref", "", "human readable reference")
	createCmd.Flags().StringVar(&create.Title, "title", "", "title")
	createCmd.Flags().Float64Var(&create.Progress, "progress", 0, "progress between 0 and 1")
	_ = createCmd.MarkFlagRequired("goal")
	_ = createCmd.MarkFlagRequired("title")

	setProgressCmd := &cobra.Command{
		Use:   "set-progress <id> <progress>",
		Short: "Set sub-goal progress (0..1)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var p float64
			if _, err := fmt.Sscanf(args[1], "%g", &p); err != nil {
				return fmt.Errorf("invalid progress %q", args[1])
			}
			return withApp(cmd.Context(), func(ctx context.Context, a *app.Context) error {
				s, err := a.Engine.UpdateSubGoal(ctx, engine.SubGoalUpdateOptions{ID: args[0], Progress: &p})
				if err != nil {
					return err
				}
				return printJSONOrTable(s)
			})
		},
	}

	deleteCmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a sub-goal and unlink its initiatives",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.Context) error {
				return a.Engine.DeleteSubGoal(ctx, args[0])
			})
		},
	}
	sub.AddCommand(createCmd, setProgressCmd, deleteCmd)
	return sub
}

func initiativeCmd() *cobra.Command {
	ini := &cobra.Command{
		Use:   "initiative",
		Short: "Manage initiatives",
		Long:  "Initiative progress is the percentage of its work items that are done or closed.",
	}

	var opts engine.InitiativeCreateOptions
	var mentions []string
	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Create an initiative",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.ActorID = viper.GetString("actor-id")
			opts.Mentions = mentionFlag(mentions)
			return withApp(cmd.Context(), func(ctx context.Context, a *app.Context) error {
				in, err := a.Engine.CreateInitiative(ctx, opts)
				if err != nil {
					return err
				}
				return printJSONOrTable(in)
			})
		},
	}
	createCmd.Flags().StringVar(&opts.ID, "id", "", "initiative id (optional)")
	createCmd.Flags().StringVar(&opts.OrgID, "org", "", "organization id")
	createCmd.Flags().StringVar(&opts.ProjectID, "project", "", "project id")
	createCmd.Flags().StringVar(&opts.Reference, "ref", "", "human readable reference")
	createCmd.Flags().StringVar(&opts.Title, "title", "", "title")
	createCmd.Flags().StringVar(&opts.Description, "description", "", "description")
	createCmd.Flags().StringVar(&opts.Priority, "priority", "", "low, medium, high or urgent")
	createCmd.Flags().StringVar(&opts.SubGoalID, "sub-goal", "", "sub-goal id")
	createCmd.Flags().StringArrayVar(&mentions, "mention", nil, "user id mentioned in the description (repeatable)")
	_ = createCmd.MarkFlagRequired("org")
	_ = createCmd.MarkFlagRequired("project")
	_ = createCmd.MarkFlagRequired("title")

	showCmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show an initiative",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.Context) error {
				in, err := a.Engine.GetInitiative(ctx, args[0])
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(in)
				}
				fmt.Printf("%s  %s  [%s]  %d work items, %.2f%% complete\n", in.ID, in.Title, in.Status, in.WorkItemsCount, domain.RoundProgress(in.Progress))
				return nil
			})
		},
	}

	deleteCmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete an initiative and unlink its work items",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.Context) error {
				return a.Engine.DeleteInitiative(ctx, args[0])
			})
		},
	}
	ini.AddCommand(createCmd, showCmd, deleteCmd)
	return ini
}

func workItemCmd() *cobra.Command {
	wi := &cobra.Command{
		Use:     "workitem",
		Aliases: []string{"work-item"},
		Short:   "Manage work items",
		Long:    "Status changes are logged; the time spent in each status is accumulated.",
	}
	wi.AddCommand(workItemCreateCmd(), workItemUpdateCmd(), workItemDeleteCmd(), workItemStatsCmd())
	return wi
}

func workItemCreateCmd() *cobra.Command {
	var opts engine.WorkItemCreateOptions
	var mentions []string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a work item",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.ActorID = viper.GetString("actor-id")
			opts.Mentions = mentionFlag(mentions)
			return withApp(cmd.Context(), func(ctx context.Context, a *app.Context) error {
				w, err := a.Engine.CreateWorkItem(ctx, opts)
				if err != nil {
					return err
				}
				return printJSONOrTable(w)
			})
		},
	}
	cmd.Flags().StringVar(&opts.ID, "id", "", "work item id (optional)")
	cmd.Flags().StringVar(&opts.OrgID, "org", "", "organization id")
	cmd.Flags().StringVar(&opts.ProjectID, "project", "", "project id")
	cmd.Flags().StringVar(&opts.Reference, "ref", "", "human readable reference")
	cmd.Flags().StringVar(&opts.Title, "title", "", "title")
	cmd.Flags().StringVar(&opts.Description, "description", "", "description")
	cmd.Flags().StringVar(&opts.Status, "status", "", "initial status (default planned)")
	cmd.Flags().StringVar(&opts.Priority, "priority", "", "low, medium, high or urgent")
	cmd.Flags().StringVar(&opts.InitiativeID, "initiative", "", "initiative id")
	cmd.Flags().StringArrayVar(&mentions, "mention", nil, "user id mentioned in the description (repeatable)")
	_ = cmd.MarkFlagRequired("org")
	_ = cmd.MarkFlagRequired("project")
	_ = cmd.MarkFlagRequired("title")
	return cmd
}

func workItemUpdateCmd() *cobra.Command {
	var title, status, priority, initiative string
	var unlink bool
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Update a work item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := engine.WorkItemUpdateOptions{ID: args[0], ActorID: viper.GetString("actor-id")}
			if cmd.Flags().Changed("title") {
				opts.Title = &title
			}
			if cmd.Flags().Changed("status") {
				opts.Status = &status
			}
			if cmd.Flags().Changed("priority") {
				opts.Priority = &priority
			}
			if cmd.Flags().Changed("initiative") {
				opts.InitiativeID = &initiative
			}
			if unlink {
				empty := ""
				opts.InitiativeID = &empty
			}
			return withApp(cmd.Context(), func(ctx context.Context, a *app.Context) error {
				w, err := a.Engine.UpdateWorkItem(ctx, opts)
				if err != nil {
					return err
				}
				return printJSONOrTable(w)
			})
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "title")
	cmd.Flags().StringVar(&status, "status", "", "status, e.g. in-progress or IN_PROGRESS")
	cmd.Flags().StringVar(&priority, "priority", "", "priority")
	cmd.Flags().StringVar(&initiative, "initiative", "", "move to initiative")
	cmd.Flags().BoolVar(&unlink, "unlink", false, "remove from its initiative")
	cmd.MarkFlagsMutuallyExclusive("initiative", "unlink")
	return cmd
}

func workItemDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a work item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.Context) error {
				return a.Engine.DeleteWorkItem(ctx, args[0])
			})
		},
	}
}

func workItemStatsCmd() *cobra.Command {
	var history bool
	cmd := &cobra.Command{
		Use:   "stats <id>",
		Short: "Show time spent per status",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.Context) error {
				stats, err := a.Status.Stats(ctx, args[0])
				if err != nil {
					return err
				}
				var logs []domain.WorkItemStatusLog
				if history {
					if logs, err = a.Status.History(ctx, args[0]); err != nil {
						return err
					}
				}
				if viper.GetBool("json") {
					return printJSON(map[string]any{"stats": stats, "history": logs})
				}
				durations := statuslog.Durations(stats)
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"Status", "Time"})
				for _, st := range domain.WorkItemStatuses {
					if d := durations[st]; d > 0 {
						tw.AppendRow(table.Row{st, d.Round(time.Second)})
					}
				}
				tw.AppendFooter(table.Row{"Total", time.Duration(stats.Total() * int64(time.Millisecond)).Round(time.Second)})
				tw.Render()
				if history {
					ht := table.NewWriter()
					ht.SetOutputMirror(os.Stdout)
					ht.AppendHeader(table.Row{"At", "Status"})
					for _, l := range logs {
						ht.AppendRow(table.Row{l.Timestamp.Format(time.RFC3339), l.Status})
					}
					ht.Render()
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&history, "history", false, "also print status transitions")
	return cmd
}

func commentCmd() *cobra.Command {
	c := &cobra.Command{
		Use:   "comment",
		Short: "Comment on entities",
	}
	var opts engine.CommentCreateOptions
	var mentions []string
	addCmd := &cobra.Command{
		Use:   "add",
		Short: "Add a comment, notifying mentioned users",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.AuthorID = viper.GetString("actor-id")
			opts.Mentions = mentionFlag(mentions)
			return withApp(cmd.Context(), func(ctx context.Context, a *app.Context) error {
				cm, err := a.Engine.AddComment(ctx, opts)
				if err != nil {
					return err
				}
				return printJSONOrTable(cm)
			})
		},
	}
	addCmd.Flags().StringVar(&opts.ParentKind, "on", "", "goal, sub-goal, initiative, work-item, feature-request or issue")
	addCmd.Flags().StringVar(&opts.ParentID, "id", "", "id of the commented entity")
	addCmd.Flags().StringVar(&opts.Content, "content", "", "comment text")
	addCmd.Flags().StringArrayVar(&mentions, "mention", nil, "mentioned user id (repeatable)")
	_ = addCmd.MarkFlagRequired("on")
	_ = addCmd.MarkFlagRequired("id")
	_ = addCmd.MarkFlagRequired("content")

	deleteCmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a comment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.Context) error {
				return a.Engine.DeleteComment(ctx, args[0])
			})
		},
	}
	c.AddCommand(addCmd, deleteCmd)
	return c
}
