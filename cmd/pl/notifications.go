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
)

func notificationsCmd() *cobra.Command {
	n := &cobra.Command{
		Use:     "notifications",
		Aliases: []string{"notif"},
		Short:   "Read the actor's mention notifications",
		Long:    "Notifications are addressed to --actor-id. Listing removes notifications whose entity no longer exists.",
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List notifications, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.Context) error {
				items, err := a.Notify.ListForUser(ctx, viper.GetString("actor-id"))
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "When", "From", "Type", "Status", "About", "Path"})
				for _, it := range items {
					tw.AppendRow(table.Row{it.ID, it.CreatedAt.Format(time.RFC3339), it.CreatedBy, it.EntityType, it.Status, it.Display, it.Path})
				}
				tw.Render()
				return nil
			})
		},
	}

	unreadCmd := &cobra.Command{
		Use:   "unread",
		Short: "Count unread notifications",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.Context) error {
				count, err := a.Notify.CountUnread(ctx, viper.GetString("actor-id"))
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(map[string]int{"count": count})
				}
				fmt.Println(count)
				return nil
			})
		},
	}

	readCmd := &cobra.Command{
		Use:   "read <id>...",
		Short: "Mark notifications as read",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.Context) error {
				count, err := a.Notify.MarkAsRead(ctx, viper.GetString("actor-id"), args)
				if err != nil {
					return err
				}
				fmt.Printf("marked %d read\n", count)
				return nil
			})
		},
	}

	deleteCmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete one notification",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.Context) error {
				return a.Notify.DeleteOne(ctx, viper.GetString("actor-id"), args[0])
			})
		},
	}

	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete all notifications",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.Context) error {
				count, err := a.Notify.DeleteAll(ctx, viper.GetString("actor-id"))
				if err != nil {
					return err
				}
				fmt.Printf("deleted %d\n", count)
				return nil
			})
		},
	}

	n.AddCommand(listCmd, unreadCmd, readCmd, deleteCmd, clearCmd)
	return n
}
