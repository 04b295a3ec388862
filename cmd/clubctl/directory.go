package main

import (
	"context"
	"fmt"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"clubhub/client/internal/models"
)

var clubsCmd = &cobra.Command{
	Use:   "clubs [id]",
	Short: "List clubs, or show one club with its events",
	Args:  cobra.MaximumNArgs(1),
	RunE:  withEnv(runClubs),
}

var eventsCmd = &cobra.Command{
	Use:   "events [id]",
	Short: "List events, or show one event",
	Args:  cobra.MaximumNArgs(1),
	RunE:  withEnv(runEvents),
}

var clubActivateCmd = &cobra.Command{
	Use:   "club-activate <id> <true|false>",
	Short: "Activate or deactivate a club (admin)",
	Args:  cobra.ExactArgs(2),
	RunE:  withEnv(runClubActivate),
}

var eventActivateCmd = &cobra.Command{
	Use:   "event-activate <id> <true|false>",
	Short: "Activate or deactivate an event (admin)",
	Args:  cobra.ExactArgs(2),
	RunE:  withEnv(runEventActivate),
}

func init() {
	rootCmd.AddCommand(clubsCmd, eventsCmd, clubActivateCmd, eventActivateCmd)
}

func runClubs(ctx context.Context, cmd *cobra.Command, e *env, args []string) error {
	if len(args) == 1 {
		club, err := e.dir.GetClub(ctx, args[0])
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s (%s) active=%t\n\n", club.ClubName, club.ID, club.IsActive)
		printEvents(cmd, club.Events)
		return nil
	}

	clubs, err := e.dir.ListClubs(ctx)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tACTIVE")
	for _, c := range clubs {
		fmt.Fprintf(tw, "%s\t%s\t%t\n", c.ID, c.ClubName, c.IsActive)
	}
	return tw.Flush()
}

func runEvents(ctx context.Context, cmd *cobra.Command, e *env, args []string) error {
	if len(args) == 1 {
		event, err := e.dir.GetEvent(ctx, args[0])
		if err != nil {
			return err
		}
		printEvents(cmd, []models.Event{*event})
		return nil
	}

	events, err := e.dir.ListEvents(ctx)
	if err != nil {
		return err
	}
	printEvents(cmd, events)
	return nil
}

func runClubActivate(ctx context.Context, cmd *cobra.Command, e *env, args []string) error {
	active, err := strconv.ParseBool(args[1])
	if err != nil {
		return fmt.Errorf("active must be true or false: %w", err)
	}
	club, err := e.dir.SetClubActive(ctx, args[0], active)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s active=%t\n", club.ClubName, club.IsActive)
	return nil
}

func runEventActivate(ctx context.Context, cmd *cobra.Command, e *env, args []string) error {
	active, err := strconv.ParseBool(args[1])
	if err != nil {
		return fmt.Errorf("active must be true or false: %w", err)
	}
	event, err := e.dir.SetEventActive(ctx, args[0], active)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s active=%t\n", event.Title, event.IsActive)
	return nil
}

func printEvents(cmd *cobra.Command, events []models.Event) {
	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTITLE\tSTARTS\tLOCATION\tSTATUS\tACTIVE")
	for _, ev := range events {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%t\n",
			ev.ID, ev.Title, ev.StartsAt.Local().Format("Mon Jan 2 15:04"), ev.Location, ev.Status, ev.IsActive)
	}
	_ = tw.Flush()
}
