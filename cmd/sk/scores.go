package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"scorekeeper/internal/app"
	"scorekeeper/internal/scores"
)

func scoresCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "scores", Short: "Inspect saved scores"}
	cmd.AddCommand(scoresListCmd())
	cmd.AddCommand(scoresVerifyCmd())
	return cmd
}

func scoresListCmd() *cobra.Command {
	var team int
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List saved scores",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withServices(cmd.Context(), func(ctx context.Context, svc *app.Services) error {
				var items []scores.Record
				for _, r := range svc.Ledger.List() {
					if team == 0 || r.Team.Number == team {
						items = append(items, r)
					}
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Team", "Stage", "Round", "Score", "Saved", "Receipt"})
				for _, r := range items {
					signed := "-"
					if r.Receipt != "" {
						signed = "signed"
					}
					tw.AppendRow(table.Row{r.ID, fmt.Sprintf("%d %s", r.Team.Number, r.Team.Name), r.Stage.ID, r.Round, r.Score, r.CreatedAt.Format(time.RFC3339), signed})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&team, "team", 0, "only scores of this team number")
	return cmd
}

func scoresVerifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "verify <id>",
		Short: "Check the receipt of a saved score",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withServices(cmd.Context(), func(ctx context.Context, svc *app.Services) error {
				c, err := svc.Ledger.Verify(args[0])
				if errors.Is(err, scores.ErrTampered) {
					fmt.Printf("%s receipt does not match record %s\n", color.New(color.FgRed).Sprint("MISMATCH"), args[0])
					return err
				}
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(c)
				}
				fmt.Printf("%s score %d for team %d (%s round %d)\n", color.New(color.FgGreen).Sprint("OK"), c.Score, c.Team, c.Stage, c.Round)
				return nil
			})
		},
	}
}
