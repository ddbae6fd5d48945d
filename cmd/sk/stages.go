package main

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"scorekeeper/internal/app"
	"scorekeeper/internal/stages"
)

func stagesCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "stages", Short: "Manage tournament stages"}
	cmd.AddCommand(stagesListCmd())
	cmd.AddCommand(stagesAddCmd())
	cmd.AddCommand(stagesRemoveCmd())
	cmd.AddCommand(stagesUpdateCmd())
	cmd.AddCommand(stagesMoveCmd())
	cmd.AddCommand(stagesResetCmd())
	return cmd
}

func stagesListCmd() *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stages",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withServices(cmd.Context(), func(ctx context.Context, svc *app.Services) error {
				items := svc.Stages.Stages()
				if all {
					items = svc.Stages.AllStages()
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				printStages(items)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "include stages without rounds")
	return cmd
}

func printStages(items []stages.Stage) {
	tw := table.NewWriter()
	tw.SetOutputMirror(os.Stdout)
	tw.AppendHeader(table.Row{"#", "ID", "Name", "Rounds", "Status"})
	for _, s := range items {
		status := color.New(color.FgGreen).Sprint("active")
		if s.Rounds == 0 {
			status = color.New(color.FgYellow).Sprint("hidden")
		}
		tw.AppendRow(table.Row{s.Index, s.ID, s.Name, s.Rounds, status})
	}
	tw.Render()
}

// mutateStages runs fn against the catalog and saves it when fn succeeds.
func mutateStages(cmd *cobra.Command, fn func(*stages.Catalog) error) error {
	return withServices(cmd.Context(), func(ctx context.Context, svc *app.Services) error {
		if err := fn(svc.Stages); err != nil {
			return err
		}
		if err := svc.Stages.Save(ctx); err != nil {
			return err
		}
		if viper.GetBool("json") {
			return printJSON(svc.Stages.AllStages())
		}
		printStages(svc.Stages.AllStages())
		return nil
	})
}

func stagesAddCmd() *cobra.Command {
	var name string
	var rounds int
	cmd := &cobra.Command{
		Use:   "add <id>",
		Short: "Append a stage",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return mutateStages(cmd, func(c *stages.Catalog) error {
				return c.Add(stages.Definition{ID: args[0], Name: name, Rounds: rounds})
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "display name")
	cmd.Flags().IntVar(&rounds, "rounds", 0, "number of rounds")
	return cmd
}

func stagesRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <id>",
		Short: "Remove a stage",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return mutateStages(cmd, func(c *stages.Catalog) error {
				c.Remove(args[0])
				return nil
			})
		},
	}
}

func stagesUpdateCmd() *cobra.Command {
	var name string
	var rounds int
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Rename a stage or change its rounds",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return mutateStages(cmd, func(c *stages.Catalog) error {
				st, ok := c.Get(args[0])
				if !ok {
					return fmt.Errorf("%w: %s", stages.ErrNotFound, args[0])
				}
				if cmd.Flags().Changed("name") {
					st.Name = name
				}
				if cmd.Flags().Changed("rounds") {
					st.Rounds = rounds
				}
				return c.UpdateStage(st)
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "display name")
	cmd.Flags().IntVar(&rounds, "rounds", 0, "number of rounds")
	return cmd
}

func stagesMoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "move <id> <delta>",
		Short: "Move a stage up (negative) or down (positive)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			delta, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("invalid delta %q", args[1])
			}
			return mutateStages(cmd, func(c *stages.Catalog) error {
				st, ok := c.Get(args[0])
				if !ok {
					return fmt.Errorf("%w: %s", stages.ErrNotFound, args[0])
				}
				return c.MoveStage(st, delta)
			})
		},
	}
}

func stagesResetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Replace every stage with the defaults",
		RunE: func(cmd *cobra.Command, args []string) error {
			return mutateStages(cmd, func(c *stages.Catalog) error {
				c.Clear()
				for _, d := range stages.Defaults() {
					if err := c.Add(d); err != nil {
						return err
					}
				}
				return nil
			})
		},
	}
}
