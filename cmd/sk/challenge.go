package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"scorekeeper/internal/challenge"
	"scorekeeper/internal/objectives"
	"scorekeeper/internal/scoresheet"
	"scorekeeper/internal/scoring"
)

func challengeCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "challenge", Short: "Inspect challenge definitions"}
	cmd.AddCommand(challengeShowCmd())
	cmd.AddCommand(&cobra.Command{
		Use:   "builtins",
		Short: "List embedded challenges",
		Run: func(cmd *cobra.Command, args []string) {
			for _, b := range challenge.Builtins() {
				fmt.Println(b)
			}
		},
	})
	return cmd
}

func loadChallenge(ctx context.Context) (*challenge.Definition, error) {
	cfg := loadConfig(newLogger())
	return challenge.Loader{Dir: viper.GetString("workspace")}.Load(ctx, cfg.Challenge)
}

func challengeShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the missions and objectives of the configured challenge",
		RunE: func(cmd *cobra.Command, args []string) error {
			def, err := loadChallenge(cmd.Context())
			if err != nil {
				return err
			}
			defer def.Close()
			if viper.GetBool("json") {
				return printJSON(def.Missions)
			}
			fmt.Println(color.New(color.Bold).Sprint(def.Field.Title))
			tw := table.NewWriter()
			tw.SetOutputMirror(os.Stdout)
			tw.AppendHeader(table.Row{"Mission", "Objective", "Type", "Range / Options", "Default"})
			for _, m := range def.Missions {
				for _, o := range m.Objectives {
					tw.AppendRow(table.Row{m.ID, o.Name, o.Kind, describeRange(o.Min, o.Max, o.Options), o.Default})
				}
			}
			tw.Render()
			return nil
		},
	}
}

func describeRange(lo, hi *float64, opts []objectives.Option) string {
	if len(opts) > 0 {
		values := make([]string, len(opts))
		for i, o := range opts {
			values[i] = o.Value
		}
		return strings.Join(values, ", ")
	}
	if lo == nil && hi == nil {
		return ""
	}
	bound := func(v *float64) string {
		if v == nil {
			return "?"
		}
		return fmt.Sprint(*v)
	}
	return bound(lo) + ".." + bound(hi)
}

// scoreCmd evaluates the challenge offline against a JSON file of
// objective values.
func scoreCmd() *cobra.Command {
	var valuesPath string
	cmd := &cobra.Command{
		Use:   "score",
		Short: "Score objective values without a sheet",
		RunE: func(cmd *cobra.Command, args []string) error {
			def, err := loadChallenge(cmd.Context())
			if err != nil {
				return err
			}
			defer def.Close()
			if valuesPath != "" {
				data, err := os.ReadFile(valuesPath)
				if err != nil {
					return err
				}
				var values map[string]any
				if err := json.Unmarshal(data, &values); err != nil {
					return fmt.Errorf("decode %s: %w", valuesPath, err)
				}
				for name, v := range values {
					if err := def.ObjectiveIndex.Set(name, v); err != nil {
						return err
					}
				}
			}
			agg := scoring.New(def.ObjectiveIndex, scoresheet.Missions(def))
			if err := agg.Start(); err != nil {
				return err
			}
			defer agg.Stop()

			type missionOut struct {
				ID     string         `json:"id"`
				Result scoring.Result `json:"result"`
				Errors []string       `json:"errors"`
			}
			var out struct {
				Missions  []missionOut      `json:"missions"`
				Breakdown scoring.Breakdown `json:"breakdown"`
			}
			for _, id := range agg.MissionIDs() {
				r, _ := agg.Result(id)
				out.Missions = append(out.Missions, missionOut{ID: id, Result: r, Errors: r.ErrorMessages()})
			}
			out.Breakdown = agg.Breakdown()
			if viper.GetBool("json") {
				return printJSON(out)
			}
			tw := table.NewWriter()
			tw.SetOutputMirror(os.Stdout)
			tw.AppendHeader(table.Row{"Mission", "Points", "Percentages", "Errors"})
			for _, m := range out.Missions {
				errs := strings.Join(m.Errors, "; ")
				if errs != "" {
					errs = color.New(color.FgRed).Sprint(errs)
				}
				tw.AppendRow(table.Row{m.ID, m.Result.Value, fmt.Sprint(m.Result.Percentages), errs})
			}
			tw.AppendFooter(table.Row{"final", out.Breakdown.Final, fmt.Sprintf("x%.2f", out.Breakdown.BonusMultiplier), ""})
			tw.Render()
			return nil
		},
	}
	cmd.Flags().StringVar(&valuesPath, "values", "", "JSON object of objective values")
	return cmd
}
