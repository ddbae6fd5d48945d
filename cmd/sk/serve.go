package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"scorekeeper/internal/app"
	"scorekeeper/internal/db"
	"scorekeeper/internal/server"
)

func serveCmd() *cobra.Command {
	var addr, basePath string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the scoring HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withServices(cmd.Context(), func(ctx context.Context, svc *app.Services) error {
				srvCfg := server.Config{
					Stages:   svc.Stages,
					Sheet:    svc.Sheet,
					Ledger:   svc.Ledger,
					Teams:    svc.Teams,
					BasePath: basePath,
					Logger:   svc.Logger,
				}
				if svc.Repo != nil {
					srvCfg.Events = svc.Repo
					svc.Logger.Info("event log enabled", "database", db.Path(svc.Workspace))
				}
				handler, err := server.New(srvCfg)
				if err != nil {
					return err
				}
				srv := &http.Server{Addr: addr, Handler: handler, ReadHeaderTimeout: 10 * time.Second}
				go func() {
					<-ctx.Done()
					shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
					defer cancel()
					srv.Shutdown(shutdownCtx)
				}()
				svc.Logger.Info("serving scorekeeper api", "addr", addr, "base_path", basePath, "backend", svc.Config.Storage.Backend)
				fmt.Printf("Serving scorekeeper API on http://%s%s (OpenAPI at /openapi.json, Swagger UI at /docs)\n", addr, basePath)
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:8080", "listen address")
	cmd.Flags().StringVar(&basePath, "base-path", "/v0", "API base path")
	return cmd
}

func eventsCmd() *cobra.Command {
	var n int
	var evtType, kind, entityID string
	cmd := &cobra.Command{
		Use:   "events",
		Short: "Show the latest document events (sqlite backend)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withServices(cmd.Context(), func(ctx context.Context, svc *app.Services) error {
				if svc.Repo == nil {
					return fmt.Errorf("event log requires the sqlite backend")
				}
				items, err := svc.Repo.LatestEvents(ctx, n, evtType, kind, entityID)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Time", "Type", "Kind", "Entity"})
				for _, e := range items {
					tw.AppendRow(table.Row{e.ID, e.TS, e.Type, e.EntityKind, e.EntityID})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().IntVarP(&n, "limit", "n", 20, "number of events")
	cmd.Flags().StringVar(&evtType, "type", "", "filter by event type")
	cmd.Flags().StringVar(&kind, "kind", "", "filter by entity kind (stages, scores, teams, score_detail)")
	cmd.Flags().StringVar(&entityID, "entity", "", "filter by document name")
	return cmd
}

func documentsCmd() *cobra.Command {
	var prefix string
	cmd := &cobra.Command{
		Use:   "documents",
		Short: "List documents stored in the database (sqlite backend)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withServices(cmd.Context(), func(ctx context.Context, svc *app.Services) error {
				if svc.Repo == nil {
					return fmt.Errorf("documents listing requires the sqlite backend")
				}
				docs, err := svc.Repo.ListDocuments(ctx, prefix)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(docs)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"Name", "Bytes", "Created", "Updated"})
				for _, d := range docs {
					tw.AppendRow(table.Row{d.Name, d.Size, d.CreatedAt, d.UpdatedAt})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&prefix, "prefix", "", "only names starting with prefix")
	return cmd
}
