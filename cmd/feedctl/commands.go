package main

import (
	"context"
	"fmt"
	"io"
	"os/signal"
	"syscall"

	sonic "github.com/bytedance/sonic"
	"github.com/riskibarqy/prizepicks-feed/internal/app"
	"github.com/riskibarqy/prizepicks-feed/internal/config"
	"github.com/riskibarqy/prizepicks-feed/internal/domain/projection"
	"github.com/riskibarqy/prizepicks-feed/internal/platform/logging"
	"github.com/riskibarqy/prizepicks-feed/internal/usecase"
	"github.com/spf13/cobra"
)

var prettyJSON = sonic.Config{SortMapKeys: true}.Froze()

func newRootCmd(out, errOut io.Writer) *cobra.Command {
	root := &cobra.Command{
		Use:           "feedctl",
		Short:         "Refresh and inspect the PrizePicks projection store",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.SetOut(out)
	root.SetErr(errOut)

	root.AddCommand(refreshCmd(errOut))
	root.AddCommand(sportsCmd(errOut))
	root.AddCommand(projectionsCmd(errOut))
	root.AddCommand(playersCmd(errOut))
	root.AddCommand(gamesCmd(errOut))
	return root
}

// runWithServices wires the service graph from the environment, runs fn and prints its result.
func runWithServices(cmd *cobra.Command, logOut io.Writer, fn func(ctx context.Context, services *app.Services) (any, error)) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := logging.NewJSONWriter(logOut, cfg.LogLevel)
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	services, err := app.NewServices(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("build services: %w", err)
	}
	defer func() {
		if err := services.Close(); err != nil {
			logger.Warn("close services", "error", err)
		}
	}()

	result, err := fn(ctx, services)
	if err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), result)
}

func printJSON(out io.Writer, value any) error {
	raw, err := prettyJSON.MarshalIndent(value, "", "  ")
	if err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	_, err = fmt.Fprintln(out, string(raw))
	return err
}

func sportIDFlag(cmd *cobra.Command, sportID int64) *int64 {
	if !cmd.Flags().Changed("sport") {
		return nil
	}
	return &sportID
}

func refreshCmd(logOut io.Writer) *cobra.Command {
	var sportID int64
	cmd := &cobra.Command{
		Use:   "refresh",
		Short: "Pull fresh data from upstream into the store",
		RunE: func(cmd *cobra.Command, args []string) error {
			scoped := sportIDFlag(cmd, sportID)
			return runWithServices(cmd, logOut, func(ctx context.Context, services *app.Services) (any, error) {
				if scoped != nil {
					return services.Refresher.RefreshSport(ctx, *scoped)
				}
				return services.Refresher.RefreshAll(ctx)
			})
		},
	}
	cmd.Flags().Int64Var(&sportID, "sport", 0, "Refresh only this sport id")
	return cmd
}

func sportsCmd(logOut io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "sports",
		Short: "List the sport catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithServices(cmd, logOut, func(ctx context.Context, services *app.Services) (any, error) {
				return services.Query.ListSports(ctx)
			})
		},
	}
}

func projectionsCmd(logOut io.Writer) *cobra.Command {
	var (
		sportID  int64
		player   string
		statType string
		page     int
		pageSize int
	)
	cmd := &cobra.Command{
		Use:   "projections",
		Short: "List projections, refreshing stale sports first",
		RunE: func(cmd *cobra.Command, args []string) error {
			filter := projection.Filter{
				SportID:    sportIDFlag(cmd, sportID),
				PlayerName: player,
				StatType:   statType,
			}
			var pageReq *usecase.PageRequest
			if cmd.Flags().Changed("page") || cmd.Flags().Changed("page-size") {
				pageReq = &usecase.PageRequest{Page: page, PageSize: pageSize}
			}
			return runWithServices(cmd, logOut, func(ctx context.Context, services *app.Services) (any, error) {
				return services.Query.ListProjections(ctx, filter, pageReq)
			})
		},
	}
	cmd.Flags().Int64Var(&sportID, "sport", 0, "Sport id")
	cmd.Flags().StringVar(&player, "player", "", "Player name substring")
	cmd.Flags().StringVar(&statType, "stat", "", "Stat type")
	cmd.Flags().IntVar(&page, "page", 1, "Page number")
	cmd.Flags().IntVar(&pageSize, "page-size", 20, "Page size (max 100)")
	return cmd
}

func playersCmd(logOut io.Writer) *cobra.Command {
	var sportID int64
	cmd := &cobra.Command{
		Use:   "players [name]",
		Short: "List players, or find the first player matching name",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			scoped := sportIDFlag(cmd, sportID)
			return runWithServices(cmd, logOut, func(ctx context.Context, services *app.Services) (any, error) {
				if len(args) == 1 {
					return services.Query.FindPlayerByName(ctx, args[0])
				}
				return services.Query.ListPlayers(ctx, scoped)
			})
		},
	}
	cmd.Flags().Int64Var(&sportID, "sport", 0, "Sport id")
	return cmd
}

func gamesCmd(logOut io.Writer) *cobra.Command {
	var sportID int64
	cmd := &cobra.Command{
		Use:   "games [id]",
		Short: "List games, or show one game by id",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			scoped := sportIDFlag(cmd, sportID)
			return runWithServices(cmd, logOut, func(ctx context.Context, services *app.Services) (any, error) {
				if len(args) == 1 {
					return services.Query.FindGameByID(ctx, args[0])
				}
				return services.Query.ListGames(ctx, scoped)
			})
		},
	}
	cmd.Flags().Int64Var(&sportID, "sport", 0, "Sport id")
	return cmd
}
