package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github.com/wanxtv/wanx/backend/internal/database"
	"github.com/wanxtv/wanx/backend/internal/feed"
	"github.com/wanxtv/wanx/backend/internal/feeds"
	"github.com/wanxtv/wanx/backend/internal/models"
	"github.com/wanxtv/wanx/backend/internal/repository"
)

var (
	walkGame  string
	walkUser  string
	walkSize  int
	walkPages int
)

var feedCmd = &cobra.Command{
	Use:   "feed",
	Short: "Inspect paginated feeds",
}

var walkCmd = &cobra.Command{
	Use:   "walk <feed>",
	Short: "Page through a feed until its end and report duplicates and backfill work",
	Long: `walk drives a video feed from "now" (maxs=0) to its end, following the cursor
each page returns. Feeds: latest, elite, partner_list, game_videos, game_hot_videos,
game_live_videos, user_videos, user_live_videos, migu_elite, migu_user_videos.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db := database.DB
		catalog, err := feeds.NewCatalog(feeds.Repositories{
			Videos:    repository.NewVideoRepository(db),
			Relations: repository.NewRelationRepository(db),
			Editorial: repository.NewEditorialRepository(db),
			Comments:  repository.NewCommentRepository(db),
		}, feeds.Config{
			MaxRounds:   cfg.Feed.MaxRounds,
			MaxScanned:  cfg.Feed.MaxScanned,
			Concurrency: cfg.Feed.ResolveConcurrency,
			Rules:       cfg.Feed.RuleMap(),
		})
		if err != nil {
			return err
		}

		name := args[0]
		f, params, err := videoFeed(cmd.Context(), catalog, name)
		if err != nil {
			return err
		}
		filter := catalog.VideoFilter(name)
		switch name {
		case feeds.GameLiveVideos:
			filter = catalog.VideoFilter(name, feeds.LiveReplays())
		case feeds.MiguElite, feeds.MiguUserVideos:
			hall, err := repository.NewGameRepository(db).HallGameIDs(cmd.Context())
			if err != nil {
				return err
			}
			filter = catalog.VideoFilter(name, feeds.HallGames(hall))
		}

		report, err := walk(cmd.Context(), f, params, filter, walkSize, walkPages)
		if err != nil {
			return err
		}
		report.Feed = name
		return report.print(cmd.OutOrStdout())
	},
}

func init() {
	walkCmd.Flags().StringVar(&walkGame, "game", "", "Game id for game feeds")
	walkCmd.Flags().StringVar(&walkUser, "user", "", "User id for user feeds; Migu open id for migu_user_videos")
	walkCmd.Flags().IntVar(&walkSize, "nbr", 10, "Page size")
	walkCmd.Flags().IntVar(&walkPages, "pages", 0, "Stop after this many pages; 0 walks to the end")
	feedCmd.AddCommand(walkCmd)
}

// videoFeed picks the fetcher and query for a feed name from the flags.
func videoFeed(ctx context.Context, c *feeds.Catalog, name string) (*feeds.Videos, repository.VideoQuery, error) {
	needGame := func() error {
		if walkGame == "" {
			return fmt.Errorf("%s needs --game", name)
		}
		return nil
	}
	needUser := func() error {
		if walkUser == "" {
			return fmt.Errorf("%s needs --user", name)
		}
		return nil
	}

	switch name {
	case feeds.Latest:
		return c.Latest, repository.VideoQuery{}, nil
	case feeds.Elite:
		return c.Elite, repository.VideoQuery{EliteOnly: true}, nil
	case feeds.PartnerList:
		return c.PartnerList, repository.VideoQuery{}, nil
	case feeds.MiguElite:
		return c.MiguElite, repository.VideoQuery{EliteOnly: true}, nil
	case feeds.GameVideos, feeds.GameHotVideos, feeds.GameLiveVideos:
		if err := needGame(); err != nil {
			return nil, repository.VideoQuery{}, err
		}
		q := repository.VideoQuery{Game: walkGame}
		switch name {
		case feeds.GameHotVideos:
			return c.GameHotVideos, q, nil
		case feeds.GameLiveVideos:
			return c.GameLiveVideos, q, nil
		}
		return c.GameVideos, q, nil
	case feeds.UserVideos, feeds.UserLiveVideos:
		if err := needUser(); err != nil {
			return nil, repository.VideoQuery{}, err
		}
		q := repository.VideoQuery{Author: walkUser, Game: walkGame}
		if name == feeds.UserLiveVideos {
			q.LiveReplay = true
			return c.UserLiveVideos, q, nil
		}
		return c.UserVideos, q, nil
	case feeds.MiguUserVideos:
		if err := needUser(); err != nil {
			return nil, repository.VideoQuery{}, err
		}
		user, err := repository.NewUserRepository(database.DB).GetByMiguOpenID(ctx, walkUser)
		if err != nil {
			return nil, repository.VideoQuery{}, err
		}
		return c.MiguUserVideos, repository.VideoQuery{Author: user.ID}, nil
	}
	return nil, repository.VideoQuery{}, fmt.Errorf("unknown feed %q", name)
}

type walkReport struct {
	Feed       string         `json:"feed"`
	Pages      int            `json:"pages"`
	Items      int            `json:"items"`
	Duplicates int            `json:"duplicates"`
	Rounds     int            `json:"rounds"`
	Scanned    int            `json:"scanned"`
	Safeguards map[string]int `json:"safeguards,omitempty"`
	Reached    bool           `json:"reached_end"`
}

// walk fetches pages from FromNow until the feed reports its end, maxPages is hit or
// the cursor stops moving.
func walk[P any](ctx context.Context, f *feed.Fetcher[P, *models.Video], params P, filter feed.Filter[*models.Video], size, maxPages int) (*walkReport, error) {
	report := &walkReport{Safeguards: make(map[string]int)}
	seen := make(map[string]bool)
	cursor := feed.FromNow()

	for maxPages <= 0 || report.Pages < maxPages {
		page, err := f.Fetch(ctx, feed.Request[P]{PageSize: size, Cursor: cursor, Params: params}, filter)
		if err != nil {
			return report, fmt.Errorf("page %d: %w", report.Pages+1, err)
		}
		report.Pages++
		report.Rounds += page.Stats.Rounds
		report.Scanned += page.Stats.Scanned
		if page.Stats.Safeguard != "" {
			report.Safeguards[page.Stats.Safeguard]++
		}
		for _, it := range page.Items {
			if seen[it.ID] {
				report.Duplicates++
			}
			seen[it.ID] = true
			report.Items++
		}

		if page.EndOfData {
			report.Reached = true
			break
		}
		if len(page.Items) == 0 && page.NextCursor == cursor {
			break
		}
		cursor = page.NextCursor
	}
	return report, nil
}

func (r *walkReport) print(w io.Writer) error {
	if output == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(r)
	}
	fmt.Fprintf(w, "feed:        %s\n", r.Feed)
	fmt.Fprintf(w, "pages:       %d\n", r.Pages)
	fmt.Fprintf(w, "items:       %d\n", r.Items)
	fmt.Fprintf(w, "duplicates:  %d\n", r.Duplicates)
	fmt.Fprintf(w, "rounds:      %d\n", r.Rounds)
	fmt.Fprintf(w, "scanned:     %d\n", r.Scanned)
	fmt.Fprintf(w, "reached end: %t\n", r.Reached)
	for name, n := range r.Safeguards {
		fmt.Fprintf(w, "safeguard %s: %d\n", name, n)
	}
	return nil
}
