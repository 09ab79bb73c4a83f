package loadtest

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/okian/winstate/internal/domain/model"
	"github.com/okian/winstate/internal/domain/ranking"
	"github.com/okian/winstate/internal/domain/types"
	"github.com/okian/winstate/pkg/logger"
)

// Mismatch describes one game whose served leaderboard differs from the
// expected one.
type Mismatch struct {
	Game   string
	Reason string
}

// expectedTop ranks the accepted submissions of every game locally.
// Request ids stand in for server ids; they only break full ties, which
// compare equal on the public fields anyway.
func expectedTop(subs []Submission, limit int) map[string][]types.Entry {
	byGame := make(map[string][]model.Result)
	for _, s := range subs {
		byGame[s.Game] = append(byGame[s.Game], model.Result{
			Game:  s.Game,
			ID:    s.RequestID,
			Moves: s.Moves,
			Time:  s.Time,
			Name:  model.NameOrDefault(s.Name),
		})
	}
	out := make(map[string][]types.Entry, len(byGame))
	for game, results := range byGame {
		out[game] = model.Entries(ranking.Top(results, limit))
	}
	return out
}

// compareTop checks got against want on the ranking keys.
func compareTop(want []types.Entry, got []Entry) error {
	if len(got) != len(want) {
		return fmt.Errorf("got %d entries, want %d", len(got), len(want))
	}
	served := make([]types.Entry, len(got))
	for i, e := range got {
		served[i] = types.Entry{Moves: e.Moves, Time: e.Time, Name: e.Name}
	}
	if !ranking.IsRanked(served) {
		return fmt.Errorf("entries are not ordered by moves then time")
	}
	for i := range want {
		if served[i].Moves != want[i].Moves || served[i].Time != want[i].Time {
			return fmt.Errorf("entry %d is %d/%s, want %d/%s",
				i, served[i].Moves, served[i].Time, want[i].Moves, want[i].Time)
		}
	}
	return nil
}

// checkPartition reports entries whose name was generated for another game.
func checkPartition(game string, got []Entry) error {
	for i, e := range got {
		if e.Name != model.DefaultName && !strings.HasPrefix(e.Name, game+":") {
			return fmt.Errorf("entry %d (%q) belongs to another game", i, e.Name)
		}
	}
	return nil
}

// verifyAll fetches every game's leaderboard and compares it with the
// local expectation. It returns the number of games checked.
func verifyAll(ctx context.Context, cfg *Config, client *Client, subs []Submission) (int, []Mismatch, error) {
	want := expectedTop(subs, cfg.TopN)
	results := make(chan Mismatch, len(want))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.Workers)
	for game, entries := range want {
		g.Go(func() error {
			got, err := client.Top(gctx, game, cfg.TopN)
			if err != nil {
				results <- Mismatch{Game: game, Reason: err.Error()}
				return nil
			}
			if err := compareTop(entries, got); err != nil {
				results <- Mismatch{Game: game, Reason: err.Error()}
				return nil
			}
			if err := checkPartition(game, got); err != nil {
				results <- Mismatch{Game: game, Reason: err.Error()}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, nil, err
	}
	close(results)

	var mismatches []Mismatch
	for m := range results {
		logger.Get().Warn(ctx, "leaderboard mismatch", logger.String("game", m.Game), logger.String("reason", m.Reason))
		mismatches = append(mismatches, m)
	}
	return len(want), mismatches, ctx.Err()
}
