package loadtest

import (
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"
)

const (
	maxMoves   = 200
	maxSeconds = 60 * 60
)

var names = []string{"Ann", "Bob", "Chen", "Dana", "Emeka", "Farah", ""}

// Generate builds cfg.NumResults submissions spread round-robin over
// cfg.Games games. The same seed yields the same scores and names.
func Generate(cfg *Config) []Submission {
	seed := cfg.Seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))

	games := make([]string, cfg.Games)
	for i := range games {
		games[i] = fmt.Sprintf("%s-%d", cfg.GamePrefix, i)
	}

	out := make([]Submission, cfg.NumResults)
	for i := range out {
		out[i] = Submission{
			Moves:     rng.IntN(maxMoves),
			Time:      clock(rng.IntN(maxSeconds)),
			Game:      games[i%len(games)],
			Name:      playerName(games[i%len(games)], names[rng.IntN(len(names))]),
			RequestID: uuid.NewString(),
		}
	}
	return out
}

// playerName tags a name with its game so a leaked entry is recognisable
// on another game's board. Blank names stay blank.
func playerName(game, name string) string {
	if name == "" {
		return ""
	}
	return game + ":" + name
}

// clock formats seconds as HH:MM:SS, the form the server stores.
func clock(seconds int) string {
	return fmt.Sprintf("%02d:%02d:%02d", seconds/3600, seconds/60%60, seconds%60)
}

// pickReplays returns the submissions to resend, evenly spaced.
func pickReplays(subs []Submission, ratio float64) []Submission {
	n := int(float64(len(subs)) * ratio)
	if n == 0 {
		return nil
	}
	step := len(subs) / n
	out := make([]Submission, 0, n)
	for i := 0; i < len(subs) && len(out) < n; i += step {
		out = append(out, subs[i])
	}
	return out
}
