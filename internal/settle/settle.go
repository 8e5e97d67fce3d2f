// Package settle fans a finished match out to every human participant.
package settle

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"os"
	"runtime"
	"sort"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/MJE43/econ-engine/internal/errs"
	"github.com/MJE43/econ-engine/internal/gate"
	"github.com/MJE43/econ-engine/internal/reward"
)

// Executor runs one command for one player.
type Executor interface {
	Execute(ctx context.Context, playerID string, cmd gate.Command) (gate.Result, error)
}

// Status of one participant's settlement.
type Status string

const (
	StatusSettled Status = "settled"
	StatusSkipped Status = "skipped" // already settled earlier
	StatusFailed  Status = "failed"
)

// Outcome is one participant's settlement.
type Outcome struct {
	PlayerID string        `json:"player_id"`
	Status   Status        `json:"status"`
	Version  uint64        `json:"version,omitempty"`
	Rewards  []reward.Item `json:"rewards,omitempty"`
	Kind     errs.Kind     `json:"error_kind,omitempty"`
	Error    string        `json:"error,omitempty"`
}

// Report summarizes a settlement.
type Report struct {
	MatchID  string        `json:"match_id"`
	Settled  int64         `json:"settled"`
	Failed   int64         `json:"failed"`
	Outcomes []Outcome     `json:"outcomes"`
	Duration time.Duration `json:"duration"`
}

// Settler applies a match result to each participant through the gate.
type Settler struct {
	exec    Executor
	workers int
	logger  *log.Logger
}

// New creates a settler. workers <= 0 uses GOMAXPROCS.
func New(exec Executor, workers int, logger *log.Logger) *Settler {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if logger == nil {
		logger = log.New(os.Stdout, "[SETTLE] ", log.LstdFlags)
	}
	return &Settler{exec: exec, workers: workers, logger: logger}
}

// Settle runs apply_match_result for every non-bot participant in parallel.
// A failure for one player does not stop the others; it is reported in that
// player's Outcome.
func (s *Settler) Settle(ctx context.Context, m reward.MatchResult) (Report, error) {
	if len(m.Players) == 0 {
		return Report{}, errs.E(errs.KindEmptyInput, "settle.Settle", "match has no players")
	}
	if m.MatchID == "" {
		return Report{}, errs.E(errs.KindInvalidPayload, "settle.Settle", "match_id is required")
	}
	payload, err := json.Marshal(struct {
		Match reward.MatchResult `json:"match"`
	}{m})
	if err != nil {
		return Report{}, errs.Wrap(errs.KindInternal, "settle.Settle", err)
	}
	cmd := gate.Command{Type: "apply_match_result", Payload: payload}

	start := time.Now()
	jobs := make(chan string, s.workers*2)
	results := make(chan Outcome, len(m.Players))
	var settled, failed int64

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer close(jobs)
		for _, p := range m.Players {
			if p.IsBot || p.PlayerID == "" {
				continue
			}
			select {
			case jobs <- p.PlayerID:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		return nil
	})

	for i := 0; i < s.workers; i++ {
		g.Go(func() error {
			for id := range jobs {
				out := s.settleOne(ctx, id, cmd)
				switch out.Status {
				case StatusFailed:
					atomic.AddInt64(&failed, 1)
				default:
					atomic.AddInt64(&settled, 1)
				}
				results <- out
			}
			return nil
		})
	}

	err = g.Wait()
	close(results)

	rep := Report{MatchID: m.MatchID, Settled: settled, Failed: failed, Duration: time.Since(start)}
	for out := range results {
		rep.Outcomes = append(rep.Outcomes, out)
	}
	sort.Slice(rep.Outcomes, func(i, j int) bool { return rep.Outcomes[i].PlayerID < rep.Outcomes[j].PlayerID })

	s.logger.Printf("match settled match=%s players=%d settled=%d failed=%d duration=%v",
		m.MatchID, len(rep.Outcomes), rep.Settled, rep.Failed, rep.Duration)
	return rep, err
}

func (s *Settler) settleOne(ctx context.Context, playerID string, cmd gate.Command) Outcome {
	res, err := s.exec.Execute(ctx, playerID, cmd)
	switch {
	case err == nil:
		out := Outcome{PlayerID: playerID, Status: StatusSettled, Version: res.Version}
		if r, ok := res.Output.(reward.Result); ok {
			out.Rewards = r.Items
		}
		return out
	case errors.Is(err, errs.ErrAlreadyExists):
		return Outcome{PlayerID: playerID, Status: StatusSkipped}
	default:
		s.logger.Printf("settlement failed player=%s err=%v", playerID, err)
		return Outcome{PlayerID: playerID, Status: StatusFailed, Kind: errs.KindOf(err), Error: err.Error()}
	}
}
