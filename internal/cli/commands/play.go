package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/leapstack-labs/starfleet/internal/cli/output"
	"github.com/leapstack-labs/starfleet/internal/game"
	"github.com/leapstack-labs/starfleet/internal/scenario"
	"github.com/leapstack-labs/starfleet/internal/state"
	"golang.org/x/sync/errgroup"
)

// PlayOptions holds the options shared by demo and run.
type PlayOptions struct {
	Events   bool
	NoRecord bool
}

// printer serialises output from games played concurrently.
type printer struct {
	mu     sync.Mutex
	r      *output.Renderer
	prefix bool
}

func (p *printer) result(res *scenario.Result) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := renderResult(p.r, res); err != nil {
		p.r.Error(fmt.Sprintf("failed to render %s: %v", res.Scenario, err))
	}
}

func (p *printer) failure(name string, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.r.Error(fmt.Sprintf("%s: %v", name, err))
}

// OnEvent prints e as it happens: a CloudEvents line in JSON mode and the
// event log line otherwise.
func (p *printer) OnEvent(_ context.Context, e game.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.r.EffectiveMode() == output.ModeJSON {
		return writeCloudEvent(p.r, e)
	}
	line := e.String()
	if p.prefix {
		line = shortID(e.GameID) + " " + line
	}
	p.r.Println(p.r.Muted(line))
	return nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[len(id)-8:]
	}
	return id
}

// session plays scenarios with the observers and hooks selected by
// PlayOptions.
type session struct {
	runner  *scenario.Runner
	printer *printer
	logger  *slog.Logger
	cleanup func()
}

func (c *CommandContext) newSession(opts PlayOptions, concurrent bool) (*session, error) {
	p := &printer{r: c.Renderer, prefix: concurrent}
	runner := &scenario.Runner{Logger: c.Logger}
	s := &session{runner: runner, printer: p, logger: c.Logger, cleanup: func() {}}

	if !opts.NoRecord {
		store, cleanup, err := c.OpenStore()
		if err != nil {
			return nil, err
		}
		recorder := state.NewBatchRecorder(store, c.Logger)
		runner.Observers = append(runner.Observers, recorder)
		runner.Hooks = recorder.Hooks()
		s.cleanup = cleanup
	}
	if opts.Events {
		runner.Observers = append(runner.Observers, p)
	}
	return s, nil
}

// play runs one scenario and prints its result.
func (s *session) play(ctx context.Context, sc *scenario.Scenario) error {
	res, err := s.runner.Play(ctx, sc)
	if res != nil {
		s.printer.result(res)
	}
	if err != nil {
		return fmt.Errorf("%s: %w", sc.Name, err)
	}
	return nil
}

// playAll runs scenarios concurrently, at most limit at a time. The first
// failure cancels the games still running.
func (s *session) playAll(ctx context.Context, scenarios []*scenario.Scenario, limit int) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(limit, 1))
	for _, sc := range scenarios {
		g.Go(func() error {
			return s.play(gctx, sc)
		})
	}
	return g.Wait()
}

// openScenarios resolves every reference before anything is played.
func openScenarios(refs []string, dir string) ([]*scenario.Scenario, error) {
	var (
		out  []*scenario.Scenario
		errs []error
	)
	for _, ref := range refs {
		sc, err := scenario.Open(ref, dir)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		out = append(out, sc)
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return out, nil
}

// watchable returns the file sources of scenarios; builtins cannot change.
func watchable(scenarios []*scenario.Scenario) []string {
	var paths []string
	for _, sc := range scenarios {
		if sc.Source == "" || strings.HasPrefix(sc.Source, scenario.BuiltinPrefix) {
			continue
		}
		paths = append(paths, sc.Source)
	}
	return paths
}
