// Package checker fans generated typecheck units out to external type
// checking workers and merges their diagnostics.
package checker

import (
	"context"
	"sort"
	"sync"

	"github.com/cespare/xxhash/v2"
	"golang.org/x/sync/errgroup"

	"nilscript/internal/shared/observability"
)

// Unit is one text unit handed to a checker.
type Unit struct {
	Name string `json:"name"`
	Text string `json:"text"`
}

type Request struct {
	ID    uint64 `json:"id"`
	Units []Unit `json:"units"`
}

type Diagnostic struct {
	FileName string `json:"fileName"`
	Line     int    `json:"line"`
	Column   int    `json:"column"`
	Code     int    `json:"code"`
	Reason   string `json:"reason"`
}

type Worker interface {
	Check(ctx context.Context, req Request) ([]Diagnostic, error)
	Close() error
}

// WorkerFunc adapts a function to Worker.
type WorkerFunc func(ctx context.Context, req Request) ([]Diagnostic, error)

func (f WorkerFunc) Check(ctx context.Context, req Request) ([]Diagnostic, error) {
	return f(ctx, req)
}

func (f WorkerFunc) Close() error { return nil }

// Pool assigns every unit to a fixed worker by hashing its name, so a file
// keeps hitting the same worker's incremental state across compiles.
type Pool struct {
	workers []Worker

	mu     sync.Mutex
	nextID uint64
}

func NewPool(workers ...Worker) *Pool {
	return &Pool{workers: workers}
}

func (p *Pool) Len() int {
	return len(p.workers)
}

// Assign returns the worker index for a unit name.
func (p *Pool) Assign(name string) int {
	if len(p.workers) == 0 {
		return -1
	}
	return int(xxhash.Sum64String(name) % uint64(len(p.workers)))
}

// Check sends defs plus each worker's share of units and waits for every
// worker. Diagnostics are sorted by file, line and column.
func (p *Pool) Check(ctx context.Context, defs Unit, units []Unit) ([]Diagnostic, error) {
	if len(p.workers) == 0 || len(units) == 0 {
		return nil, nil
	}
	shares := make([][]Unit, len(p.workers))
	for _, u := range units {
		i := p.Assign(u.Name)
		shares[i] = append(shares[i], u)
	}

	results := make([][]Diagnostic, len(p.workers))
	g, gctx := errgroup.WithContext(ctx)
	for i, share := range shares {
		if len(share) == 0 {
			continue
		}
		i, req := i, Request{ID: p.requestID(), Units: append([]Unit{defs}, share...)}
		g.Go(func() error {
			diags, err := p.workers[i].Check(gctx, req)
			if err != nil {
				observability.CheckerRequestsTotal.WithLabelValues("error").Inc()
				return err
			}
			observability.CheckerRequestsTotal.WithLabelValues("ok").Inc()
			results[i] = diags
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var out []Diagnostic
	for _, diags := range results {
		out = append(out, diags...)
	}
	sort.SliceStable(out, func(a, b int) bool {
		x, y := out[a], out[b]
		if x.FileName != y.FileName {
			return x.FileName < y.FileName
		}
		if x.Line != y.Line {
			return x.Line < y.Line
		}
		return x.Column < y.Column
	})
	return out, nil
}

func (p *Pool) requestID() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.nextID++
	return p.nextID
}

// Close shuts every worker down and returns the first error.
func (p *Pool) Close() error {
	var first error
	for _, w := range p.workers {
		if err := w.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
