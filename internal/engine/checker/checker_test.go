package checker

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	mu   sync.Mutex
	seen [][]string
}

func (r *recorder) worker(diag func(u Unit) *Diagnostic) Worker {
	return WorkerFunc(func(ctx context.Context, req Request) ([]Diagnostic, error) {
		var names []string
		var out []Diagnostic
		for _, u := range req.Units {
			names = append(names, u.Name)
			if d := diag(u); d != nil {
				out = append(out, *d)
			}
		}
		r.mu.Lock()
		r.seen = append(r.seen, names)
		r.mu.Unlock()
		return out, nil
	})
}

func TestPool_AssignIsStable(t *testing.T) {
	p := NewPool(WorkerFunc(nil), WorkerFunc(nil), WorkerFunc(nil))
	for _, name := range []string{"a.ns", "b.ns", "lib/c.ns"} {
		i := p.Assign(name)
		assert.GreaterOrEqual(t, i, 0)
		assert.Less(t, i, 3)
		assert.Equal(t, i, p.Assign(name))
	}
	assert.Equal(t, -1, NewPool().Assign("a.ns"))
}

func TestPool_CheckFansOutAndMerges(t *testing.T) {
	rec := &recorder{}
	diag := func(u Unit) *Diagnostic {
		if !strings.Contains(u.Text, "bad") {
			return nil
		}
		return &Diagnostic{FileName: u.Name, Line: 2, Column: 1, Code: 2304, Reason: "Cannot find name 'bad'."}
	}
	p := NewPool(rec.worker(diag), rec.worker(diag))

	units := []Unit{
		{Name: "z.ns", Text: "bad"},
		{Name: "a.ns", Text: "bad"},
		{Name: "m.ns", Text: "good"},
	}
	diags, err := p.Check(context.Background(), Unit{Name: "defs.d.ts"}, units)
	require.NoError(t, err)
	require.Len(t, diags, 2)
	assert.Equal(t, "a.ns", diags[0].FileName)
	assert.Equal(t, "z.ns", diags[1].FileName)

	total := 0
	for _, names := range rec.seen {
		assert.Equal(t, "defs.d.ts", names[0])
		total += len(names) - 1
	}
	assert.Equal(t, 3, total)
}

func TestPool_CheckReturnsWorkerError(t *testing.T) {
	boom := errors.New("boom")
	p := NewPool(WorkerFunc(func(ctx context.Context, req Request) ([]Diagnostic, error) {
		return nil, boom
	}))
	_, err := p.Check(context.Background(), Unit{}, []Unit{{Name: "a.ns"}})
	assert.ErrorIs(t, err, boom)
}

func TestProcessWorker(t *testing.T) {
	w, err := NewProcessWorker(os.Args[0], []string{"-test.run=TestHelperProcess"}, []string{"NILSCRIPT_CHECKER_HELPER=1"})
	require.NoError(t, err)
	defer w.Close()

	for i := uint64(1); i <= 2; i++ {
		diags, err := w.Check(context.Background(), Request{ID: i, Units: []Unit{
			{Name: "defs.d.ts"},
			{Name: "a.ns", Text: "let x = bad;"},
			{Name: "b.ns", Text: "let y = 1;"},
		}})
		require.NoError(t, err)
		require.Len(t, diags, 1)
		assert.Equal(t, "a.ns", diags[0].FileName)
		assert.Equal(t, 2304, diags[0].Code)
	}

	require.NoError(t, w.Close())
	_, err = w.Check(context.Background(), Request{ID: 3})
	assert.Error(t, err)
}

// TestHelperProcess is the fake checker spawned by TestProcessWorker.
func TestHelperProcess(t *testing.T) {
	if os.Getenv("NILSCRIPT_CHECKER_HELPER") != "1" {
		return
	}
	dec := json.NewDecoder(os.Stdin)
	enc := json.NewEncoder(os.Stdout)
	for {
		var req Request
		if err := dec.Decode(&req); err != nil {
			os.Exit(0)
		}
		resp := response{ID: req.ID}
		for _, u := range req.Units {
			if strings.Contains(u.Text, "bad") {
				resp.Diagnostics = append(resp.Diagnostics, Diagnostic{FileName: u.Name, Line: 1, Column: 9, Code: 2304, Reason: "Cannot find name 'bad'."})
			}
		}
		if err := enc.Encode(resp); err != nil {
			os.Exit(1)
		}
	}
}
