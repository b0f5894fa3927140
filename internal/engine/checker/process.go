package checker

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"

	"nilscript/internal/core/errors"
)

type response struct {
	ID          uint64       `json:"id"`
	Diagnostics []Diagnostic `json:"diagnostics"`
	Error       string       `json:"error,omitempty"`
}

// ProcessWorker talks to a long-lived child process over stdio, one JSON
// request per line and one JSON response per line.
type ProcessWorker struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	writer *bufio.Writer
	enc    *json.Encoder
	dec    *json.Decoder

	mu     sync.Mutex
	closed bool
}

func NewProcessWorker(command string, args []string, env []string) (*ProcessWorker, error) {
	cmd := exec.Command(command, args...)
	cmd.Env = append(os.Environ(), env...)
	cmd.Stderr = os.Stderr

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeInternal, "checker stdin")
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeInternal, "checker stdout")
	}
	if err := cmd.Start(); err != nil {
		return nil, errors.AddContext(errors.Wrap(err, errors.CodeNotFound, "start checker"), errors.CtxPath, command)
	}

	writer := bufio.NewWriter(stdin)
	return &ProcessWorker{
		cmd:    cmd,
		stdin:  stdin,
		writer: writer,
		enc:    json.NewEncoder(writer),
		dec:    json.NewDecoder(bufio.NewReader(stdout)),
	}, nil
}

func (w *ProcessWorker) Check(ctx context.Context, req Request) ([]Diagnostic, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil, errors.New(errors.CodeInternal, "checker worker is closed")
	}

	if err := w.enc.Encode(req); err != nil {
		return nil, errors.Wrap(err, errors.CodeInternal, "send checker request")
	}
	if err := w.writer.Flush(); err != nil {
		return nil, errors.Wrap(err, errors.CodeInternal, "send checker request")
	}

	var resp response
	if err := w.dec.Decode(&resp); err != nil {
		return nil, errors.Wrap(err, errors.CodeInternal, "read checker response")
	}
	if resp.ID != req.ID {
		return nil, errors.New(errors.CodeConflict, fmt.Sprintf("checker answered request %d, want %d", resp.ID, req.ID))
	}
	if resp.Error != "" {
		return nil, errors.New(errors.CodeInternal, "checker: "+resp.Error)
	}
	return resp.Diagnostics, nil
}

func (w *ProcessWorker) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil
	}
	w.closed = true
	_ = w.stdin.Close()
	return w.cmd.Wait()
}
