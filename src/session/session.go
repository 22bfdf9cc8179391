// Package session runs one command and delivers its result to a target.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"desk-bridge/src/errkind"
	"desk-bridge/src/singleinstance"
)

// RunFunc executes a command. It should return promptly once ctx is done.
type RunFunc func(ctx context.Context) (any, error)

type ResultTarget interface {
	OnSuccess(result any) error
	OnFailure(err error) error
}

type Options struct {
	// Deadline bounds Run. Zero means no deadline.
	Deadline time.Duration
	Run      RunFunc
	Target   ResultTarget
}

// Execute runs opts.Run and reports the outcome to opts.Target.
func Execute(ctx context.Context, opts Options) (any, error) {
	if opts.Run == nil {
		return nil, errors.New("Run is required")
	}
	if opts.Target == nil {
		return nil, errors.New("Target is required")
	}

	if opts.Deadline > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Deadline)
		defer cancel()
	}

	result, err := runWithContext(ctx, opts.Run)
	if err != nil {
		_ = opts.Target.OnFailure(err)
		return nil, err
	}
	if err := opts.Target.OnSuccess(result); err != nil {
		_ = opts.Target.OnFailure(err)
		return nil, err
	}
	return result, nil
}

func runWithContext(ctx context.Context, run RunFunc) (any, error) {
	resCh := make(chan struct {
		result any
		err    error
	}, 1)

	go func() {
		result, err := run(ctx)
		resCh <- struct {
			result any
			err    error
		}{result: result, err: err}
	}()

	select {
	case r := <-resCh:
		return r.result, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// StdoutTarget prints strings as-is and everything else as indented JSON.
// A nil result prints nothing.
type StdoutTarget struct {
	Writer io.Writer
}

func (t StdoutTarget) OnSuccess(result any) error {
	w := t.Writer
	if w == nil {
		w = os.Stdout
	}
	return WriteResult(w, result)
}

func (t StdoutTarget) OnFailure(err error) error {
	return nil
}

// WriteResult renders result the way StdoutTarget does.
func WriteResult(w io.Writer, result any) error {
	switch v := result.(type) {
	case nil:
		return nil
	case string:
		_, err := fmt.Fprintln(w, v)
		return err
	case json.RawMessage:
		if len(v) == 0 || string(v) == "null" {
			return nil
		}
		var s string
		if json.Unmarshal(v, &s) == nil {
			_, err := fmt.Fprintln(w, s)
			return err
		}
		var decoded any
		if err := json.Unmarshal(v, &decoded); err != nil {
			return err
		}
		return WriteResult(w, decoded)
	default:
		b, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(w, string(b))
		return err
	}
}

// DelegatedTarget answers a client connected over the single-instance channel.
type DelegatedTarget struct {
	Conn singleinstance.Conn
}

func (t DelegatedTarget) OnSuccess(result any) error {
	if t.Conn == nil {
		return errors.New("delegated target missing connection")
	}
	return t.Conn.RespondSuccess(result)
}

func (t DelegatedTarget) OnFailure(err error) error {
	if t.Conn == nil {
		return nil
	}
	if err == nil {
		return t.Conn.RespondError(errkind.KindUnknown, "unknown session error")
	}
	kind := errkind.Of(err)
	if errors.Is(err, context.DeadlineExceeded) {
		kind = errkind.KindPlatform
	}
	return t.Conn.RespondError(kind, err.Error())
}
