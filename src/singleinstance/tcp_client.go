package singleinstance

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"

	"desk-bridge/src/errkind"
)

type tcpClient struct{}

func newTcpClient() Client { return &tcpClient{} }

func (c *tcpClient) Invoke(ctx context.Context, req Request) (bool, json.RawMessage, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return false, nil, fmt.Errorf("encode request: %w", err)
	}

	timeout := attemptTimeout(ctx, invokeTimeout)
	addr, _, ok := findResident(ctx, timeout)
	if !ok {
		return false, nil, nil
	}
	conn, err := dial(ctx, addr, timeout)
	if err != nil {
		// The resident answered PING but is gone now; run standalone.
		return false, nil, nil
	}
	defer conn.Close()
	result, err := exchange(ctx, conn, payload)
	return true, result, err
}

func exchange(ctx context.Context, conn net.Conn, payload []byte) (json.RawMessage, error) {
	if dl, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(dl)
	}
	w := bufio.NewWriter(conn)
	if _, err := w.Write(append(payload, '\n')); err != nil {
		return nil, err
	}
	if err := w.Flush(); err != nil {
		return nil, err
	}

	br := bufio.NewReader(conn)
	status, err := br.ReadString('\n')
	if err != nil {
		return nil, err
	}
	switch status {
	case successStatus:
		b, err := io.ReadAll(br)
		if err != nil {
			return nil, err
		}
		return json.RawMessage(strings.TrimSpace(string(b))), nil
	case errorStatus:
		kind, _ := br.ReadString('\n')
		msg, _ := io.ReadAll(br)
		return nil, remoteError(strings.TrimSpace(kind), string(msg))
	default:
		return nil, fmt.Errorf("unexpected resident response %q", status)
	}
}

// remoteError rebuilds an error that errkind.Of classifies like the original.
func remoteError(kind, msg string) error {
	if sentinel := errkind.FromKind(kind); sentinel != nil {
		if strings.HasPrefix(msg, sentinel.Error()) {
			return fmt.Errorf("%w%s", sentinel, strings.TrimPrefix(msg, sentinel.Error()))
		}
		return fmt.Errorf("%w: %s", sentinel, msg)
	}
	return errors.New(msg)
}
