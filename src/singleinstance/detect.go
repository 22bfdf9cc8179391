package singleinstance

import (
	"bufio"
	"context"
	"net"
	"strconv"
	"time"

	"desk-bridge/src/config"
)

const (
	detectTimeout = 300 * time.Millisecond
	invokeTimeout = 2 * time.Second
)

// DetectResidentPort reports the port of the resident answering PING, if any.
func DetectResidentPort(ctx context.Context) (int, bool) {
	_, port, ok := findResident(ctx, attemptTimeout(ctx, detectTimeout))
	return port, ok
}

// findResident walks the configured port range and returns the first
// loopback address whose listener answers PING with PONG.
func findResident(ctx context.Context, timeout time.Duration) (string, int, bool) {
	start, end := config.PortRange()
	for port := start; port <= end; port++ {
		if ctx.Err() != nil {
			return "", 0, false
		}
		addr := net.JoinHostPort(residentHost, strconv.Itoa(port))
		if ping(ctx, addr, timeout) {
			return addr, port, true
		}
	}
	return "", 0, false
}

// attemptTimeout bounds one port attempt by limit and the time left on ctx.
func attemptTimeout(ctx context.Context, limit time.Duration) time.Duration {
	if dl, ok := ctx.Deadline(); ok {
		if d := time.Until(dl); d > 0 && d < limit {
			return d
		}
	}
	return limit
}

func dial(ctx context.Context, addr string, timeout time.Duration) (net.Conn, error) {
	d := net.Dialer{Timeout: timeout}
	return d.DialContext(ctx, "tcp", addr)
}

func ping(ctx context.Context, addr string, timeout time.Duration) bool {
	conn, err := dial(ctx, addr, timeout)
	if err != nil {
		return false
	}
	defer conn.Close()
	_ = conn.SetDeadline(time.Now().Add(timeout))
	if _, err := conn.Write([]byte(pingRequest)); err != nil {
		return false
	}
	resp, err := bufio.NewReader(conn).ReadString('\n')
	return err == nil && resp == pongResponse
}
