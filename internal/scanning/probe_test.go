package scanning

import (
	"context"
	"fmt"
	"net"
	"net/netip"
	"os"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/artofscripting/networkvector/internal/errors"
	"github.com/artofscripting/networkvector/internal/logging"
)

// listenLocal opens a listener on a free loopback port that accepts and
// immediately closes connections.
func listenLocal(t *testing.T) uint16 {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = ln.Close() })

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			_ = conn.Close()
		}
	}()
	return uint16(ln.Addr().(*net.TCPAddr).Port)
}

// closedLocalPort returns a loopback port with nothing listening on it.
func closedLocalPort(t *testing.T) uint16 {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := uint16(ln.Addr().(*net.TCPAddr).Port)
	require.NoError(t, ln.Close())
	return port
}

func TestTCPProber_Probe(t *testing.T) {
	loopback := netip.MustParseAddr("127.0.0.1")
	prober := NewTCPProber(time.Second, logging.NewDiscard())

	t.Run("open port", func(t *testing.T) {
		port := listenLocal(t)
		res := prober.Probe(context.Background(), loopback, port)

		assert.Equal(t, port, res.Port)
		assert.Equal(t, StateOpen, res.State)
		assert.Greater(t, res.Latency, time.Duration(0))
	})

	t.Run("closed port", func(t *testing.T) {
		port := closedLocalPort(t)
		res := prober.Probe(context.Background(), loopback, port)

		assert.Equal(t, StateClosed, res.State)
		assert.Zero(t, res.Latency)
	})

	t.Run("service name filled", func(t *testing.T) {
		port := closedLocalPort(t)
		res := prober.Probe(context.Background(), loopback, port)
		assert.NotEmpty(t, res.Service)
	})
}

func TestNewTCPProber_Defaults(t *testing.T) {
	p := NewTCPProber(0, nil)
	assert.Equal(t, DefaultTimeout, p.Timeout)
}

func TestClassify(t *testing.T) {
	opErr := func(errno syscall.Errno) error {
		return &net.OpError{Op: "dial", Net: "tcp", Err: os.NewSyscallError("connect", errno)}
	}

	tests := []struct {
		name string
		err  error
		want errors.ErrorCode
	}{
		{"refused", opErr(syscall.ECONNREFUSED), errors.CodePortClosed},
		{"too many open files", opErr(syscall.EMFILE), errors.CodeResourceExhausted},
		{"file table overflow", opErr(syscall.ENFILE), errors.CodeResourceExhausted},
		{"no buffer space", opErr(syscall.ENOBUFS), errors.CodeResourceExhausted},
		{"host unreachable", opErr(syscall.EHOSTUNREACH), errors.CodeHostUnreachable},
		{"network unreachable", opErr(syscall.ENETUNREACH), errors.CodeNetworkUnreachable},
		{"deadline", fmt.Errorf("dial: %w", os.ErrDeadlineExceeded), errors.CodeTimeout},
		{"context deadline", context.DeadlineExceeded, errors.CodeTimeout},
		{"canceled", context.Canceled, errors.CodeCanceled},
		{"refused by message", fmt.Errorf("connectex: No connection could be made because the target machine actively refused it"), errors.CodePortClosed},
		{"other", fmt.Errorf("something odd"), errors.CodeScanFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, classify(tt.err))
		})
	}
}

func TestProbeError(t *testing.T) {
	cause := fmt.Errorf("i/o timeout")

	tests := []struct {
		code      errors.ErrorCode
		message   string
		transient bool
	}{
		{errors.CodeTimeout, "Scan operation timed out", true},
		{errors.CodeHostUnreachable, "Host is unreachable", false},
		{errors.CodeNetworkUnreachable, "Probe failed", true},
		{errors.CodeResourceExhausted, "Probe failed", true},
		{errors.CodeScanFailed, "Probe failed", false},
	}

	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			err := probeError(tt.code, "10.0.0.1:445", cause)
			assert.Equal(t, tt.code, err.Code)
			assert.Equal(t, tt.message, err.Message)
			assert.Equal(t, "10.0.0.1:445", err.Target)
			assert.Equal(t, "probe", err.Operation)
			assert.ErrorIs(t, err, cause)
			assert.Equal(t, tt.transient, errors.IsRetryable(err))
		})
	}
}

func TestPortState(t *testing.T) {
	for _, s := range []PortState{StateOpen, StateClosed, StateFiltered} {
		b, err := s.MarshalText()
		require.NoError(t, err)

		var back PortState
		require.NoError(t, back.UnmarshalText(b))
		assert.Equal(t, s, back)
	}

	var s PortState
	assert.Error(t, s.UnmarshalText([]byte("half-open")))
	assert.True(t, StateOpen.IsOpen())
	assert.False(t, StateFiltered.IsOpen())
}
