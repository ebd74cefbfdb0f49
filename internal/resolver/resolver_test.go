package resolver

import (
	"context"
	"fmt"
	"net"
	"net/netip"
	"sync/atomic"
	"testing"
	"time"

	"github.com/miekg/dns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/artofscripting/networkvector/internal/errors"
	"github.com/artofscripting/networkvector/internal/logging"
	"github.com/artofscripting/networkvector/internal/metrics/mocks"
)

// startDNS serves PTR answers from records on a loopback UDP port and returns
// its address and a query counter.
func startDNS(t *testing.T, records map[string]string) (string, *atomic.Int64) {
	t.Helper()

	var queries atomic.Int64
	handler := dns.HandlerFunc(func(w dns.ResponseWriter, req *dns.Msg) {
		queries.Add(1)
		m := new(dns.Msg)
		m.SetReply(req)
		q := req.Question[0]
		if name, ok := records[q.Name]; ok && q.Qtype == dns.TypePTR {
			m.Answer = append(m.Answer, &dns.PTR{
				Hdr: dns.RR_Header{Name: q.Name, Rrtype: dns.TypePTR, Class: dns.ClassINET, Ttl: 60},
				Ptr: name,
			})
		} else {
			m.Rcode = dns.RcodeNameError
		}
		_ = w.WriteMsg(m)
	})

	pc, err := net.ListenPacket("udp", "127.0.0.1:0")
	require.NoError(t, err)

	started := make(chan struct{})
	srv := &dns.Server{PacketConn: pc, Handler: handler, NotifyStartedFunc: func() { close(started) }}
	go func() { _ = srv.ActivateAndServe() }()
	t.Cleanup(func() { _ = srv.Shutdown() })

	select {
	case <-started:
	case <-time.After(5 * time.Second):
		t.Fatal("dns server did not start")
	}
	return pc.LocalAddr().String(), &queries
}

func TestResolver_PTR(t *testing.T) {
	server, queries := startDNS(t, map[string]string{
		"10.0.0.10.in-addr.arpa.": "fileserver.lab.",
	})
	r := New(Config{Servers: []string{server}, Timeout: time.Second}, WithLogger(logging.NewDiscard()))

	name, err := r.LookupHostname(context.Background(), netip.MustParseAddr("10.0.0.10"))
	require.NoError(t, err)
	assert.Equal(t, "fileserver.lab", name)

	// Second lookup is served from the cache.
	name, err = r.LookupHostname(context.Background(), netip.MustParseAddr("10.0.0.10"))
	require.NoError(t, err)
	assert.Equal(t, "fileserver.lab", name)
	assert.Equal(t, int64(1), queries.Load())
}

func TestResolver_NXDomain(t *testing.T) {
	server, queries := startDNS(t, nil)
	r := New(Config{Servers: []string{server}}, WithLogger(logging.NewDiscard()))

	addr := netip.MustParseAddr("10.0.0.99")
	name, err := r.LookupHostname(context.Background(), addr)
	assert.Empty(t, name)
	assert.True(t, errors.IsCode(err, errors.CodeResolveFailed))

	_, err = r.LookupHostname(context.Background(), addr)
	assert.Error(t, err)
	assert.Equal(t, int64(1), queries.Load())
	assert.Equal(t, 1, r.CacheSize())
}

func TestResolver_PlatformFallback(t *testing.T) {
	r := New(Config{}, WithLogger(logging.NewDiscard()),
		WithLookupAddr(func(_ context.Context, addr string) ([]string, error) {
			if addr == "192.168.1.5" {
				return []string{"printer.home."}, nil
			}
			return nil, fmt.Errorf("lookup %s: no such host", addr)
		}))
	r.servers = nil

	name, err := r.LookupHostname(context.Background(), netip.MustParseAddr("192.168.1.5"))
	require.NoError(t, err)
	assert.Equal(t, "printer.home", name)

	_, err = r.LookupHostname(context.Background(), netip.MustParseAddr("192.168.1.6"))
	assert.True(t, errors.IsCode(err, errors.CodeResolveFailed))
}

func TestResolver_Metrics(t *testing.T) {
	ctrl := gomock.NewController(t)
	rec := mocks.NewMockRecorder(ctrl)
	rec.EXPECT().IncrementResolverLookups("success").Times(1)
	rec.EXPECT().IncrementResolverLookups("cached").Times(1)

	server, _ := startDNS(t, map[string]string{"1.1.168.192.in-addr.arpa.": "gw.lan."})
	r := New(Config{Servers: []string{server}}, WithLogger(logging.NewDiscard()), WithRecorder(rec))

	for range 2 {
		_, err := r.LookupHostname(context.Background(), netip.MustParseAddr("192.168.1.1"))
		require.NoError(t, err)
	}
}

func TestResolver_IPv6(t *testing.T) {
	arpa, err := dns.ReverseAddr("fd00::1")
	require.NoError(t, err)
	server, _ := startDNS(t, map[string]string{arpa: "v6host.lab."})

	r := New(Config{Servers: []string{server}}, WithLogger(logging.NewDiscard()))
	name, err := r.LookupHostname(context.Background(), netip.MustParseAddr("fd00::1"))
	require.NoError(t, err)
	assert.Equal(t, "v6host.lab", name)
}
