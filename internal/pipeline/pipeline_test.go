package pipeline

import (
	"context"
	"errors"
	"io"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"firestige.xyz/stackparse/internal/filter"
	"firestige.xyz/stackparse/internal/sink"
	"firestige.xyz/stackparse/pkg/dissect"
)

// mockSource replays packets, injecting errors at configured positions.
type mockSource struct {
	mu      sync.Mutex
	packets [][]byte
	errs    map[int]error
	pos     int
	block   bool
	drops   uint64
	closed  bool
}

func (m *mockSource) ReadPacketData() ([]byte, gopacket.CaptureInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err, ok := m.errs[m.pos]; ok {
		delete(m.errs, m.pos)
		return nil, gopacket.CaptureInfo{}, err
	}
	if m.pos >= len(m.packets) {
		if m.block {
			m.mu.Unlock()
			time.Sleep(time.Millisecond)
			m.mu.Lock()
			return nil, gopacket.CaptureInfo{}, errTimeout
		}
		return nil, gopacket.CaptureInfo{}, io.EOF
	}
	data := m.packets[m.pos]
	m.pos++
	return data, gopacket.CaptureInfo{
		Timestamp:     time.Unix(1700000000, int64(m.pos)),
		CaptureLength: len(data),
		Length:        len(data),
	}, nil
}

func (m *mockSource) LinkType() layers.LinkType { return layers.LinkTypeEthernet }
func (m *mockSource) Close() error              { m.closed = true; return nil }

type dropSource struct {
	*mockSource
}

func (d dropSource) Drops() (uint64, error) { return 42, nil }

type recordSink struct {
	records []sink.Record
	failAt  int
	closed  bool
}

func (s *recordSink) Write(rec *sink.Record) error {
	if s.failAt > 0 && len(s.records)+1 == s.failAt {
		return errors.New("sink full")
	}
	s.records = append(s.records, *rec)
	return nil
}

func (s *recordSink) Close() error { s.closed = true; return nil }

var errTimeout = errors.New("poll timeout")

func udpFrame(t *testing.T, proto layers.IPProtocol) []byte {
	t.Helper()
	buf := gopacket.NewSerializeBuffer()
	ls := []gopacket.SerializableLayer{
		&layers.Ethernet{
			SrcMAC:       net.HardwareAddr{0xAA, 0xBB, 0xCC, 0xDD, 0xEE, 0xFF},
			DstMAC:       net.HardwareAddr{0x00, 0x11, 0x22, 0x33, 0x44, 0x55},
			EthernetType: layers.EthernetTypeIPv4,
		},
		&layers.IPv4{Version: 4, IHL: 5, TTL: 64, Protocol: proto,
			SrcIP: net.IP{10, 0, 0, 1}, DstIP: net.IP{10, 0, 0, 2}},
	}
	if proto == layers.IPProtocolUDP {
		ls = append(ls, &layers.UDP{SrcPort: 5000, DstPort: 5001})
	}
	ls = append(ls, gopacket.Payload(make([]byte, 32)))
	require.NoError(t, gopacket.SerializeLayers(buf, gopacket.SerializeOptions{FixLengths: true}, ls...))
	return buf.Bytes()
}

func TestRunToEOF(t *testing.T) {
	src := &mockSource{packets: [][]byte{
		udpFrame(t, layers.IPProtocolUDP),
		udpFrame(t, layers.IPProtocolUDP),
		{0x01, 0x02, 0x03},
	}}
	out := &recordSink{}

	p := New(Config{Name: "test", Source: src, First: dissect.Ethernet, Sink: out})
	require.NoError(t, p.Run(context.Background()))

	require.Len(t, out.records, 3)
	assert.True(t, out.closed)

	first := out.records[0]
	assert.Equal(t, uint64(1), first.Seq)
	assert.Equal(t, 3, first.Summary.Depth())
	assert.Equal(t, dissect.UDP, first.Summary.Last())
	assert.Equal(t, 32, first.Summary.Unparsed)
	assert.Equal(t, len(src.packets[0]), first.CaptureLen)

	assert.Equal(t, 0, out.records[2].Summary.Depth())
	assert.Equal(t, 3, out.records[2].Summary.Unparsed)

	st := p.Stats()
	assert.Equal(t, uint64(3), st.Received)
	assert.Equal(t, uint64(3), st.Dissected)
	assert.Equal(t, uint64(3), st.Written)
	assert.Zero(t, st.Filtered)
}

func TestRunHeadersMode(t *testing.T) {
	frame := udpFrame(t, layers.IPProtocolUDP)
	src := &mockSource{packets: [][]byte{frame[:40]}}
	out := &recordSink{}

	p := New(Config{Name: "test", Source: src, First: dissect.Ethernet, Mode: dissect.ModeHeaders, Sink: out})
	require.NoError(t, p.Run(context.Background()))

	require.Len(t, out.records, 1)
	assert.Equal(t, dissect.IPv4, out.records[0].Summary.Last())
}

func TestRunFilter(t *testing.T) {
	f, err := filter.Compile("udp", dissect.Ethernet)
	require.NoError(t, err)

	src := &mockSource{packets: [][]byte{
		udpFrame(t, layers.IPProtocolUDP),
		udpFrame(t, layers.IPProtocolSCTP),
		udpFrame(t, layers.IPProtocolUDP),
	}}
	out := &recordSink{}

	p := New(Config{Name: "test", Source: src, First: dissect.Ethernet, Filter: f, Sink: out})
	require.NoError(t, p.Run(context.Background()))

	require.Len(t, out.records, 2)
	assert.Equal(t, uint64(1), out.records[0].Seq)
	assert.Equal(t, uint64(3), out.records[1].Seq)
	assert.Equal(t, uint64(1), p.Stats().Filtered)
}

func TestRunLimit(t *testing.T) {
	frame := udpFrame(t, layers.IPProtocolUDP)
	src := &mockSource{packets: [][]byte{frame, frame, frame, frame, frame}}
	out := &recordSink{}

	p := New(Config{Name: "test", Source: src, First: dissect.Ethernet, Sink: out, Limit: 2})
	require.NoError(t, p.Run(context.Background()))

	assert.Len(t, out.records, 2)
	assert.Equal(t, uint64(2), p.Stats().Dissected)
}

func TestRunReadError(t *testing.T) {
	frame := udpFrame(t, layers.IPProtocolUDP)
	boom := errors.New("device gone")
	src := &mockSource{packets: [][]byte{frame, frame}, errs: map[int]error{1: boom}}
	out := &recordSink{}

	p := New(Config{Name: "test", Source: src, First: dissect.Ethernet, Sink: out})
	err := p.Run(context.Background())
	require.ErrorIs(t, err, boom)

	assert.Len(t, out.records, 1)
	assert.Equal(t, uint64(1), p.Stats().ReadErrors)
}

func TestRunRetryableError(t *testing.T) {
	frame := udpFrame(t, layers.IPProtocolUDP)
	src := &mockSource{packets: [][]byte{frame, frame}, errs: map[int]error{1: errTimeout}}
	out := &recordSink{}

	p := New(Config{
		Name:      "test",
		Source:    src,
		First:     dissect.Ethernet,
		Sink:      out,
		Retryable: func(err error) bool { return errors.Is(err, errTimeout) },
	})
	require.NoError(t, p.Run(context.Background()))
	assert.Len(t, out.records, 2)
	assert.Zero(t, p.Stats().ReadErrors)
}

func TestRunSinkError(t *testing.T) {
	frame := udpFrame(t, layers.IPProtocolUDP)
	src := &mockSource{packets: [][]byte{frame, frame, frame}}
	out := &recordSink{failAt: 2}

	p := New(Config{Name: "test", Source: src, First: dissect.Ethernet, Sink: out})
	err := p.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sink full")
	assert.Equal(t, uint64(1), p.Stats().WriteErrors)
	assert.True(t, out.closed)
}

func TestRunCancel(t *testing.T) {
	src := &mockSource{block: true}
	p := New(Config{
		Name:         "live",
		Source:       dropSource{src},
		First:        dissect.Ethernet,
		Retryable:    func(err error) bool { return errors.Is(err, errTimeout) },
		DropInterval: 10 * time.Millisecond,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	require.NoError(t, p.Run(ctx))
	assert.Equal(t, uint64(42), p.Stats().Drops)
}

func TestRunWithoutSource(t *testing.T) {
	assert.Error(t, New(Config{}).Run(context.Background()))
}
