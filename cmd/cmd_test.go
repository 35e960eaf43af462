package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"firestige.xyz/stackparse/internal/config"
	"firestige.xyz/stackparse/internal/filter"
	"firestige.xyz/stackparse/internal/sink"
	"firestige.xyz/stackparse/pkg/dissect"
)

func testFrame(t *testing.T, vlan bool, proto layers.IPProtocol) []byte {
	t.Helper()
	eth := &layers.Ethernet{
		SrcMAC:       net.HardwareAddr{0xAA, 0xBB, 0xCC, 0xDD, 0xEE, 0xFF},
		DstMAC:       net.HardwareAddr{0x00, 0x11, 0x22, 0x33, 0x44, 0x55},
		EthernetType: layers.EthernetTypeIPv4,
	}
	ls := []gopacket.SerializableLayer{eth}
	if vlan {
		eth.EthernetType = layers.EthernetTypeDot1Q
		ls = append(ls, &layers.Dot1Q{VLANIdentifier: 100, Type: layers.EthernetTypeIPv4})
	}
	ls = append(ls, &layers.IPv4{Version: 4, IHL: 5, TTL: 64, Protocol: proto,
		SrcIP: net.IP{10, 0, 0, 1}, DstIP: net.IP{10, 0, 0, 2}})
	if proto == layers.IPProtocolUDP {
		ls = append(ls, &layers.UDP{SrcPort: 5000, DstPort: 5001})
	}
	ls = append(ls, gopacket.Payload(make([]byte, 40)))

	buf := gopacket.NewSerializeBuffer()
	require.NoError(t, gopacket.SerializeLayers(buf, gopacket.SerializeOptions{FixLengths: true}, ls...))
	return buf.Bytes()
}

func writeTestPcap(t *testing.T, lt layers.LinkType, packets ...[]byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "trace.pcap")
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	w := pcapgo.NewWriter(f)
	require.NoError(t, w.WriteFileHeader(65535, lt))
	for i, p := range packets {
		ci := gopacket.CaptureInfo{Timestamp: time.Unix(1700000000+int64(i), 0), CaptureLength: len(p), Length: len(p)}
		require.NoError(t, w.WritePacket(ci, p))
	}
	return path
}

func defaultDissect(t *testing.T) config.DissectConfig {
	t.Helper()
	c, err := config.Load("")
	require.NoError(t, err)
	return c.Dissect
}

func TestRunDissectJSON(t *testing.T) {
	path := writeTestPcap(t, layers.LinkTypeEthernet,
		testFrame(t, false, layers.IPProtocolUDP),
		testFrame(t, true, layers.IPProtocolUDP),
	)

	var buf bytes.Buffer
	o := &dissectOptions{format: "json"}
	require.NoError(t, runDissect(context.Background(), defaultDissect(t), path, o, &buf))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)

	var rec sink.Record
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &rec))
	require.Equal(t, 4, rec.Summary.Depth())
	assert.Equal(t, dissect.VLAN, rec.Summary.Layers[1].Protocol)
	assert.Equal(t, dissect.UDP, rec.Summary.Last())
	assert.Equal(t, 40, rec.Summary.Unparsed)
}

func TestRunDissectFilterAndCount(t *testing.T) {
	path := writeTestPcap(t, layers.LinkTypeEthernet,
		testFrame(t, false, layers.IPProtocolGRE),
		testFrame(t, false, layers.IPProtocolUDP),
		testFrame(t, false, layers.IPProtocolUDP),
	)

	var buf bytes.Buffer
	o := &dissectOptions{format: "text", filter: "udp", filterSet: true, count: 1}
	require.NoError(t, runDissect(context.Background(), defaultDissect(t), path, o, &buf))

	out := buf.String()
	assert.Equal(t, 1, strings.Count(out, "#"))
	assert.Contains(t, out, "#2 ")
	assert.Contains(t, out, "udp")
}

func TestRunDissectRawIPv4(t *testing.T) {
	frame := testFrame(t, false, layers.IPProtocolUDP)
	path := writeTestPcap(t, layers.LinkTypeRaw, frame[14:])

	var buf bytes.Buffer
	o := &dissectOptions{format: "yaml"}
	require.NoError(t, runDissect(context.Background(), defaultDissect(t), path, o, &buf))
	assert.Contains(t, buf.String(), "protocol: ipv4")
	assert.NotContains(t, buf.String(), "protocol: ethernet")
}

func TestRunDissectErrors(t *testing.T) {
	dc := defaultDissect(t)
	path := writeTestPcap(t, layers.LinkTypeEthernet, testFrame(t, false, layers.IPProtocolUDP))

	err := runDissect(context.Background(), dc, filepath.Join(t.TempDir(), "missing.pcap"), &dissectOptions{}, &bytes.Buffer{})
	assert.Error(t, err)

	err = runDissect(context.Background(), dc, path, &dissectOptions{format: "xml"}, &bytes.Buffer{})
	assert.ErrorIs(t, err, sink.ErrUnknownFormat)

	err = runDissect(context.Background(), dc, path, &dissectOptions{filter: "port 53", filterSet: true}, &bytes.Buffer{})
	assert.Error(t, err)
}

func TestRunStats(t *testing.T) {
	path := writeTestPcap(t, layers.LinkTypeEthernet,
		testFrame(t, false, layers.IPProtocolUDP),
		testFrame(t, true, layers.IPProtocolUDP),
		testFrame(t, false, layers.IPProtocolGRE),
	)

	var buf bytes.Buffer
	o := &dissectOptions{filter: "ip", filterSet: true}
	require.NoError(t, runStats(context.Background(), defaultDissect(t), path, o, &buf))

	out := buf.String()
	assert.Contains(t, out, "packets")
	assert.Contains(t, out, "filtered out 1 of 3 packets")
	assert.Contains(t, out, "ipv4")
}

func TestResolve(t *testing.T) {
	dc := config.DissectConfig{First: dissect.Ethernet, Mode: dissect.ModeFull}

	first, mode, f, err := (&dissectOptions{}).resolve(dc, layers.LinkTypeRaw)
	require.NoError(t, err)
	assert.Equal(t, dissect.IPv4, first)
	assert.Equal(t, dissect.ModeFull, mode)
	assert.True(t, f.Empty())

	o := &dissectOptions{first: dissect.VLAN, firstSet: true, headersOnly: true, filter: "udp", filterSet: true}
	first, mode, f, err = o.resolve(dc, layers.LinkTypeEthernet)
	require.NoError(t, err)
	assert.Equal(t, dissect.VLAN, first)
	assert.Equal(t, dissect.ModeHeaders, mode)
	assert.False(t, f.Empty())

	dc.First = dissect.UDP
	first, _, _, err = (&dissectOptions{}).resolve(dc, layers.LinkTypeLinuxSLL)
	require.NoError(t, err)
	assert.Equal(t, dissect.UDP, first)

	_, _, _, err = (&dissectOptions{first: dissect.End, firstSet: true}).resolve(dc, layers.LinkTypeEthernet)
	assert.Error(t, err)
}

func TestRunValidate(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, runValidate("", &buf))
	assert.Contains(t, buf.String(), "VALID: (defaults)")

	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(`
stackparse:
  dissect:
    filter: "port 80"
`), 0644))
	assert.Error(t, runValidate(path, &bytes.Buffer{}))
}

func TestRunValidateFilterWithTransportFirst(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(`
stackparse:
  dissect:
    first: udp
    filter: "udp and host 10.0.0.1"
`), 0644))

	var buf bytes.Buffer
	require.NoError(t, runValidate(path, &buf))
	assert.Contains(t, buf.String(), "first=udp")

	c, err := config.Load(path)
	require.NoError(t, err)
	pcap := writeTestPcap(t, layers.LinkTypeEthernet, testFrame(t, false, layers.IPProtocolUDP))
	assert.NoError(t, runDissect(context.Background(), c.Dissect, pcap, &dissectOptions{format: "text"}, &bytes.Buffer{}))
}

func TestRunDissectYAMLNoMatches(t *testing.T) {
	path := writeTestPcap(t, layers.LinkTypeEthernet, testFrame(t, false, layers.IPProtocolUDP))

	var buf bytes.Buffer
	o := &dissectOptions{format: "yaml", filter: "sctp", filterSet: true}
	require.NoError(t, runDissect(context.Background(), defaultDissect(t), path, o, &buf))
	assert.Empty(t, buf.String())
}

func TestSplitFilter(t *testing.T) {
	f, err := filter.Compile("udp", dissect.Ethernet)
	require.NoError(t, err)
	kernel, userspace := splitFilter(f)
	assert.Equal(t, f.RawInstructions(), kernel)
	assert.Nil(t, userspace)

	f, err = filter.Compile("vlan and udp", dissect.Ethernet)
	require.NoError(t, err)
	kernel, userspace = splitFilter(f)
	assert.Nil(t, kernel)
	assert.Same(t, f, userspace)

	f, err = filter.Compile("", dissect.Ethernet)
	require.NoError(t, err)
	kernel, userspace = splitFilter(f)
	assert.Nil(t, kernel)
	assert.Nil(t, userspace)
}

func TestFirstFlagUsage(t *testing.T) {
	fl := dissectCmd.Flags().Lookup("first")
	require.NotNil(t, fl)
	assert.Empty(t, fl.DefValue)
	assert.NotContains(t, dissectCmd.Flags().FlagUsages(), "(default end)")
}

func TestRootDissectCommand(t *testing.T) {
	path := writeTestPcap(t, layers.LinkTypeEthernet, testFrame(t, false, layers.IPProtocolUDP))

	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	rootCmd.SetArgs([]string{"dissect", "-r", path, "-o", "json", "--log-level", "error"})
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetArgs(nil)
	})

	require.NoError(t, rootCmd.ExecuteContext(context.Background()))
	assert.Contains(t, buf.String(), `"protocol":"udp"`)
}
