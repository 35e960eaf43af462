// Package file reads packets from pcap and pcapng capture files.
package file

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"
)

// pcapng files start with a Section Header Block.
var ngMagic = []byte{0x0A, 0x0D, 0x0D, 0x0A}

type packetReader interface {
	ReadPacketData() ([]byte, gopacket.CaptureInfo, error)
	LinkType() layers.LinkType
}

// Source reads one capture file in either format.
type Source struct {
	path   string
	f      *os.File
	reader packetReader
}

// Open opens a capture file, detecting pcap or pcapng from its header.
func Open(path string) (*Source, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open capture file %s: %w", path, err)
	}
	r, err := NewReader(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to read capture file %s: %w", path, err)
	}
	r.path, r.f = path, f
	return r, nil
}

// NewReader reads a capture from r. Closing the returned Source does not
// close r.
func NewReader(r io.Reader) (*Source, error) {
	br := bufio.NewReader(r)
	magic, err := br.Peek(len(ngMagic))
	if err != nil {
		return nil, fmt.Errorf("failed to read capture header: %w", err)
	}

	var pr packetReader
	if bytes.Equal(magic, ngMagic) {
		pr, err = pcapgo.NewNgReader(br, pcapgo.DefaultNgReaderOptions)
	} else {
		pr, err = pcapgo.NewReader(br)
	}
	if err != nil {
		return nil, err
	}
	return &Source{reader: pr}, nil
}

// ReadPacketData returns the next packet, or io.EOF at the end of the file.
func (s *Source) ReadPacketData() ([]byte, gopacket.CaptureInfo, error) {
	if s.reader == nil {
		return nil, gopacket.CaptureInfo{}, fmt.Errorf("file source %s is closed", s.path)
	}
	data, ci, err := s.reader.ReadPacketData()
	if err != nil {
		if err == io.EOF {
			return nil, gopacket.CaptureInfo{}, io.EOF
		}
		return nil, gopacket.CaptureInfo{}, fmt.Errorf("failed to read packet: %w", err)
	}
	return data, ci, nil
}

// LinkType returns the link type recorded in the file header.
func (s *Source) LinkType() layers.LinkType {
	if s.reader == nil {
		return layers.LinkTypeEthernet
	}
	return s.reader.LinkType()
}

// Path returns the file path, empty for NewReader sources.
func (s *Source) Path() string { return s.path }

// Close releases the file.
func (s *Source) Close() error {
	s.reader = nil
	if s.f != nil {
		err := s.f.Close()
		s.f = nil
		return err
	}
	return nil
}
