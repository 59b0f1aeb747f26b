package tracking

import (
	"fmt"
	"io"
	"os"

	"github.com/banshee-data/handwarp/internal/monitoring"
	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"
)

// ReadPCAP decodes the tracking samples carried as UDP payloads to udpPort
// in a capture file. Each payload holds one or more newline-delimited JSON
// samples. Packets to other ports and undecodable payload lines are skipped.
func ReadPCAP(path string, udpPort int) ([]Sample, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open PCAP file %s: %w", path, err)
	}
	defer f.Close()
	return DecodePCAP(f, udpPort)
}

// DecodePCAP is ReadPCAP over an already open capture stream.
func DecodePCAP(r io.Reader, udpPort int) ([]Sample, error) {
	reader, err := pcapgo.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read PCAP header: %w", err)
	}

	var (
		samples []Sample
		packets int
		skipped int
	)
	packetSource := gopacket.NewPacketSource(reader, reader.LinkType())
	for packet := range packetSource.Packets() {
		packets++

		udpLayer := packet.Layer(layers.LayerTypeUDP)
		if udpLayer == nil {
			continue
		}
		udp, ok := udpLayer.(*layers.UDP)
		if !ok || int(udp.DstPort) != udpPort || len(udp.Payload) == 0 {
			continue
		}

		for _, line := range splitLines(udp.Payload) {
			smp, err := DecodeSample(line)
			if err != nil {
				skipped++
				continue
			}
			if smp.Time.IsZero() {
				smp.Time = packet.Metadata().Timestamp.UTC()
			}
			samples = append(samples, smp)
		}
	}

	if skipped > 0 {
		monitoring.Warnf("tracking: skipped %d undecodable samples in %d packets", skipped, packets)
	}
	return samples, nil
}

func splitLines(b []byte) [][]byte {
	var out [][]byte
	start := 0
	for i, c := range b {
		if c == '\n' {
			if i > start {
				out = append(out, b[start:i])
			}
			start = i + 1
		}
	}
	if start < len(b) {
		out = append(out, b[start:])
	}
	return out
}
