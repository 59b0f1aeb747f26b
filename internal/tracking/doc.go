// Package tracking supplies hand, head and body poses to the session.
//
// Sources produce Samples one at a time: a deterministic synthetic reach
// generator, newline-delimited JSON over any io.Reader (files, serial
// trackers via go.bug.st/serial), and UDP payloads replayed from packet
// captures with gopacket.
package tracking
