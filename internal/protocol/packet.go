// Package protocol defines the wire formats shared by the streaming client
// and server: reliable control packets, their acknowledgments, and the
// unreliable media data packets.
package protocol

// Command identifies a reliable control command.
type Command uint8

// Control command constants.
const (
	CmdPlay Command = 1 // start streaming: payload is "<filename> <udpPort>"
	CmdStop Command = 2 // stop the active stream: empty payload
)

// AckMarker is the reserved first byte of every control acknowledgment.
// It distinguishes acks from commands and from data packets on a socket
// that carries all three.
const AckMarker byte = 10

// FrameEndOfStream is the reserved frame id that marks end-of-stream.
// Packets carrying it have an empty payload.
const FrameEndOfStream uint32 = 0xFFFFFFFF

// Header sizes on the wire (network byte order).
const (
	// ControlHeaderSize is Cmd(1) + Seq(4) + PayloadLen(4).
	ControlHeaderSize = 9

	// AckSize is Marker(1) + AckedSeq(4); AckSizeWithTotal adds the
	// 4-byte total-frame count carried only by PLAY acknowledgments.
	AckSize          = 5
	AckSizeWithTotal = 9

	// DataHeaderSize is ConnID(4) + FrameID(4) + PTS(4) + PayloadLen(4) + Checksum(4).
	DataHeaderSize = 20
)

// ControlPacket is a reliable command sent from client to server.
type ControlPacket struct {
	Cmd     Command
	Seq     uint32 // strictly increasing per sender instance
	Payload []byte
}

// Ack acknowledges one control packet. TotalFrames is only meaningful when
// HasTotal is set, which the server does exclusively for accepted PLAY
// commands whose asset could be opened.
type Ack struct {
	Seq         uint32
	TotalFrames uint32
	HasTotal    bool
}

// DataPacket carries one compressed media frame over the unreliable path.
// Checksum covers the compressed payload bytes as transmitted.
type DataPacket struct {
	ConnID   uint32
	FrameID  uint32
	PTSms    uint32 // presentation timestamp, milliseconds from stream start
	Checksum uint32
	Payload  []byte // compressed frame bytes (empty for end-of-stream)
}

// EndOfStream reports whether the packet is the end-of-stream sentinel.
func (p *DataPacket) EndOfStream() bool {
	return p.FrameID == FrameEndOfStream
}
