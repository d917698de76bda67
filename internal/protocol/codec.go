package protocol

import (
	"encoding/binary"
	"fmt"
	"hash/crc32"
)

// EncodeControl serializes a ControlPacket for transmission.
func EncodeControl(pkt *ControlPacket) []byte {
	buf := make([]byte, ControlHeaderSize+len(pkt.Payload))
	buf[0] = byte(pkt.Cmd)
	binary.BigEndian.PutUint32(buf[1:5], pkt.Seq)
	binary.BigEndian.PutUint32(buf[5:9], uint32(len(pkt.Payload)))
	copy(buf[ControlHeaderSize:], pkt.Payload)
	return buf
}

// DecodeControl deserializes a ControlPacket, validating that the declared
// payload length matches the bytes actually present.
func DecodeControl(data []byte) (*ControlPacket, error) {
	if len(data) < ControlHeaderSize {
		return nil, fmt.Errorf("control packet too short: %d bytes (need at least %d)", len(data), ControlHeaderSize)
	}
	declared := binary.BigEndian.Uint32(data[5:9])
	if int(declared) != len(data)-ControlHeaderSize {
		return nil, fmt.Errorf("control payload length mismatch: declared %d, got %d", declared, len(data)-ControlHeaderSize)
	}
	pkt := &ControlPacket{
		Cmd: Command(data[0]),
		Seq: binary.BigEndian.Uint32(data[1:5]),
	}
	if declared > 0 {
		pkt.Payload = make([]byte, declared)
		copy(pkt.Payload, data[ControlHeaderSize:])
	}
	return pkt, nil
}

// EncodeAck serializes an Ack. The total-frame field is appended only when
// HasTotal is set.
func EncodeAck(ack *Ack) []byte {
	size := AckSize
	if ack.HasTotal {
		size = AckSizeWithTotal
	}
	buf := make([]byte, size)
	buf[0] = AckMarker
	binary.BigEndian.PutUint32(buf[1:5], ack.Seq)
	if ack.HasTotal {
		binary.BigEndian.PutUint32(buf[5:9], ack.TotalFrames)
	}
	return buf
}

// DecodeAck deserializes an Ack.
func DecodeAck(data []byte) (*Ack, error) {
	if len(data) < AckSize {
		return nil, fmt.Errorf("ack too short: %d bytes", len(data))
	}
	if data[0] != AckMarker {
		return nil, fmt.Errorf("not an ack: marker byte %d", data[0])
	}
	ack := &Ack{Seq: binary.BigEndian.Uint32(data[1:5])}
	if len(data) >= AckSizeWithTotal {
		ack.TotalFrames = binary.BigEndian.Uint32(data[5:9])
		ack.HasTotal = true
	}
	return ack, nil
}

// IsAck reports whether a raw datagram is a control acknowledgment. The
// marker byte is the discriminant; the size check only guards against a data
// packet whose connection id happens to start with the marker value (data
// packets are always at least DataHeaderSize bytes).
func IsAck(data []byte) bool {
	return len(data) >= AckSize && len(data) < DataHeaderSize && data[0] == AckMarker
}

// EncodeData serializes a DataPacket.
func EncodeData(pkt *DataPacket) []byte {
	buf := make([]byte, DataHeaderSize+len(pkt.Payload))
	binary.BigEndian.PutUint32(buf[0:4], pkt.ConnID)
	binary.BigEndian.PutUint32(buf[4:8], pkt.FrameID)
	binary.BigEndian.PutUint32(buf[8:12], pkt.PTSms)
	binary.BigEndian.PutUint32(buf[12:16], uint32(len(pkt.Payload)))
	binary.BigEndian.PutUint32(buf[16:20], pkt.Checksum)
	copy(buf[DataHeaderSize:], pkt.Payload)
	return buf
}

// DecodeData deserializes a DataPacket, validating the declared payload
// length against the bytes actually present. Checksum verification is the
// caller's job (see VerifyChecksum) so that mismatches can be counted as
// loss events rather than decode errors.
func DecodeData(data []byte) (*DataPacket, error) {
	if len(data) < DataHeaderSize {
		return nil, fmt.Errorf("data packet too short: %d bytes (need at least %d)", len(data), DataHeaderSize)
	}
	declared := binary.BigEndian.Uint32(data[12:16])
	if int(declared) != len(data)-DataHeaderSize {
		return nil, fmt.Errorf("data payload length mismatch: declared %d, got %d", declared, len(data)-DataHeaderSize)
	}
	pkt := &DataPacket{
		ConnID:   binary.BigEndian.Uint32(data[0:4]),
		FrameID:  binary.BigEndian.Uint32(data[4:8]),
		PTSms:    binary.BigEndian.Uint32(data[8:12]),
		Checksum: binary.BigEndian.Uint32(data[16:20]),
	}
	if declared > 0 {
		pkt.Payload = make([]byte, declared)
		copy(pkt.Payload, data[DataHeaderSize:])
	}
	return pkt, nil
}

// Checksum computes the CRC-32 (IEEE) of the given bytes. The sender runs it
// over the compressed payload; the receiver must verify over the compressed
// bytes as received, before decompression.
func Checksum(data []byte) uint32 {
	return crc32.ChecksumIEEE(data)
}

// VerifyChecksum reports whether the packet's checksum matches its payload.
func (p *DataPacket) VerifyChecksum() bool {
	return Checksum(p.Payload) == p.Checksum
}
