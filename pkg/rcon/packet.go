package rcon

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
)

// Source-engine remote console framing: a 4-byte little-endian size prefix
// covering the rest of the frame, a 4-byte request id, a 4-byte type code,
// the null-terminated body and one trailing null byte.
const (
	packetTypeAuth         = 3
	packetTypeAuthResponse = 2
	packetTypeExecCommand  = 2
	packetTypeResponse     = 0

	// id + type + two terminating nulls
	packetOverhead = 10

	// Upper bound on a single frame body; anything larger is a protocol
	// violation or a desynchronized stream.
	maxPacketSize = 4096
)

type packet struct {
	ID   int32
	Type int32
	Body string
}

func writePacket(w io.Writer, p packet) error {
	size := int32(packetOverhead + len(p.Body))
	buf := bytes.NewBuffer(make([]byte, 0, 4+size))

	binary.Write(buf, binary.LittleEndian, size)
	binary.Write(buf, binary.LittleEndian, p.ID)
	binary.Write(buf, binary.LittleEndian, p.Type)
	buf.WriteString(p.Body)
	buf.Write([]byte{0, 0})

	_, err := w.Write(buf.Bytes())
	return err
}

func readPacket(r io.Reader) (packet, error) {
	var size int32
	if err := binary.Read(r, binary.LittleEndian, &size); err != nil {
		return packet{}, err
	}
	if size < packetOverhead || size > maxPacketSize {
		return packet{}, fmt.Errorf("invalid packet size %d", size)
	}

	payload := make([]byte, size)
	if _, err := io.ReadFull(r, payload); err != nil {
		return packet{}, err
	}

	p := packet{
		ID:   int32(binary.LittleEndian.Uint32(payload[0:4])),
		Type: int32(binary.LittleEndian.Uint32(payload[4:8])),
	}
	// Strip the body terminator and the trailing null.
	body := payload[8:]
	body = bytes.TrimRight(body, "\x00")
	p.Body = string(body)
	return p, nil
}
