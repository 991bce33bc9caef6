package pisa

import (
	"encoding/binary"
	"io"
)

// Command tag bytes. First byte of a command body, following the u64 sequence number.
const (
	cmdEvalCode  byte = 0x01
	cmdStoreExpr byte = 0x04
	cmdApply     byte = 0x07
	cmdRemove    byte = 0x08
)

// Reply tag bytes, following the u64 sequence number that echoes the request.
const (
	replyOK   byte = 0x01
	replyFail byte = 0x02
)

// putU32 writes a big-endian 32-bit length. Used only for string lengths, per the wire format.
func putU32(w io.Writer, v uint32) error {
	var buf [4]byte
	binary.BigEndian.PutUint32(buf[:], v)
	_, err := w.Write(buf[:])
	return err
}

func getU32(r io.Reader) (uint32, error) {
	var buf [4]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(buf[:]), nil
}

// putU64 writes a big-endian 64-bit integer. Used for list lengths, object ids, Int payloads and
// sequence numbers.
func putU64(w io.Writer, v uint64) error {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], v)
	_, err := w.Write(buf[:])
	return err
}

func getU64(r io.Reader) (uint64, error) {
	var buf [8]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint64(buf[:]), nil
}

func putByte(w io.Writer, b byte) error {
	_, err := w.Write([]byte{b})
	return err
}

func getByte(r io.Reader) (byte, error) {
	var buf [1]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, err
	}
	return buf[0], nil
}

// putString writes a u32 length prefix followed by the raw bytes.
func putString(w io.Writer, s string) error {
	if err := putU32(w, uint32(len(s))); err != nil {
		return err
	}
	_, err := io.WriteString(w, s)
	return err
}

func getString(r io.Reader) (string, error) {
	n, err := getU32(r)
	if err != nil {
		return "", err
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", err
	}
	return string(buf), nil
}

// writeRequestHeader writes the u64 sequence number and u8 command tag shared by every outbound
// frame.
func writeRequestHeader(w io.Writer, seq uint64, cmd byte) error {
	if err := putU64(w, seq); err != nil {
		return err
	}
	return putByte(w, cmd)
}

// readReplyHeader reads the u64 sequence number and u8 status tag shared by every inbound frame.
func readReplyHeader(r io.Reader) (seq uint64, status byte, err error) {
	if seq, err = getU64(r); err != nil {
		return 0, 0, err
	}
	if status, err = getByte(r); err != nil {
		return 0, 0, err
	}
	return seq, status, nil
}
