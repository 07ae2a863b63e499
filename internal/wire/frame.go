// Package wire implements the binary framed request/response protocol:
// little-endian headers over a reliable byte stream, adapting raw bytes to
// [memctx.Context] calls. The header layout and command set follow the
// C++ sctp server, scaled to a single embeddable Go TCP server.
package wire

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/scmem/scmem/internal/store"
)

// Cmd identifies a wire-protocol command.
type Cmd uint8

const (
	CmdCheckElement Cmd = iota + 1
	CmdGetElementType
	CmdEraseElement
	CmdCreateNode
	CmdCreateLink
	CmdCreateArc
	CmdGetLinkContent
	CmdFindLinks
	CmdFindElementBySysIdtf
	CmdShutdown
)

func (c Cmd) String() string {
	switch c {
	case CmdCheckElement:
		return "check_element"
	case CmdGetElementType:
		return "get_element_type"
	case CmdEraseElement:
		return "erase_element"
	case CmdCreateNode:
		return "create_node"
	case CmdCreateLink:
		return "create_link"
	case CmdCreateArc:
		return "create_arc"
	case CmdGetLinkContent:
		return "get_link_content"
	case CmdFindLinks:
		return "find_links"
	case CmdFindElementBySysIdtf:
		return "find_element_by_sysidtf"
	case CmdShutdown:
		return "shutdown"
	default:
		return "unknown"
	}
}

// Result is the outcome byte in a response header.
type Result uint8

const (
	ResultOK   Result = 0
	ResultFail Result = 1
)

// requestHeaderSize is cmd:u8 + flags:u8 + id:u32 + param_size:u32 = 10
// bytes, matching the sctp server's cmdHeaderSize() (2*sizeof(quint8) +
// 2*sizeof(quint32)).
const requestHeaderSize = 1 + 1 + 4 + 4

// responseHeaderSize is cmd:u8 + id:u32 + result:u8 + result_size:u32 = 10
// bytes.
const responseHeaderSize = 1 + 4 + 1 + 4

// RequestHeader is the fixed-size prefix of every request frame.
type RequestHeader struct {
	Cmd       Cmd
	Flags     uint8
	ID        uint32
	ParamSize uint32
}

// ReadRequestHeader decodes a [RequestHeader] from r.
func ReadRequestHeader(r io.Reader) (RequestHeader, error) {
	var buf [requestHeaderSize]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return RequestHeader{}, err
	}
	return RequestHeader{
		Cmd:       Cmd(buf[0]),
		Flags:     buf[1],
		ID:        binary.LittleEndian.Uint32(buf[2:6]),
		ParamSize: binary.LittleEndian.Uint32(buf[6:10]),
	}, nil
}

// WriteRequestHeader encodes h to w. The server never calls this; it is
// the client half of the framing, used by remote callers and tests.
func WriteRequestHeader(w io.Writer, h RequestHeader) error {
	var buf [requestHeaderSize]byte
	buf[0] = byte(h.Cmd)
	buf[1] = h.Flags
	binary.LittleEndian.PutUint32(buf[2:6], h.ID)
	binary.LittleEndian.PutUint32(buf[6:10], h.ParamSize)
	_, err := w.Write(buf[:])
	return err
}

// ResponseHeader is the fixed-size prefix of every response frame.
type ResponseHeader struct {
	Cmd        Cmd
	ID         uint32
	Result     Result
	ResultSize uint32
}

// WriteResponseHeader encodes h to w.
func WriteResponseHeader(w io.Writer, h ResponseHeader) error {
	var buf [responseHeaderSize]byte
	buf[0] = byte(h.Cmd)
	binary.LittleEndian.PutUint32(buf[1:5], h.ID)
	buf[5] = byte(h.Result)
	binary.LittleEndian.PutUint32(buf[6:10], h.ResultSize)
	_, err := w.Write(buf[:])
	return err
}

// ReadResponseHeader decodes a [ResponseHeader] from r, the client half of
// [WriteResponseHeader].
func ReadResponseHeader(r io.Reader) (ResponseHeader, error) {
	var buf [responseHeaderSize]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return ResponseHeader{}, err
	}
	return ResponseHeader{
		Cmd:        Cmd(buf[0]),
		ID:         binary.LittleEndian.Uint32(buf[1:5]),
		Result:     Result(buf[5]),
		ResultSize: binary.LittleEndian.Uint32(buf[6:10]),
	}, nil
}

// ReadAddr decodes a store.Addr from the wire's segment:u16, offset:u16
// layout.
func ReadAddr(r io.Reader) (store.Addr, error) {
	var buf [4]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return store.Addr{}, err
	}
	return store.Addr{
		Seg: binary.LittleEndian.Uint16(buf[0:2]),
		Off: binary.LittleEndian.Uint16(buf[2:4]),
	}, nil
}

// WriteAddr encodes a store.Addr to w.
func WriteAddr(w io.Writer, a store.Addr) error {
	var buf [4]byte
	binary.LittleEndian.PutUint16(buf[0:2], a.Seg)
	binary.LittleEndian.PutUint16(buf[2:4], a.Off)
	_, err := w.Write(buf[:])
	return err
}

// ReadUint16/ReadUint32 decode little-endian integers, used for type:u16 and
// the count/length fields FIND_LINKS and its kin carry.
func ReadUint16(r io.Reader) (uint16, error) {
	var buf [2]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(buf[:]), nil
}

func ReadUint32(r io.Reader) (uint32, error) {
	var buf [4]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(buf[:]), nil
}

func WriteUint16(w io.Writer, v uint16) error {
	var buf [2]byte
	binary.LittleEndian.PutUint16(buf[:], v)
	_, err := w.Write(buf[:])
	return err
}

func WriteUint32(w io.Writer, v uint32) error {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], v)
	_, err := w.Write(buf[:])
	return err
}

// ErrUnknownCmd is returned when a request header's command byte does not
// match any [Cmd] (mirrors SCTP_ERROR_UNKNOWN_CMD).
type ErrUnknownCmd struct{ Cmd Cmd }

func (e ErrUnknownCmd) Error() string { return fmt.Sprintf("wire: unknown command %d", e.Cmd) }
