package wire

import (
	"bytes"
	"context"

	"github.com/scmem/scmem/pkg/sctype"
)

// dispatch runs hdr's command against s.ctx and returns the response header
// plus body bytes to write after it. shutdown is invoked for CmdShutdown.
func (s *Server) dispatch(hdr RequestHeader, params *bytes.Reader, shutdown context.CancelFunc) (ResponseHeader, []byte, error) {
	switch hdr.Cmd {
	case CmdCheckElement:
		return s.cmdCheckElement(hdr, params)
	case CmdGetElementType:
		return s.cmdGetElementType(hdr, params)
	case CmdEraseElement:
		return s.cmdEraseElement(hdr, params)
	case CmdCreateNode:
		return s.cmdCreateNode(hdr, params)
	case CmdCreateLink:
		return s.cmdCreateLink(hdr)
	case CmdCreateArc:
		return s.cmdCreateArc(hdr, params)
	case CmdGetLinkContent:
		return s.cmdGetLinkContent(hdr, params)
	case CmdFindLinks:
		return s.cmdFindLinks(hdr, params)
	case CmdFindElementBySysIdtf:
		return s.cmdFindElementBySysIdtf(hdr, params)
	case CmdShutdown:
		shutdown()
		return ResponseHeader{Cmd: hdr.Cmd, ID: hdr.ID, Result: ResultOK}, nil, nil
	default:
		return ResponseHeader{Cmd: hdr.Cmd, ID: hdr.ID, Result: ResultFail}, nil, ErrUnknownCmd{Cmd: hdr.Cmd}
	}
}

func fail(hdr RequestHeader) ResponseHeader {
	return ResponseHeader{Cmd: hdr.Cmd, ID: hdr.ID, Result: ResultFail}
}

func ok(hdr RequestHeader, size uint32) ResponseHeader {
	return ResponseHeader{Cmd: hdr.Cmd, ID: hdr.ID, Result: ResultOK, ResultSize: size}
}

func (s *Server) cmdCheckElement(hdr RequestHeader, p *bytes.Reader) (ResponseHeader, []byte, error) {
	addr, err := ReadAddr(p)
	if err != nil {
		return fail(hdr), nil, err
	}
	if !s.ctx.IsElement(addr) {
		return fail(hdr), nil, nil
	}
	return ok(hdr, 0), nil, nil
}

func (s *Server) cmdGetElementType(hdr RequestHeader, p *bytes.Reader) (ResponseHeader, []byte, error) {
	addr, err := ReadAddr(p)
	if err != nil {
		return fail(hdr), nil, err
	}
	typ, err := s.ctx.GetType(addr)
	if err != nil {
		return fail(hdr), nil, err
	}
	var buf bytes.Buffer
	WriteUint16(&buf, uint16(typ))
	return ok(hdr, 2), buf.Bytes(), nil
}

func (s *Server) cmdEraseElement(hdr RequestHeader, p *bytes.Reader) (ResponseHeader, []byte, error) {
	addr, err := ReadAddr(p)
	if err != nil {
		return fail(hdr), nil, err
	}
	if err := s.ctx.Erase(addr); err != nil {
		return fail(hdr), nil, err
	}
	return ok(hdr, 0), nil, nil
}

func (s *Server) cmdCreateNode(hdr RequestHeader, p *bytes.Reader) (ResponseHeader, []byte, error) {
	typRaw, err := ReadUint16(p)
	if err != nil {
		return fail(hdr), nil, err
	}
	addr, err := s.ctx.CreateNode(sctype.Type(typRaw))
	if err != nil {
		return fail(hdr), nil, err
	}
	var buf bytes.Buffer
	WriteAddr(&buf, addr)
	return ok(hdr, 4), buf.Bytes(), nil
}

func (s *Server) cmdCreateLink(hdr RequestHeader) (ResponseHeader, []byte, error) {
	addr, err := s.ctx.CreateLink(sctype.LinkConst)
	if err != nil {
		return fail(hdr), nil, err
	}
	var buf bytes.Buffer
	WriteAddr(&buf, addr)
	return ok(hdr, 4), buf.Bytes(), nil
}

func (s *Server) cmdCreateArc(hdr RequestHeader, p *bytes.Reader) (ResponseHeader, []byte, error) {
	typRaw, err := ReadUint16(p)
	if err != nil {
		return fail(hdr), nil, err
	}
	src, err := ReadAddr(p)
	if err != nil {
		return fail(hdr), nil, err
	}
	tgt, err := ReadAddr(p)
	if err != nil {
		return fail(hdr), nil, err
	}
	addr, err := s.ctx.CreateConnector(sctype.Type(typRaw), src, tgt)
	if err != nil {
		return fail(hdr), nil, err
	}
	var buf bytes.Buffer
	WriteAddr(&buf, addr)
	return ok(hdr, 4), buf.Bytes(), nil
}

func (s *Server) cmdGetLinkContent(hdr RequestHeader, p *bytes.Reader) (ResponseHeader, []byte, error) {
	addr, err := ReadAddr(p)
	if err != nil {
		return fail(hdr), nil, err
	}
	content, err := s.ctx.GetLinkContent(addr)
	if err != nil {
		return fail(hdr), nil, err
	}
	return ok(hdr, uint32(len(content))), content, nil
}

func (s *Server) cmdFindLinks(hdr RequestHeader, p *bytes.Reader) (ResponseHeader, []byte, error) {
	n, err := ReadUint32(p)
	if err != nil {
		return fail(hdr), nil, err
	}
	content := make([]byte, n)
	if _, err := p.Read(content); err != nil {
		return fail(hdr), nil, err
	}
	addrs := s.ctx.FindLinksByExactContent(content)

	var buf bytes.Buffer
	WriteUint32(&buf, uint32(len(addrs)))
	for _, a := range addrs {
		WriteAddr(&buf, a)
	}
	return ok(hdr, uint32(buf.Len())), buf.Bytes(), nil
}

func (s *Server) cmdFindElementBySysIdtf(hdr RequestHeader, p *bytes.Reader) (ResponseHeader, []byte, error) {
	n, err := ReadUint32(p)
	if err != nil {
		return fail(hdr), nil, err
	}
	text := make([]byte, n)
	if _, err := p.Read(text); err != nil {
		return fail(hdr), nil, err
	}
	addr, err := s.ctx.ResolveSystemIdentifier(string(text))
	if err != nil {
		return fail(hdr), nil, err
	}
	var buf bytes.Buffer
	WriteAddr(&buf, addr)
	return ok(hdr, 4), buf.Bytes(), nil
}
