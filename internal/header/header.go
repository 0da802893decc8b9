package header

import (
	"fmt"
	"strconv"
	"strings"

	"mterelay/internal/domain"
)

const (
	// Name is the relay metadata header.
	Name = "x-mte-relay"
	// EncodedHeadersName carries the encoded request or response headers.
	EncodedHeadersName = "x-mte-relay-eh"

	fieldCount = 6
)

// Encode renders h. It always emits six fields.
func Encode(h domain.RelayHeader) string {
	var sb strings.Builder
	sb.WriteString(h.ClientID.String())
	sb.WriteByte(',')
	sb.WriteString(h.PairID.String())
	sb.WriteByte(',')
	sb.WriteString(strconv.Itoa(int(h.EncodeType)))
	for _, f := range []bool{h.URLIsEncoded, h.HeadersAreEncoded, h.BodyIsEncoded} {
		sb.WriteByte(',')
		sb.WriteString(flag(f))
	}
	return sb.String()
}

// Decode parses raw into a RelayHeader.
func Decode(raw string) (domain.RelayHeader, error) {
	h := domain.RelayHeader{EncodeType: domain.EncodeMKE}
	s := strings.Split(raw, ",")
	if len(s) > fieldCount {
		return domain.RelayHeader{}, protocolError(fmt.Sprintf("%d fields, want at most %d", len(s), fieldCount))
	}

	h.ClientID = domain.ClientID(s[0])
	if len(s) > 1 {
		h.PairID = domain.PairID(s[1])
	}
	if len(s) > 2 {
		n, err := strconv.Atoi(strings.TrimSpace(s[2]))
		if err != nil {
			return domain.RelayHeader{}, protocolError("encode type: " + err.Error())
		}
		if n != int(domain.EncodeMTE) && n != int(domain.EncodeMKE) {
			return domain.RelayHeader{}, protocolError(fmt.Sprintf("encode type %d out of range", n))
		}
		h.EncodeType = domain.EncodeType(n)
	}
	flags := []*bool{&h.URLIsEncoded, &h.HeadersAreEncoded, &h.BodyIsEncoded}
	for i, dst := range flags {
		pos := 3 + i
		if len(s) <= pos {
			break
		}
		n, err := strconv.Atoi(strings.TrimSpace(s[pos]))
		if err != nil {
			return domain.RelayHeader{}, protocolError(fmt.Sprintf("field %d: %v", pos, err))
		}
		*dst = n == 1
	}
	return h, nil
}

func flag(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

func protocolError(msg string) error {
	return domain.NewError(domain.KindProtocol, "decode "+Name, msg)
}
