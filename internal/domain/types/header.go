package types

// RelayHeader is the per request/response metadata carried in x-mte-relay.
type RelayHeader struct {
	ClientID          ClientID
	PairID            PairID
	EncodeType        EncodeType
	URLIsEncoded      bool
	HeadersAreEncoded bool
	BodyIsEncoded     bool
}
