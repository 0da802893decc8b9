package types

// PairRequest is posted to the relay to start a pairing. PairID is always
// sent as null.
type PairRequest struct {
	PairID                    *string `json:"pairId"`
	EncoderPublicKey          string  `json:"encoderPublicKey"`
	EncoderPersonalizationStr string  `json:"encoderPersonalizationStr"`
	DecoderPublicKey          string  `json:"decoderPublicKey"`
	DecoderPersonalizationStr string  `json:"decoderPersonalizationStr"`
}

// PairResponse is the relay's answer. The secrets are wrapped under the
// ECDH secret derived from the matching public keys.
type PairResponse struct {
	PairID           string `json:"pairId"`
	EncoderSecret    string `json:"encoderSecret"`
	EncoderNonce     string `json:"encoderNonce"`
	DecoderSecret    string `json:"decoderSecret"`
	DecoderNonce     string `json:"decoderNonce"`
	EncoderPublicKey string `json:"encoderPublicKey"`
	DecoderPublicKey string `json:"decoderPublicKey"`
}
