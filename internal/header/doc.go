// Package header encodes and decodes the x-mte-relay header.
//
// The value is six comma separated positional fields:
//
//	clientId,pairId,encodeType,urlIsEncoded,headersAreEncoded,bodyIsEncoded
//
// encodeType is 0 (MTE) or 1 (MKE) and each flag is "1" or "0". Decoding
// tolerates a short value: missing trailing fields keep their defaults (MKE,
// false). A non-numeric value in a numeric position is a protocol error.
package header
