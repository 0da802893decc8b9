package header_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"mterelay/internal/domain"
	"mterelay/internal/header"
)

func TestEncode_Literal(t *testing.T) {
	got := header.Encode(domain.RelayHeader{
		ClientID:          "c1",
		PairID:            "p1",
		EncodeType:        domain.EncodeMKE,
		URLIsEncoded:      false,
		HeadersAreEncoded: true,
		BodyIsEncoded:     true,
	})
	require.Equal(t, "c1,p1,1,0,1,1", got)

	require.Equal(t, ",,0,0,0,0", header.Encode(domain.RelayHeader{EncodeType: domain.EncodeMTE}))
}

func TestRoundTrip(t *testing.T) {
	for _, et := range []domain.EncodeType{domain.EncodeMTE, domain.EncodeMKE} {
		for mask := 0; mask < 8; mask++ {
			h := domain.RelayHeader{
				ClientID:          "2f0c1d7e-client",
				PairID:            "pair-42",
				EncodeType:        et,
				URLIsEncoded:      mask&1 != 0,
				HeadersAreEncoded: mask&2 != 0,
				BodyIsEncoded:     mask&4 != 0,
			}
			got, err := header.Decode(header.Encode(h))
			require.NoError(t, err)
			require.Equal(t, h, got)
		}
	}
}

func TestDecode_ShortInputKeepsDefaults(t *testing.T) {
	got, err := header.Decode("c1")
	require.NoError(t, err)
	require.Equal(t, domain.RelayHeader{ClientID: "c1", EncodeType: domain.EncodeMKE}, got)

	got, err = header.Decode("c1,p1,0,1")
	require.NoError(t, err)
	require.Equal(t, domain.RelayHeader{
		ClientID:     "c1",
		PairID:       "p1",
		EncodeType:   domain.EncodeMTE,
		URLIsEncoded: true,
	}, got)

	got, err = header.Decode("")
	require.NoError(t, err)
	require.Equal(t, domain.EncodeMKE, got.EncodeType)
}

func TestDecode_Malformed(t *testing.T) {
	for _, raw := range []string{
		"c1,p1,x",
		"c1,p1,1,yes",
		"c1,p1,1,0,0,",
		"c1,p1,7,0,0,0",
		"c1,p1,1,0,0,0,extra",
	} {
		_, err := header.Decode(raw)
		require.True(t, domain.IsKind(err, domain.KindProtocol), "%q: %v", raw, err)
	}
}
