package interfaces

import (
	"context"
	"net/http"

	domaintypes "mterelay/internal/domain/types"
)

// RelayTransport is how we talk to the relay proxy, all with context.
type RelayTransport interface {
	// Pair posts a pairing request. clientID may be empty on first
	// contact; the relay's (possibly newly assigned) id is returned.
	Pair(
		ctx context.Context,
		clientID domaintypes.ClientID,
		req domaintypes.PairRequest,
	) (domaintypes.PairResponse, domaintypes.ClientID, error)

	// Do forwards an already protected request to the relay.
	Do(ctx context.Context, req *http.Request) (*http.Response, error)
}
