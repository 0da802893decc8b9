package domain

import (
	interfaces "mterelay/internal/domain/interfaces"
	types "mterelay/internal/domain/types"
)

// Type aliases expose domain types from the types subpackage for compact imports.
type (
	PairID            = types.PairID
	ClientID          = types.ClientID
	Status            = types.Status
	EncodeType        = types.EncodeType
	HandleKind        = types.HandleKind
	HeaderDisposition = types.HeaderDisposition
	KeyPair           = types.KeyPair
	SharedSecret      = types.SharedSecret
	MagicValues       = types.MagicValues
	Handle            = types.Handle
	RelayHeader       = types.RelayHeader
	PairStatus        = types.PairStatus
	PairSession       = types.PairSession
	PairRequest       = types.PairRequest
	PairResponse      = types.PairResponse
)

// Interface aliases expose domain interfaces from the interfaces subpackage.
type (
	CipherEngine         = interfaces.CipherEngine
	SecureStorage        = interfaces.SecureStorage
	KeyAgreementProvider = interfaces.KeyAgreementProvider
	StorageMedium        = interfaces.StorageMedium
	StateRepository      = interfaces.StateRepository
	RelayTransport       = interfaces.RelayTransport
)

// Re-exported constants.
const (
	StatusSuccess         = types.StatusSuccess
	StatusBadEntropy      = types.StatusBadEntropy
	StatusNotInstantiated = types.StatusNotInstantiated
	StatusBadState        = types.StatusBadState
	StatusBadInput        = types.StatusBadInput
	StatusDecodeFailed    = types.StatusDecodeFailed
	StatusTokenExists     = types.StatusTokenExists
	StatusTokenOld        = types.StatusTokenOld
	StatusNotFound        = types.StatusNotFound
	StatusStorageFailed   = types.StatusStorageFailed
	StatusLicenseError    = types.StatusLicenseError

	EncodeMTE = types.EncodeMTE
	EncodeMKE = types.EncodeMKE

	EncoderKind = types.EncoderKind
	DecoderKind = types.DecoderKind

	EncodeNoHeaders     = types.EncodeNoHeaders
	EncodeAllHeaders    = types.EncodeAllHeaders
	EncodeListOfHeaders = types.EncodeListOfHeaders

	PairIdle = types.PairIdle
	PairBusy = types.PairBusy
)

// ParseEncodeType parses "MTE" or "MKE".
var ParseEncodeType = types.ParseEncodeType
