package domain

import (
	interfaces "noisepay/internal/domain/interfaces"
	types "noisepay/internal/domain/types"
)

// Type aliases expose domain types from the types subpackage for compact imports.
type (
	PublicKey       = types.PublicKey
	Fingerprint     = types.Fingerprint
	MethodID        = types.MethodID
	DeviceID        = types.DeviceID
	Identity        = types.Identity
	TransportKeys   = types.TransportKeys
	Receipt         = types.Receipt
	ReceiptStatus   = types.ReceiptStatus
	ReceiptFilter   = types.ReceiptFilter
	EndpointLocator = types.EndpointLocator
	EndpointRecord  = types.EndpointRecord
	X25519Public    = types.X25519Public
	X25519Private   = types.X25519Private
	Ed25519Public   = types.Ed25519Public
	Ed25519Private  = types.Ed25519Private
)

// Receipt statuses.
const (
	ReceiptProvisional = types.ReceiptProvisional
	ReceiptConfirmed   = types.ReceiptConfirmed
	ReceiptFailed      = types.ReceiptFailed
)

// Interface aliases expose domain interfaces from the interfaces subpackage.
type (
	IdentityService  = interfaces.IdentityService
	DirectoryService = interfaces.DirectoryService
	IdentityStore    = interfaces.IdentityStore
	ReceiptStore     = interfaces.ReceiptStore
)
