package interfaces

import (
	"context"

	domaintypes "noisepay/internal/domain/types"
)

// IdentityService creates, retrieves, and inspects your identity keys.
type IdentityService interface {
	GenerateIdentity(passphrase string, device domaintypes.DeviceID) (
		domaintypes.Identity,
		domaintypes.Fingerprint,
		error,
	)
	LoadIdentity(passphrase string) (domaintypes.Identity, error)
	FingerprintIdentity(passphrase string) (domaintypes.Fingerprint, error)
	TransportKeys(passphrase string, epoch uint32) (domaintypes.TransportKeys, error)
}

// DirectoryService publishes and resolves payee endpoint locators.
type DirectoryService interface {
	Publish(ctx context.Context, rec domaintypes.EndpointRecord) error
	ResolveEndpoint(
		ctx context.Context,
		payee domaintypes.PublicKey,
		method domaintypes.MethodID,
	) (domaintypes.EndpointLocator, bool, error)
}
