package interfaces

import domaintypes "noisepay/internal/domain/types"

// IdentityStore persists your long-term identity keys.
type IdentityStore interface {
	SaveIdentity(passphrase string, id domaintypes.Identity) error
	LoadIdentity(passphrase string) (domaintypes.Identity, error)
}

// ReceiptStore persists receipts. Saving an existing ID replaces it.
type ReceiptStore interface {
	SaveReceipt(r domaintypes.Receipt) error
	GetReceipt(id string) (domaintypes.Receipt, bool, error)
	ListReceipts(filter domaintypes.ReceiptFilter) ([]domaintypes.Receipt, error)
}
