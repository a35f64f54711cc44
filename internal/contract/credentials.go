package contract

import "context"

// BrokerKeys is a decrypted broker API keypair.
type BrokerKeys struct {
	APIKey    string
	APISecret string
}

// CredentialResolver looks up and decrypts a user's broker credential.
// Returns (nil, nil) when the user has no usable credential configured.
type CredentialResolver interface {
	Resolve(ctx context.Context, userID uint) (*BrokerKeys, error)
}
