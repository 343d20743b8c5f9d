// Package entitlement decides whether a person may trigger model generation.
package entitlement

import (
	"context"

	"github.com/storyloom/storyloom/internal/store"
)

// Provider answers generation-permission checks for a person.
type Provider interface {
	CanGenerate(ctx context.Context, personID string) (bool, error)
}

// PersonStore is the subset of the store the store-backed provider needs.
type PersonStore interface {
	GetPerson(ctx context.Context, personID string) (*store.Person, error)
}

// StoreProvider reads the can_generate flag from the people table. An
// unknown person is simply not entitled; it is not an error.
type StoreProvider struct {
	store PersonStore
}

func NewStoreProvider(st PersonStore) *StoreProvider {
	return &StoreProvider{store: st}
}

func (p *StoreProvider) CanGenerate(ctx context.Context, personID string) (bool, error) {
	person, err := p.store.GetPerson(ctx, personID)
	if err != nil {
		return false, err
	}
	if person == nil {
		return false, nil
	}
	return person.CanGenerate, nil
}

// Static always returns a fixed answer. Used in tests and when running
// without entitlement enforcement.
type Static bool

func (s Static) CanGenerate(context.Context, string) (bool, error) {
	return bool(s), nil
}
