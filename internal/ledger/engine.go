package ledger

import (
	"errors"
	"fmt"
	"sort"

	apperrors "famledger/internal/errors"
	"famledger/internal/models"
	"famledger/internal/money"
	"famledger/internal/store"
)

// Engine applies postings to account balances. Every call must run inside
// the unit of work that made the change producing the postings.
type Engine struct{}

// NewEngine creates a balance engine.
func NewEngine() *Engine {
	return &Engine{}
}

// Apply adds every posting to its account balance.
func (e *Engine) Apply(accounts store.AccountRepository, postings ...Posting) error {
	return e.post(accounts, net(postings))
}

// Reverse subtracts every posting from its account balance.
func (e *Engine) Reverse(accounts store.AccountRepository, postings ...Posting) error {
	return e.post(accounts, net(Negate(postings)))
}

// Replace reverses old and applies next as one adjustment per account, so a
// posting that moves between accounts updates both.
func (e *Engine) Replace(accounts store.AccountRepository, old, next []Posting) error {
	combined := append(Negate(old), next...)
	return e.post(accounts, net(combined))
}

// Lock takes row locks on the given accounts in id order and returns them.
// A missing account is an invariant violation; inactive accounts are returned
// as loaded so callers can decide.
func (e *Engine) Lock(accounts store.AccountRepository, ids ...string) (map[string]*models.Account, error) {
	sorted := make([]string, 0, len(ids))
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			sorted = append(sorted, id)
		}
	}
	sort.Strings(sorted)

	locked := make(map[string]*models.Account, len(sorted))
	for _, id := range sorted {
		a, err := accounts.GetForUpdate(id)
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperrors.Wrap(apperrors.ErrInvariantViolation, fmt.Errorf("posting on missing account %s", id))
		}
		if err != nil {
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		locked[id] = a
	}
	return locked, nil
}

// Recalculate sets the balance of an account to its initial balance plus
// every completed posting and returns the account.
func (e *Engine) Recalculate(accounts store.AccountRepository, id string) (*models.Account, error) {
	locked, err := e.Lock(accounts, id)
	if err != nil {
		return nil, err
	}
	a := locked[id]
	total, err := accounts.PostingTotal(id)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	a.Balance = a.InitialBalance.Add(total)
	if err := accounts.SetBalance(id, a.Balance); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return a, nil
}

func (e *Engine) post(accounts store.AccountRepository, deltas map[string]money.Money) error {
	if len(deltas) == 0 {
		return nil
	}
	ids := make([]string, 0, len(deltas))
	for id := range deltas {
		ids = append(ids, id)
	}

	locked, err := e.Lock(accounts, ids...)
	if err != nil {
		return err
	}
	for _, id := range ids {
		if !locked[id].IsActive {
			return apperrors.Wrap(apperrors.ErrInactiveAccount, fmt.Errorf("posting on inactive account %s", id))
		}
	}
	for id, delta := range deltas {
		balance := locked[id].Balance.Add(delta)
		if err := accounts.SetBalance(id, balance); err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		locked[id].Balance = balance
	}
	return nil
}

// net folds postings into one non-zero delta per account.
func net(postings []Posting) map[string]money.Money {
	deltas := make(map[string]money.Money, len(postings))
	for _, p := range postings {
		deltas[p.AccountID] = deltas[p.AccountID].Add(p.Amount)
	}
	for id, d := range deltas {
		if d.IsZero() {
			delete(deltas, id)
		}
	}
	return deltas
}
