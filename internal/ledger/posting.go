// Package ledger keeps stored account balances equal to the initial balance
// plus the signed sum of every completed posting. Postings are not stored;
// they are derived from the transaction or transfer that owns them.
package ledger

import (
	"fmt"

	"famledger/internal/models"
	"famledger/internal/money"
)

// Posting is the signed amount one transaction or transfer leg applies to an account.
type Posting struct {
	AccountID string
	Amount    money.Money
	Ref       string
}

func (p Posting) String() string {
	return fmt.Sprintf("%s %s on %s", p.Ref, p.Amount, p.AccountID)
}

// ForTransaction returns the posting of t, or none when t does not move a
// balance: it is not completed, or it is a transfer leg.
func ForTransaction(t *models.Transaction) []Posting {
	if t == nil || t.Status != models.StatusCompleted || t.Source == models.SourceTransferLeg {
		return nil
	}
	amount := t.Amount
	if t.Type == models.TransactionTypeExpense {
		amount = amount.Neg()
	}
	return []Posting{{AccountID: t.AccountID, Amount: amount, Ref: "transaction:" + t.ID}}
}

// ForTransfer returns both legs of a completed transfer. The legs always sum to zero.
func ForTransfer(t *models.Transfer) []Posting {
	if t == nil || t.Status != models.StatusCompleted {
		return nil
	}
	return []Posting{
		{AccountID: t.FromAccountID, Amount: t.Amount.Neg(), Ref: "transfer:" + t.ID + ":from"},
		{AccountID: t.ToAccountID, Amount: t.Amount, Ref: "transfer:" + t.ID + ":to"},
	}
}

// Negate flips the sign of every posting.
func Negate(postings []Posting) []Posting {
	out := make([]Posting, len(postings))
	for i, p := range postings {
		out[i] = Posting{AccountID: p.AccountID, Amount: p.Amount.Neg(), Ref: p.Ref}
	}
	return out
}
