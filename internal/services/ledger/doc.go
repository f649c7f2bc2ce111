/*
Package ledger implements the transactional wallet ledger.

It owns every balance mutation: deposits, withdrawals and transfers all go
through this package, which holds a per-account lock across the full
read-validate-screen-mutate-persist sequence, screens withdrawals and
transfers through the fraud engine, and commits the balance update together
with the appended transaction record in one storage transaction.

Usage:

	svc := ledger.NewService(users, wallets, txns, fraudEngine, ledger.Config{}, nil, nil)

	balance, err := svc.Deposit(ctx, accountID, amount)
	balance, outcome, err := svc.Withdraw(ctx, accountID, amount)
	balance, outcome, err := svc.Transfer(ctx, fromID, toID, amount)
	history, err := svc.GetHistory(ctx, accountID)

Flagged transactions still complete by default; set Config.BlockOnFlag to hold
them for review instead, in which case the engine returns ErrHeldForReview and
leaves balances untouched.
*/
package ledger
