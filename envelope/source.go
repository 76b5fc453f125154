/*
source.go - Input boundary between the engine and its collaborators

PURPOSE:
  The engine is format-agnostic: it consumes typed records and knows
  nothing about CSV files, databases, or bank-export quirks. A Source
  is whatever collaborator can produce those records. Implementations
  live outside this package (see store/sqlite).

WRITE SIDE:
  The only write the system performs is appending Transfer rows - the
  "apply a proposed rebalance" workflow. That is a separate, optional
  capability (TransferAppender), because most sources are read-only.
*/
package envelope

import "context"

// Source supplies the four input collections one reconciliation run
// consumes.
type Source interface {
	LoadTransactions(ctx context.Context) ([]RawTransaction, error)
	LoadBudgets(ctx context.Context) ([]BudgetAllocation, error)
	LoadTransfers(ctx context.Context) ([]Transfer, error)
	LoadSnapshots(ctx context.Context) ([]BalanceSnapshot, error)
}

// TransferAppender is the optional write capability: record a transfer row
// so the next reconciliation sees it.
type TransferAppender interface {
	AppendTransfer(ctx context.Context, t Transfer) error
}

// LoadInputs gathers a full Inputs bundle from a source.
func LoadInputs(ctx context.Context, src Source, cfg Config) (Inputs, error) {
	raw, err := src.LoadTransactions(ctx)
	if err != nil {
		return Inputs{}, err
	}
	budgets, err := src.LoadBudgets(ctx)
	if err != nil {
		return Inputs{}, err
	}
	transfers, err := src.LoadTransfers(ctx)
	if err != nil {
		return Inputs{}, err
	}
	snapshots, err := src.LoadSnapshots(ctx)
	if err != nil {
		return Inputs{}, err
	}
	return Inputs{
		Raw:       raw,
		Budgets:   budgets,
		Transfers: transfers,
		Snapshots: snapshots,
		Config:    cfg,
	}, nil
}
