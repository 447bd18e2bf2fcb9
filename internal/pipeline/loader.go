package pipeline

import (
	"context"
	"fmt"
	"runtime"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/aifinance/finctl/internal/model"
)

// PageSize is the largest page the backend serves for transaction lists.
const PageSize = 100

// TransactionSource is the slice of the API client the loader needs.
type TransactionSource interface {
	ListAccounts(ctx context.Context) ([]model.Account, error)
	ListTransactions(ctx context.Context, f model.TransactionFilter) ([]model.Transaction, error)
}

// LoadResult holds the output of a full transaction load.
type LoadResult struct {
	Transactions  []model.Transaction
	Accounts      []model.Account
	LoadedPages   int
	AccountErrors int
}

// ProgressFunc is called as accounts finish loading.
type ProgressFunc func(current, total int)

// LoadTransactions pages through every account's transactions matching f,
// one worker per account up to GOMAXPROCS. f.AccountID, Skip and Limit are
// managed by the loader. The result is sorted newest first.
func LoadTransactions(ctx context.Context, src TransactionSource, f model.TransactionFilter, progressFn ProgressFunc) (*LoadResult, error) {
	accounts, err := src.ListAccounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing accounts: %w", err)
	}

	result := &LoadResult{Accounts: accounts}
	if len(accounts) == 0 {
		return result, nil
	}

	numWorkers := runtime.GOMAXPROCS(0)
	if numWorkers > len(accounts) {
		numWorkers = len(accounts)
	}

	type accountResult struct {
		txns  []model.Transaction
		pages int
		err   error
	}

	work := make(chan int, len(accounts))
	results := make([]accountResult, len(accounts))
	var wg sync.WaitGroup
	var processed atomic.Int64

	for i := range accounts {
		work <- i
	}
	close(work)

	wg.Add(numWorkers)
	for range numWorkers {
		go func() {
			defer wg.Done()
			for idx := range work {
				af := f
				af.AccountID = accounts[idx].ID
				txns, pages, err := loadAccount(ctx, src, af)
				results[idx] = accountResult{txns: txns, pages: pages, err: err}
				n := processed.Add(1)
				if progressFn != nil {
					progressFn(int(n), len(accounts))
				}
			}
		}()
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var firstErr error
	for _, r := range results {
		result.LoadedPages += r.pages
		if r.err != nil {
			result.AccountErrors++
			if firstErr == nil {
				firstErr = r.err
			}
			continue
		}
		result.Transactions = append(result.Transactions, r.txns...)
	}
	if result.AccountErrors == len(accounts) {
		return nil, fmt.Errorf("loading transactions: %w", firstErr)
	}

	sort.SliceStable(result.Transactions, func(i, j int) bool {
		a, b := result.Transactions[i], result.Transactions[j]
		if !a.Date.Equal(b.Date.Time) {
			return a.Date.After(b.Date.Time)
		}
		return a.ID > b.ID
	})
	return result, nil
}

func loadAccount(ctx context.Context, src TransactionSource, f model.TransactionFilter) ([]model.Transaction, int, error) {
	var all []model.Transaction
	pages := 0
	f.Limit = PageSize
	for skip := 0; ; skip += PageSize {
		f.Skip = skip
		page, err := src.ListTransactions(ctx, f)
		if err != nil {
			return nil, pages, err
		}
		pages++
		all = append(all, page...)
		if len(page) < PageSize {
			return all, pages, nil
		}
	}
}
