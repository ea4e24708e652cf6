package command

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/eaglebank/banking/account-service/internal/repository"
	"github.com/eaglebank/banking/account-service/internal/repository/memory"
	"github.com/eaglebank/banking/shared/cqrs"
	"github.com/eaglebank/banking/shared/models"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// interleavedAccounts runs a write once in the middle of the next GetByID,
// after the row has been read.
type interleavedAccounts struct {
	repository.AccountStore
	once  sync.Once
	write func()
}

func (a *interleavedAccounts) GetByID(ctx context.Context, id int64) (*models.Account, error) {
	acc, err := a.AccountStore.GetByID(ctx, id)
	if err == nil && a.write != nil {
		a.once.Do(a.write)
	}
	return acc, err
}

func TestAccountViewMatchesLatestMovement(t *testing.T) {
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	defer client.Close()
	ctx := context.Background()

	store := memory.NewStore()
	accounts := &interleavedAccounts{AccountStore: store.Reader().Accounts}
	reader := repository.NewAccountReadRepository(accounts, client, 10*time.Minute, zap.NewNop())
	svc := NewLedgerCommandService(store, reader, nil, zap.NewNop(), WithClock(stepClock()))

	acc, err := svc.OpenAccount(ctx, cqrs.OpenAccountCommand{
		CustomerID: 1, AccountNumber: "478758", AccountType: models.AccountTypeSavings, OpeningBalance: dec("1000"),
	})
	require.NoError(t, err)
	mr.FlushAll()

	var deposit *models.Movement
	accounts.write = func() {
		deposit, err = svc.Deposit(ctx, cqrs.DepositCommand{AccountID: acc.ID, Amount: dec("500")})
		require.NoError(t, err)
	}
	_, err = reader.GetByID(ctx, acc.ID)
	require.NoError(t, err)
	require.NotNil(t, deposit)

	view, err := reader.GetByID(ctx, acc.ID)
	require.NoError(t, err)
	assert.True(t, view.Balance.Equal(deposit.ResultingBalance), "view %s, movement %s", view.Balance, deposit.ResultingBalance)
	assert.True(t, view.Balance.Equal(dec("1500")))

	m, err := svc.Withdraw(ctx, cqrs.WithdrawCommand{AccountID: acc.ID, Amount: dec("200")})
	require.NoError(t, err)
	view, err = reader.GetByID(ctx, acc.ID)
	require.NoError(t, err)
	assert.True(t, view.Balance.Equal(m.ResultingBalance))
}
