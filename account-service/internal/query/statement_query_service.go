package query

import (
	"context"
	"fmt"

	"github.com/eaglebank/banking/account-service/internal/repository"
	"github.com/eaglebank/banking/shared/cqrs"
	"github.com/eaglebank/banking/shared/models"
	"github.com/eaglebank/banking/shared/utils"
	"github.com/eaglebank/banking/shared/xerrors"
	"github.com/shopspring/decimal"
)

// StatementQueryService builds customer statements from the movement log.
// It only reads.
type StatementQueryService struct {
	stores repository.Stores
}

func NewStatementQueryService(stores repository.Stores) *StatementQueryService {
	return &StatementQueryService{stores: stores}
}

// BuildStatement lists every account of the customer with the movements
// created from the start of StartDate through the end of EndDate. Accounts
// without movements in the range are still listed.
func (s *StatementQueryService) BuildStatement(ctx context.Context, q cqrs.StatementQuery) (*models.Statement, error) {
	start := utils.StartOfDay(q.StartDate)
	end := utils.EndOfDay(q.EndDate)
	if end.Before(start) {
		return nil, fmt.Errorf("%w: end date %s is before start date %s", xerrors.ErrValidation,
			q.EndDate.Format(utils.DateLayout), q.StartDate.Format(utils.DateLayout))
	}

	accounts, err := s.stores.Accounts.ListByCustomer(ctx, q.CustomerID)
	if err != nil {
		return nil, err
	}

	statement := &models.Statement{
		CustomerID: q.CustomerID,
		StartDate:  start,
		EndDate:    end,
		Accounts:   make([]models.AccountStatement, 0, len(accounts)),
	}
	for _, account := range accounts {
		movements, err := s.stores.Movements.ListByAccountInRange(ctx, account.ID, start, end)
		if err != nil {
			return nil, err
		}
		if movements == nil {
			movements = []models.Movement{}
		}

		credits, debits := decimal.Zero, decimal.Zero
		for _, m := range movements {
			if m.Kind.IsDebit() {
				debits = debits.Add(m.Value)
			} else {
				credits = credits.Add(m.Value)
			}
		}

		statement.Accounts = append(statement.Accounts, models.AccountStatement{
			Account:      account,
			Movements:    movements,
			TotalCredits: credits,
			TotalDebits:  debits,
		})
	}
	return statement, nil
}
