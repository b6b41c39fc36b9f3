package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Veraticus/cashflow/internal/common"
	"github.com/Veraticus/cashflow/internal/model"
)

// CreateAccount saves a new bank account and sets its ID.
func (s *SQLiteStorage) CreateAccount(ctx context.Context, account *model.Account) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateAccount(account); err != nil {
		return err
	}
	return s.createAccountTx(ctx, s.db, account)
}

func (s *SQLiteStorage) createAccountTx(ctx context.Context, q queryable, account *model.Account) error {
	result, err := q.ExecContext(ctx, `
		INSERT INTO accounts (bank_name, branch, number, opening_balance, opening_date)
		VALUES (?, ?, ?, ?, ?)`,
		account.BankName,
		account.Branch,
		account.Number,
		account.OpeningBalance.String(),
		nullDate(account.OpeningDate),
	)
	if err != nil {
		return fmt.Errorf("failed to insert account: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get account ID: %w", err)
	}
	account.ID = id
	return nil
}

const accountColumns = `id, bank_name, branch, number, opening_balance, opening_date, created_at`

func scanAccount(row rowScanner) (*model.Account, error) {
	var (
		account     model.Account
		balance     string
		openingDate sql.NullString
	)
	if err := row.Scan(&account.ID, &account.BankName, &account.Branch, &account.Number,
		&balance, &openingDate, &account.CreatedAt); err != nil {
		return nil, err
	}

	var err error
	if account.OpeningBalance, err = parseDecimal(balance); err != nil {
		return nil, err
	}
	if account.OpeningDate, err = parseNullDate(openingDate); err != nil {
		return nil, err
	}
	return &account, nil
}

// GetAccount returns an account by id, or common.ErrNotFound.
func (s *SQLiteStorage) GetAccount(ctx context.Context, id int64) (*model.Account, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	return s.getAccountTx(ctx, s.db, id)
}

func (s *SQLiteStorage) getAccountTx(ctx context.Context, q queryable, id int64) (*model.Account, error) {
	row := q.QueryRowContext(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = ?`, id)
	account, err := scanAccount(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("account %d: %w", id, common.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query account: %w", err)
	}
	return account, nil
}

// GetAccounts lists all bank accounts.
func (s *SQLiteStorage) GetAccounts(ctx context.Context) ([]model.Account, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	return s.getAccountsTx(ctx, s.db)
}

func (s *SQLiteStorage) getAccountsTx(ctx context.Context, q queryable) ([]model.Account, error) {
	rows, err := q.QueryContext(ctx, `SELECT `+accountColumns+` FROM accounts ORDER BY bank_name, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query accounts: %w", err)
	}
	defer rows.Close()

	var accounts []model.Account
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}
		accounts = append(accounts, *account)
	}
	return accounts, rows.Err()
}

// CreateCard saves a new credit card and sets its ID.
func (s *SQLiteStorage) CreateCard(ctx context.Context, card *model.Card) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateCard(card); err != nil {
		return err
	}
	return s.createCardTx(ctx, s.db, card)
}

func (s *SQLiteStorage) createCardTx(ctx context.Context, q queryable, card *model.Card) error {
	result, err := q.ExecContext(ctx, `
		INSERT INTO cards (name, credit_limit, closing_day, due_day, payment_account_id)
		VALUES (?, ?, ?, ?, ?)`,
		card.Name,
		card.Limit.String(),
		card.ClosingDay,
		card.DueDay,
		nullInt(card.PaymentAccountID),
	)
	if err != nil {
		return fmt.Errorf("failed to insert card: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get card ID: %w", err)
	}
	card.ID = id
	return nil
}

const cardColumns = `id, name, credit_limit, closing_day, due_day, payment_account_id, created_at`

func scanCard(row rowScanner) (*model.Card, error) {
	var (
		card           model.Card
		limit          string
		paymentAccount sql.NullInt64
	)
	if err := row.Scan(&card.ID, &card.Name, &limit, &card.ClosingDay, &card.DueDay,
		&paymentAccount, &card.CreatedAt); err != nil {
		return nil, err
	}

	var err error
	if card.Limit, err = parseDecimal(limit); err != nil {
		return nil, err
	}
	card.PaymentAccountID = fromNullInt(paymentAccount)
	return &card, nil
}

// GetCard returns a card by id, or common.ErrNotFound.
func (s *SQLiteStorage) GetCard(ctx context.Context, id int64) (*model.Card, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	return s.getCardTx(ctx, s.db, id)
}

func (s *SQLiteStorage) getCardTx(ctx context.Context, q queryable, id int64) (*model.Card, error) {
	row := q.QueryRowContext(ctx, `SELECT `+cardColumns+` FROM cards WHERE id = ?`, id)
	card, err := scanCard(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("card %d: %w", id, common.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query card: %w", err)
	}
	return card, nil
}

// GetCards lists all credit cards.
func (s *SQLiteStorage) GetCards(ctx context.Context) ([]model.Card, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	return s.getCardsTx(ctx, s.db)
}

func (s *SQLiteStorage) getCardsTx(ctx context.Context, q queryable) ([]model.Card, error) {
	rows, err := q.QueryContext(ctx, `SELECT `+cardColumns+` FROM cards ORDER BY name, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query cards: %w", err)
	}
	defer rows.Close()

	var cards []model.Card
	for rows.Next() {
		card, err := scanCard(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan card: %w", err)
		}
		cards = append(cards, *card)
	}
	return cards, rows.Err()
}
