package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	ierr "github.com/shenikar/relief_locator/internal/errors"
	"github.com/shenikar/relief_locator/internal/models"
	"github.com/shenikar/relief_locator/internal/service"
)

const accountColumns = `id, username, email, phone_number, role, is_approved, created_at`

type AccountRepository struct {
	db *pgxpool.Pool
}

var _ service.AccountRepository = (*AccountRepository)(nil)

func NewAccountRepository(db *pgxpool.Pool) *AccountRepository {
	return &AccountRepository{db: db}
}

func (r *AccountRepository) Create(ctx context.Context, account *models.Account) error {
	query := `
		INSERT INTO accounts (username, email, phone_number, role, is_approved)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at;
	`
	err := r.db.QueryRow(ctx, query,
		account.Username,
		account.Email,
		account.PhoneNumber,
		account.Role,
		account.IsApproved,
	).Scan(&account.ID, &account.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return ierr.WithError(err).
				WithHint("An account with this username or email already exists").
				Mark(ierr.ErrConflict)
		}
		return dbError(err, "failed to create account")
	}
	return nil
}

func (r *AccountRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1;`
	account, err := scanAccount(r.db.QueryRow(ctx, query, id))
	if err != nil {
		return nil, accountError(err, id, "failed to get account by id")
	}
	return account, nil
}

func (r *AccountRepository) List(ctx context.Context) ([]*models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts ORDER BY created_at DESC;`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, dbError(err, "failed to list accounts")
	}
	defer rows.Close()

	accounts := make([]*models.Account, 0)
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, dbError(err, "failed to scan account row")
		}
		accounts = append(accounts, account)
	}
	if err := rows.Err(); err != nil {
		return nil, dbError(err, "error list iteration")
	}
	return accounts, nil
}

func (r *AccountRepository) UpdateApproval(ctx context.Context, id uuid.UUID, approved bool) (*models.Account, error) {
	query := `UPDATE accounts SET is_approved = $2 WHERE id = $1 RETURNING ` + accountColumns + `;`
	account, err := scanAccount(r.db.QueryRow(ctx, query, id, approved))
	if err != nil {
		return nil, accountError(err, id, "failed to update account approval")
	}
	return account, nil
}

func (r *AccountRepository) UpdateRole(ctx context.Context, id uuid.UUID, role models.Role) (*models.Account, error) {
	query := `UPDATE accounts SET role = $2 WHERE id = $1 RETURNING ` + accountColumns + `;`
	account, err := scanAccount(r.db.QueryRow(ctx, query, id, role))
	if err != nil {
		return nil, accountError(err, id, "failed to update account role")
	}
	return account, nil
}

func scanAccount(row rowScanner) (*models.Account, error) {
	account := &models.Account{}
	err := row.Scan(
		&account.ID,
		&account.Username,
		&account.Email,
		&account.PhoneNumber,
		&account.Role,
		&account.IsApproved,
		&account.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return account, nil
}

func accountError(err error, id uuid.UUID, msg string) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ierr.NewError(fmt.Sprintf("account with id %s not found", id)).
			WithHint("Account not found").
			Mark(ierr.ErrNotFound)
	}
	return dbError(err, msg)
}
