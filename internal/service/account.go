package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	ierr "github.com/shenikar/relief_locator/internal/errors"
	"github.com/shenikar/relief_locator/internal/models"
	"github.com/sirupsen/logrus"
)

// AccountService - ролевой процесс: регистрация, одобрение и смена роли
type AccountService interface {
	Register(ctx context.Context, account *models.Account) (*models.Account, error)
	GetAccount(ctx context.Context, actor models.Actor, id uuid.UUID) (*models.Account, error)
	ListAccounts(ctx context.Context, actor models.Actor) ([]*models.Account, error)
	Approve(ctx context.Context, actor models.Actor, id uuid.UUID) (*models.Account, error)
	SetRole(ctx context.Context, actor models.Actor, id uuid.UUID, role models.Role) (*models.Account, error)
}

// validate разделяет правила проверки с HTTP-слоем (тег email).
var validate = validator.New()

type accountService struct {
	repo   AccountRepository
	logger *logrus.Logger
}

func NewAccountService(repo AccountRepository, logger *logrus.Logger) AccountService {
	return &accountService{
		repo:   repo,
		logger: logger,
	}
}

// Register создаёт аккаунт. Граждане одобряются сразу,
// координаторы и администраторы ждут решения администратора.
func (s *accountService) Register(ctx context.Context, account *models.Account) (*models.Account, error) {
	log := s.logger.WithFields(logrus.Fields{
		"service":  "account",
		"method":   "Register",
		"username": account.Username,
		"role":     account.Role,
	})
	log.Info("Attempting to register account")

	candidate := *account
	candidate.Username = strings.TrimSpace(candidate.Username)
	candidate.Email = strings.TrimSpace(candidate.Email)
	candidate.PhoneNumber = strings.TrimSpace(candidate.PhoneNumber)
	if candidate.Role == "" {
		candidate.Role = models.RoleCitizen
	}

	if err := validateAccount(&candidate); err != nil {
		log.WithError(err).Warn("Invalid account registration")
		return nil, err
	}

	candidate.ID = uuid.Nil
	candidate.IsApproved = candidate.Role == models.RoleCitizen

	if err := s.repo.Create(ctx, &candidate); err != nil {
		logFailure(log, err, "Failed to create account in repository")
		return nil, err
	}

	log.WithFields(logrus.Fields{
		"account_id":  candidate.ID,
		"is_approved": candidate.IsApproved,
	}).Info("Account registered successfully")
	return &candidate, nil
}

// GetAccount возвращает собственный аккаунт вызывающего, администратору любой
func (s *accountService) GetAccount(ctx context.Context, actor models.Actor, id uuid.UUID) (*models.Account, error) {
	log := s.logger.WithFields(logrus.Fields{
		"service":    "account",
		"method":     "GetAccount",
		"account_id": id,
		"actor_id":   actor.AccountID,
	})

	if !actor.Authenticated() || actor.AccountID != id {
		if err := Authorize(actor, ActionManageAccounts, nil); err != nil {
			log.WithError(err).Warn("Account read rejected")
			return nil, err
		}
	}

	account, err := s.repo.GetByID(ctx, id)
	if err != nil {
		logFailure(log, err, "Failed to get account")
		return nil, err
	}
	return account, nil
}

func (s *accountService) ListAccounts(ctx context.Context, actor models.Actor) ([]*models.Account, error) {
	log := s.logger.WithFields(logrus.Fields{
		"service":  "account",
		"method":   "ListAccounts",
		"actor_id": actor.AccountID,
	})
	log.Info("Listing accounts")

	if err := Authorize(actor, ActionManageAccounts, nil); err != nil {
		log.WithError(err).Warn("Account listing rejected")
		return nil, err
	}

	accounts, err := s.repo.List(ctx)
	if err != nil {
		logFailure(log, err, "Failed to list accounts")
		return nil, err
	}

	log.WithField("count", len(accounts)).Info("Accounts listed successfully")
	return accounts, nil
}

// Approve идемпотентен
func (s *accountService) Approve(ctx context.Context, actor models.Actor, id uuid.UUID) (*models.Account, error) {
	log := s.logger.WithFields(logrus.Fields{
		"service":    "account",
		"method":     "Approve",
		"account_id": id,
		"actor_id":   actor.AccountID,
	})
	log.Info("Attempting to approve account")

	if err := Authorize(actor, ActionManageAccounts, nil); err != nil {
		log.WithError(err).Warn("Approval rejected")
		return nil, err
	}

	account, err := s.repo.UpdateApproval(ctx, id, true)
	if err != nil {
		logFailure(log, err, "Failed to approve account")
		return nil, err
	}

	log.Info("Account approved successfully")
	return account, nil
}

// SetRole меняет роль независимо от одобрения
func (s *accountService) SetRole(ctx context.Context, actor models.Actor, id uuid.UUID, role models.Role) (*models.Account, error) {
	log := s.logger.WithFields(logrus.Fields{
		"service":    "account",
		"method":     "SetRole",
		"account_id": id,
		"role":       role,
		"actor_id":   actor.AccountID,
	})
	log.Info("Attempting to change account role")

	if err := Authorize(actor, ActionManageAccounts, nil); err != nil {
		log.WithError(err).Warn("Role change rejected")
		return nil, err
	}
	if !role.Valid() {
		err := ierr.NewError(fmt.Sprintf("unknown role %q", role)).
			WithHintf("Unknown role %q", role).
			Mark(ierr.ErrValidation)
		log.WithError(err).Warn("Invalid role")
		return nil, err
	}

	account, err := s.repo.UpdateRole(ctx, id, role)
	if err != nil {
		logFailure(log, err, "Failed to change account role")
		return nil, err
	}

	log.Info("Account role changed successfully")
	return account, nil
}

func validateAccount(a *models.Account) error {
	var missing []string
	if a.Username == "" {
		missing = append(missing, "username")
	}
	if a.Email == "" {
		missing = append(missing, "email")
	}
	if len(missing) > 0 {
		return ierr.NewError("missing required fields").
			WithHintf("Missing required fields: %s", strings.Join(missing, ", ")).
			Mark(ierr.ErrValidation)
	}
	if err := validate.Var(a.Email, "email"); err != nil {
		return ierr.WithError(err).
			WithHint("Email address is not valid").
			Mark(ierr.ErrValidation)
	}
	if !a.Role.Valid() {
		return ierr.NewError(fmt.Sprintf("unknown role %q", a.Role)).
			WithHintf("Unknown role %q", a.Role).
			Mark(ierr.ErrValidation)
	}
	return nil
}
