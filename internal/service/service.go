package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mchen/wallet-backend/internal/auth"
	"github.com/mchen/wallet-backend/internal/models"
	"github.com/mchen/wallet-backend/internal/repository"
	"golang.org/x/crypto/bcrypt"
)

// Pagination bounds for transaction listings
const (
	DefaultPageSize = 50
	MaxPageSize     = 200
)

// ClampPage normalizes client-supplied pagination to the service bounds.
// The handler uses it to echo the effective values, so the two layers
// cannot drift apart.
func ClampPage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

// Service defines all the business logic operations
type Service interface {
	// Authentication
	SignUp(ctx context.Context, req models.SignUpRequest) (*models.AuthResponse, error)
	Login(ctx context.Context, req models.LoginRequest) (*models.AuthResponse, error)
	GetMe(ctx context.Context, userID string) (*models.User, error)
	UpdateMe(ctx context.Context, userID string, req models.UpdateMeRequest) (*models.User, error)

	// Ledger operations. The userID argument is always the caller's
	// verified identity taken from the token, never from the request body.
	CreateTransaction(ctx context.Context, userID string, req models.CreateTransactionRequest) (*models.Transaction, error)
	DeleteTransaction(ctx context.Context, userID, transactionID string) error
	GetTransactionsByUser(ctx context.Context, userID string, limit, offset int) ([]models.Transaction, error)
	GetSummaryByUser(ctx context.Context, userID string) (*models.Summary, error)
}

// DefaultService implements the Service interface
type DefaultService struct {
	repo          repository.Repository
	authenticator *auth.TokenAuthenticator
}

// NewDefaultService creates a new DefaultService
func NewDefaultService(repo repository.Repository, authenticator *auth.TokenAuthenticator) Service {
	return &DefaultService{
		repo:          repo,
		authenticator: authenticator,
	}
}

// Authentication methods
func (s *DefaultService) SignUp(ctx context.Context, req models.SignUpRequest) (*models.AuthResponse, error) {
	// Check if user already exists
	existingUser, err := s.repo.GetUserByEmail(ctx, req.Email)
	if err != nil {
		return nil, fmt.Errorf("error checking user existence: %w", err)
	}

	if existingUser != nil {
		return nil, ErrEmailTaken
	}

	// Hash the password
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("error hashing password: %w", err)
	}

	// Create the user
	user := &models.User{
		ID:       uuid.New().String(),
		Email:    req.Email,
		Name:     req.Name,
		Password: string(hashedPassword),
	}

	if err := s.repo.CreateUser(ctx, user); err != nil {
		return nil, fmt.Errorf("error creating user: %w", err)
	}

	return &models.AuthResponse{
		Status: "success",
		UserID: user.ID,
		Email:  user.Email,
		Name:   user.Name,
	}, nil
}

func (s *DefaultService) Login(ctx context.Context, req models.LoginRequest) (*models.AuthResponse, error) {
	// Get the user
	user, err := s.repo.GetUserByEmail(ctx, req.Email)
	if err != nil {
		return nil, fmt.Errorf("error getting user: %w", err)
	}

	if user == nil {
		return nil, ErrInvalidCredentials
	}

	// Verify password
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	// Issue a signed token for the session
	token, err := s.authenticator.Issue(user.ID)
	if err != nil {
		return nil, fmt.Errorf("error generating token: %w", err)
	}

	return &models.AuthResponse{
		Status:    "success",
		UserID:    user.ID,
		Token:     token,
		ExpiresIn: int(s.authenticator.TTL().Seconds()),
	}, nil
}

func (s *DefaultService) GetMe(ctx context.Context, userID string) (*models.User, error) {
	user, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("error getting user: %w", err)
	}

	if user == nil {
		return nil, ErrUserNotFound
	}

	return user, nil
}

func (s *DefaultService) UpdateMe(
	ctx context.Context,
	userID string,
	req models.UpdateMeRequest,
) (*models.User, error) {
	user, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("error getting user: %w", err)
	}

	if user == nil {
		return nil, ErrUserNotFound
	}

	if req.Name != "" {
		user.Name = req.Name
	}

	if req.Email != "" && req.Email != user.Email {
		// The new address must not belong to another account
		existing, err := s.repo.GetUserByEmail(ctx, req.Email)
		if err != nil {
			return nil, fmt.Errorf("error checking user existence: %w", err)
		}
		if existing != nil {
			return nil, ErrEmailTaken
		}
		user.Email = req.Email
	}

	if err := s.repo.UpdateUser(ctx, user); err != nil {
		return nil, fmt.Errorf("error updating user: %w", err)
	}

	return user, nil
}

// Ledger operations
func (s *DefaultService) CreateTransaction(
	ctx context.Context,
	userID string,
	req models.CreateTransactionRequest,
) (*models.Transaction, error) {
	// A zero amount encodes neither income nor expense
	if req.Amount == 0 {
		return nil, ErrInvalidAmount
	}

	if strings.TrimSpace(req.Category) == "" {
		return nil, ErrMissingCategory
	}

	txn := &models.Transaction{
		ID:          uuid.New().String(),
		UserID:      userID,
		Amount:      req.Amount,
		Category:    req.Category,
		Description: req.Description,
		CreatedAt:   time.Now().UTC(),
	}

	// The record must be durably visible before the response is produced,
	// so a summary requested right after the create reflects it
	if err := s.repo.CreateTransaction(ctx, txn); err != nil {
		return nil, fmt.Errorf("error creating transaction: %w", err)
	}

	return txn, nil
}

func (s *DefaultService) DeleteTransaction(ctx context.Context, userID, transactionID string) error {
	txn, err := s.repo.GetTransaction(ctx, transactionID)
	if err != nil {
		return fmt.Errorf("error getting transaction: %w", err)
	}

	if txn == nil {
		return ErrTransactionNotFound
	}

	// Only the owner may delete. The API layer answers ErrNotOwner and
	// ErrTransactionNotFound identically so a foreign id is
	// indistinguishable from a missing one.
	if txn.UserID != userID {
		return ErrNotOwner
	}

	if err := s.repo.DeleteTransaction(ctx, transactionID); err != nil {
		return fmt.Errorf("error deleting transaction: %w", err)
	}

	return nil
}

func (s *DefaultService) GetTransactionsByUser(
	ctx context.Context,
	userID string,
	limit,
	offset int,
) ([]models.Transaction, error) {
	limit, offset = ClampPage(limit, offset)

	transactions, err := s.repo.GetTransactionsByUser(ctx, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("error listing transactions: %w", err)
	}

	return transactions, nil
}

func (s *DefaultService) GetSummaryByUser(ctx context.Context, userID string) (*models.Summary, error) {
	summary, err := s.repo.GetSummaryByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("error computing summary: %w", err)
	}

	return summary, nil
}
