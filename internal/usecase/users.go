package usecase

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/daito-dot/AI-CONNECTIVE/internal/domain"
	"github.com/daito-dot/AI-CONNECTIVE/internal/integrations/cognito"
	"github.com/daito-dot/AI-CONNECTIVE/internal/repository"
)

const tempPasswordLength = 16

// Identity is the identity-provider capability consumed by UserService.
type Identity interface {
	SignUp(ctx context.Context, email, password, name string) (identityID string, confirmed bool, err error)
	ConfirmSignUp(ctx context.Context, email, code string) error
	SignIn(ctx context.Context, email, password string) (cognito.Tokens, error)
	AdminCreateUser(ctx context.Context, email, name string, attrs map[string]string, temporaryPassword string) (string, error)
}

// UserStore is the user-record persistence consumed by UserService.
type UserStore interface {
	PutUser(ctx context.Context, u domain.User) error
	GetUser(ctx context.Context, userID string) (domain.User, error)
	UpdateUserName(ctx context.Context, userID, name, updatedAt string) error
	ListUsers(ctx context.Context, filter repository.UserFilter) ([]domain.User, error)
}

// UserService implements sign-up, sign-in, profile management and the
// role-gated admin operations.
type UserService struct {
	identity Identity
	users    UserStore
	logger   *zap.Logger
	now      func() time.Time
}

func NewUserService(identity Identity, users UserStore, logger *zap.Logger) (*UserService, error) {
	if identity == nil {
		return nil, errors.New("usecase: identity provider must not be nil")
	}
	if users == nil {
		return nil, errors.New("usecase: user store must not be nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UserService{
		identity: identity,
		users:    users,
		logger:   logger,
		now:      time.Now,
	}, nil
}

type SignUpInput struct {
	Email    string
	Password string
	Name     string
}

type SignUpOutput struct {
	UserID    string `json:"userId"`
	Confirmed bool   `json:"confirmed"`
}

// SignUp registers a self-service account and provisions the core user
// record with the base role. The provider's subject is the userId.
func (s *UserService) SignUp(ctx context.Context, in SignUpInput) (SignUpOutput, error) {
	email := strings.TrimSpace(in.Email)
	if email == "" || !strings.Contains(email, "@") {
		return SignUpOutput{}, newError(ErrorValidation, "invalid_email", nil)
	}
	if in.Password == "" {
		return SignUpOutput{}, newError(ErrorValidation, "missing_password", nil)
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return SignUpOutput{}, newError(ErrorValidation, "missing_name", nil)
	}

	identityID, confirmed, err := s.identity.SignUp(ctx, email, in.Password, name)
	if err != nil {
		return SignUpOutput{}, newError(ErrorValidation, "identity_signup_rejected", err)
	}

	now := s.now().UTC().Format(timeLayout)
	err = s.users.PutUser(ctx, domain.User{
		UserID:    identityID,
		Email:     email,
		Name:      name,
		Role:      domain.RoleUser,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		return SignUpOutput{}, newError(ErrorStorage, "user_record_put_error", err)
	}
	s.logger.Info("user signed up", zap.String("userId", identityID))
	return SignUpOutput{UserID: identityID, Confirmed: confirmed}, nil
}

// Confirm completes email verification with the mailed code.
func (s *UserService) Confirm(ctx context.Context, email, code string) error {
	if strings.TrimSpace(email) == "" || strings.TrimSpace(code) == "" {
		return newError(ErrorValidation, "missing_email_or_code", nil)
	}
	if err := s.identity.ConfirmSignUp(ctx, email, code); err != nil {
		return newError(ErrorValidation, "confirmation_rejected", err)
	}
	return nil
}

type SignInOutput struct {
	Tokens cognito.Tokens `json:"tokens"`
	User   domain.User    `json:"user"`
}

// SignIn authenticates against the identity provider and joins the token set
// with the core user record.
func (s *UserService) SignIn(ctx context.Context, email, password string) (SignInOutput, error) {
	if strings.TrimSpace(email) == "" || password == "" {
		return SignInOutput{}, newError(ErrorValidation, "missing_credentials", nil)
	}
	tokens, err := s.identity.SignIn(ctx, email, password)
	if err != nil {
		if errors.Is(err, cognito.ErrNotAuthorized) {
			return SignInOutput{}, newError(ErrorAuthFailure, "invalid_credentials", err)
		}
		return SignInOutput{}, newError(ErrorInternal, "identity_signin_error", err)
	}

	sub, err := identitySubject(tokens.IDToken)
	if err != nil {
		return SignInOutput{}, newError(ErrorInternal, "token_subject_error", err)
	}
	user, err := s.users.GetUser(ctx, sub)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return SignInOutput{}, newError(ErrorAuthFailure, "unprovisioned_user", nil)
		}
		return SignInOutput{}, newError(ErrorStorage, "user_record_read_error", err)
	}
	return SignInOutput{Tokens: tokens, User: user}, nil
}

// GetProfile returns the user record by id.
func (s *UserService) GetProfile(ctx context.Context, userID string) (domain.User, error) {
	if strings.TrimSpace(userID) == "" {
		return domain.User{}, newError(ErrorValidation, "missing_user_id", nil)
	}
	user, err := s.users.GetUser(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.User{}, newError(ErrorNotFound, "user_not_found", nil)
		}
		return domain.User{}, newError(ErrorStorage, "user_record_read_error", err)
	}
	return user, nil
}

// UpdateProfile sets the display name and returns the updated record.
func (s *UserService) UpdateProfile(ctx context.Context, userID, name string) (domain.User, error) {
	if strings.TrimSpace(userID) == "" {
		return domain.User{}, newError(ErrorValidation, "missing_user_id", nil)
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return domain.User{}, newError(ErrorValidation, "missing_name", nil)
	}
	now := s.now().UTC().Format(timeLayout)
	if err := s.users.UpdateUserName(ctx, userID, name, now); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.User{}, newError(ErrorNotFound, "user_not_found", nil)
		}
		return domain.User{}, newError(ErrorStorage, "user_record_update_error", err)
	}
	user, err := s.users.GetUser(ctx, userID)
	if err != nil {
		return domain.User{}, newError(ErrorStorage, "user_record_read_error", err)
	}
	return user, nil
}

// ResolveActor turns an authenticated subject into the policy actor for
// admin routes.
func (s *UserService) ResolveActor(ctx context.Context, userID string) (domain.Actor, error) {
	if strings.TrimSpace(userID) == "" {
		return domain.Actor{}, newError(ErrorAuthFailure, "missing_subject", nil)
	}
	user, err := s.users.GetUser(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.Actor{}, newError(ErrorAuthFailure, "unknown_actor", nil)
		}
		return domain.Actor{}, newError(ErrorStorage, "user_record_read_error", err)
	}
	return user.AsActor(), nil
}

// ListUsers returns the users visible to the actor, with the scope filter
// forced by the actor's role.
func (s *UserService) ListUsers(ctx context.Context, actor domain.Actor, organizationID string) ([]domain.User, error) {
	var filter repository.UserFilter
	switch actor.Role {
	case domain.RoleSystemAdmin:
		filter.OrganizationID = organizationID
	case domain.RoleOrgAdmin:
		filter.OrganizationID = actor.OrganizationID
	case domain.RoleCompanyAdmin:
		filter.CompanyID = actor.CompanyID
	default:
		return nil, newError(ErrorForbiddenRole, "role_cannot_list_users", nil)
	}

	users, err := s.users.ListUsers(ctx, filter)
	if err != nil {
		return nil, newError(ErrorStorage, "list_users_error", err)
	}
	return users, nil
}

type CreateUserInput struct {
	Email             string
	Name              string
	Role              domain.Role
	OrganizationID    string
	CompanyID         string
	DepartmentID      string
	TemporaryPassword string
}

type CreateUserOutput struct {
	User domain.User `json:"user"`
	// TemporaryPassword is returned exactly once; the user must change it on
	// first sign-in.
	TemporaryPassword string `json:"temporaryPassword"`
}

// CreateUser provisions a user on behalf of an admin, applying the
// role-creation matrix before touching the identity provider.
func (s *UserService) CreateUser(ctx context.Context, actor domain.Actor, in CreateUserInput) (CreateUserOutput, error) {
	email := strings.TrimSpace(in.Email)
	if email == "" || !strings.Contains(email, "@") {
		return CreateUserOutput{}, newError(ErrorValidation, "invalid_email", nil)
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return CreateUserOutput{}, newError(ErrorValidation, "missing_name", nil)
	}
	if !domain.ValidRole(in.Role) {
		return CreateUserOutput{}, newError(ErrorValidation, "invalid_role", nil)
	}
	if !domain.CanCreateUser(actor, in.Role, in.OrganizationID, in.CompanyID) {
		return CreateUserOutput{}, newError(ErrorForbiddenRole, "role_creation_not_allowed", nil)
	}

	tempPassword := in.TemporaryPassword
	if tempPassword == "" {
		generated, err := generateTempPassword()
		if err != nil {
			return CreateUserOutput{}, newError(ErrorInternal, "password_generation_error", err)
		}
		tempPassword = generated
	}

	attrs := map[string]string{"custom:role": string(in.Role)}
	if in.OrganizationID != "" {
		attrs["custom:organizationId"] = in.OrganizationID
	}
	if in.CompanyID != "" {
		attrs["custom:companyId"] = in.CompanyID
	}
	if in.DepartmentID != "" {
		attrs["custom:departmentId"] = in.DepartmentID
	}
	identityID, err := s.identity.AdminCreateUser(ctx, email, name, attrs, tempPassword)
	if err != nil {
		return CreateUserOutput{}, newError(ErrorInternal, "identity_create_error", err)
	}

	now := s.now().UTC().Format(timeLayout)
	user := domain.User{
		UserID:         identityID,
		Email:          email,
		Name:           name,
		Role:           in.Role,
		OrganizationID: in.OrganizationID,
		CompanyID:      in.CompanyID,
		DepartmentID:   in.DepartmentID,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.users.PutUser(ctx, user); err != nil {
		return CreateUserOutput{}, newError(ErrorStorage, "user_record_put_error", err)
	}
	s.logger.Info("user provisioned",
		zap.String("userId", identityID),
		zap.String("role", string(in.Role)),
		zap.String("createdBy", actor.UserID),
	)
	return CreateUserOutput{User: user, TemporaryPassword: tempPassword}, nil
}

// identitySubject extracts the sub claim from a JWT without verifying the
// signature. Only used on tokens received directly from the identity
// provider over its own TLS channel; gateway-supplied tokens go through the
// auth package instead.
func identitySubject(token string) (string, error) {
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return "", errors.New("usecase: malformed identity token")
	}
	payload, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		return "", fmt.Errorf("usecase: decode identity token: %w", err)
	}
	var claims struct {
		Sub string `json:"sub"`
	}
	if err := json.Unmarshal(payload, &claims); err != nil {
		return "", fmt.Errorf("usecase: parse identity token: %w", err)
	}
	if claims.Sub == "" {
		return "", errors.New("usecase: identity token has no subject")
	}
	return claims.Sub, nil
}

// generateTempPassword builds an opaque mixed-class password that satisfies
// the pool's complexity policy.
func generateTempPassword() (string, error) {
	classes := []string{
		"ABCDEFGHJKLMNPQRSTUVWXYZ",
		"abcdefghijkmnopqrstuvwxyz",
		"23456789",
		"!@#$%^&*",
	}
	all := strings.Join(classes, "")

	chars := make([]byte, 0, tempPasswordLength)
	for _, class := range classes {
		c, err := randomChar(class)
		if err != nil {
			return "", err
		}
		chars = append(chars, c)
	}
	for len(chars) < tempPasswordLength {
		c, err := randomChar(all)
		if err != nil {
			return "", err
		}
		chars = append(chars, c)
	}
	for i := len(chars) - 1; i > 0; i-- {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(i+1)))
		if err != nil {
			return "", err
		}
		j := n.Int64()
		chars[i], chars[j] = chars[j], chars[i]
	}
	return string(chars), nil
}

func randomChar(alphabet string) (byte, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(int64(len(alphabet))))
	if err != nil {
		return 0, fmt.Errorf("usecase: random char: %w", err)
	}
	return alphabet[n.Int64()], nil
}
