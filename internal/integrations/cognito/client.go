// Package cognito adapts the Cognito user pool as the identity provider
// capability: sign-up, confirmation, password sign-in and administrative
// user creation. Passwords never reach the rest of the core.
package cognito

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	cip "github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider"
	"github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider/types"
)

// cognitoAPI is the minimal Cognito interface required by Client.
type cognitoAPI interface {
	SignUp(ctx context.Context, in *cip.SignUpInput, optFns ...func(*cip.Options)) (*cip.SignUpOutput, error)
	ConfirmSignUp(ctx context.Context, in *cip.ConfirmSignUpInput, optFns ...func(*cip.Options)) (*cip.ConfirmSignUpOutput, error)
	InitiateAuth(ctx context.Context, in *cip.InitiateAuthInput, optFns ...func(*cip.Options)) (*cip.InitiateAuthOutput, error)
	AdminCreateUser(ctx context.Context, in *cip.AdminCreateUserInput, optFns ...func(*cip.Options)) (*cip.AdminCreateUserOutput, error)
}

// ErrNotAuthorized is returned on bad credentials or unconfirmed accounts.
var ErrNotAuthorized = errors.New("cognito: not authorized")

// Tokens is the result of a successful password sign-in.
type Tokens struct {
	AccessToken  string `json:"accessToken"`
	IDToken      string `json:"idToken"`
	RefreshToken string `json:"refreshToken"`
	ExpiresIn    int32  `json:"expiresIn"`
}

// Client wraps a Cognito user pool.
type Client struct {
	api      cognitoAPI
	poolID   string
	clientID string
}

// New creates a Client for the given user pool and app client.
func New(api cognitoAPI, poolID, clientID string) (*Client, error) {
	if api == nil {
		return nil, errors.New("cognito: api must not be nil")
	}
	if strings.TrimSpace(poolID) == "" {
		return nil, errors.New("cognito: user pool id must not be empty")
	}
	if strings.TrimSpace(clientID) == "" {
		return nil, errors.New("cognito: client id must not be empty")
	}
	return &Client{api: api, poolID: poolID, clientID: clientID}, nil
}

// SignUp registers a self-service user. The returned id is the pool's
// subject identifier, persisted verbatim as the core userId.
func (c *Client) SignUp(ctx context.Context, email, password, name string) (identityID string, confirmed bool, err error) {
	out, err := c.api.SignUp(ctx, &cip.SignUpInput{
		ClientId: aws.String(c.clientID),
		Username: aws.String(email),
		Password: aws.String(password),
		UserAttributes: []types.AttributeType{
			{Name: aws.String("email"), Value: aws.String(email)},
			{Name: aws.String("name"), Value: aws.String(name)},
		},
	})
	if err != nil {
		return "", false, fmt.Errorf("cognito: SignUp: %w", err)
	}
	if out == nil || out.UserSub == nil {
		return "", false, errors.New("cognito: SignUp: missing user sub")
	}
	return *out.UserSub, out.UserConfirmed, nil
}

// ConfirmSignUp completes email verification with the mailed code.
func (c *Client) ConfirmSignUp(ctx context.Context, email, code string) error {
	_, err := c.api.ConfirmSignUp(ctx, &cip.ConfirmSignUpInput{
		ClientId:         aws.String(c.clientID),
		Username:         aws.String(email),
		ConfirmationCode: aws.String(code),
	})
	if err != nil {
		return fmt.Errorf("cognito: ConfirmSignUp: %w", err)
	}
	return nil
}

// SignIn performs USER_PASSWORD_AUTH and returns the token set.
func (c *Client) SignIn(ctx context.Context, email, password string) (Tokens, error) {
	out, err := c.api.InitiateAuth(ctx, &cip.InitiateAuthInput{
		AuthFlow: types.AuthFlowTypeUserPasswordAuth,
		ClientId: aws.String(c.clientID),
		AuthParameters: map[string]string{
			"USERNAME": email,
			"PASSWORD": password,
		},
	})
	if err != nil {
		var notAuth *types.NotAuthorizedException
		var notConfirmed *types.UserNotConfirmedException
		var notFound *types.UserNotFoundException
		if errors.As(err, &notAuth) || errors.As(err, &notConfirmed) || errors.As(err, &notFound) {
			return Tokens{}, ErrNotAuthorized
		}
		return Tokens{}, fmt.Errorf("cognito: SignIn: %w", err)
	}
	if out == nil || out.AuthenticationResult == nil {
		return Tokens{}, errors.New("cognito: SignIn: missing authentication result")
	}
	res := out.AuthenticationResult
	return Tokens{
		AccessToken:  aws.ToString(res.AccessToken),
		IDToken:      aws.ToString(res.IdToken),
		RefreshToken: aws.ToString(res.RefreshToken),
		ExpiresIn:    res.ExpiresIn,
	}, nil
}

// AdminCreateUser provisions a user with a temporary password and the
// welcome mail suppressed. attrs are extra pool attributes (custom scopes).
func (c *Client) AdminCreateUser(ctx context.Context, email, name string, attrs map[string]string, temporaryPassword string) (string, error) {
	userAttrs := []types.AttributeType{
		{Name: aws.String("email"), Value: aws.String(email)},
		{Name: aws.String("email_verified"), Value: aws.String("true")},
		{Name: aws.String("name"), Value: aws.String(name)},
	}
	for k, v := range attrs {
		userAttrs = append(userAttrs, types.AttributeType{Name: aws.String(k), Value: aws.String(v)})
	}

	out, err := c.api.AdminCreateUser(ctx, &cip.AdminCreateUserInput{
		UserPoolId:        aws.String(c.poolID),
		Username:          aws.String(email),
		TemporaryPassword: aws.String(temporaryPassword),
		MessageAction:     types.MessageActionTypeSuppress,
		UserAttributes:    userAttrs,
	})
	if err != nil {
		return "", fmt.Errorf("cognito: AdminCreateUser: %w", err)
	}
	if out == nil || out.User == nil {
		return "", errors.New("cognito: AdminCreateUser: missing user")
	}
	for _, attr := range out.User.Attributes {
		if aws.ToString(attr.Name) == "sub" {
			return aws.ToString(attr.Value), nil
		}
	}
	return "", errors.New("cognito: AdminCreateUser: user has no sub attribute")
}
