package provision

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"

	admin "google.golang.org/api/admin/directory/v1"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/perarneng/autoboard/pkg/googleauth"
	"github.com/perarneng/autoboard/pkg/interfaces"
)

// GoogleScopes are needed to insert users through the Admin SDK.
var GoogleScopes = []string{admin.AdminDirectoryUserScope}

// GoogleDirectory creates users in Google Workspace.
type GoogleDirectory struct {
	service *admin.Service
	logger  interfaces.Logger
}

// NewGoogleDirectory authorises with the installed-app token shared with
// the Gmail watcher.
func NewGoogleDirectory(ctx context.Context, auth googleauth.Options, logger interfaces.Logger) (*GoogleDirectory, error) {
	httpClient, err := googleauth.HTTPClient(ctx, auth)
	if err != nil {
		return nil, err
	}
	return newGoogleDirectory(ctx, logger, option.WithHTTPClient(httpClient))
}

func newGoogleDirectory(ctx context.Context, logger interfaces.Logger, opts ...option.ClientOption) (*GoogleDirectory, error) {
	srv, err := admin.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("unable to create Admin Directory client: %w", err)
	}
	return &GoogleDirectory{service: srv, logger: logger}, nil
}

func (g *GoogleDirectory) Name() string {
	return "google"
}

// CreateUser inserts the user in the root organisational unit with a
// password that must be changed at first login.
func (g *GoogleDirectory) CreateUser(ctx context.Context, account interfaces.Account) (*interfaces.CreatedUser, error) {
	user := &admin.User{
		PrimaryEmail: account.Email,
		Name: &admin.UserName{
			GivenName:  account.FirstName,
			FamilyName: account.LastName,
		},
		Password:                  account.Password,
		ChangePasswordAtNextLogin: true,
		OrgUnitPath:               "/",
		Organizations: []*admin.UserOrganization{{
			Title:      account.JobTitle,
			Department: account.Department,
			Primary:    true,
		}},
	}

	created, err := g.service.Users.Insert(user).Context(ctx).Do()
	if err != nil {
		g.logger.Error(fmt.Sprintf("Google user creation failed for %s: %v", account.Email, err))
		return nil, googleError(account.Email, err)
	}

	g.logger.Info(fmt.Sprintf("Google user created successfully: %s", account.Email))
	return &interfaces.CreatedUser{
		Provider: g.Name(),
		ID:       created.Id,
		Email:    created.PrimaryEmail,
	}, nil
}

func googleError(email string, err error) error {
	e := &Error{Provider: "google", Err: err}

	var apiErr *googleapi.Error
	var opErr *net.OpError
	switch {
	case errors.As(err, &apiErr):
		e.Code = fmt.Sprint(apiErr.Code)
		switch apiErr.Code {
		case http.StatusConflict:
			e.Kind = ErrUserExists
			e.Message = fmt.Sprintf("User %s already exists in Google Workspace.", email)
		case http.StatusForbidden:
			e.Kind = ErrInsufficientPermissions
			e.Message = "Insufficient permissions to create Google user. Please check your admin roles and scopes."
		case http.StatusBadRequest:
			if strings.Contains(apiErr.Message, "Invalid password") {
				e.Kind = ErrInvalidPassword
				e.Message = "Google Password Error: Password does not meet complexity requirements."
			} else {
				e.Kind = ErrValidation
				e.Message = fmt.Sprintf("Google Validation Error: %s", apiErr.Message)
			}
		default:
			e.Message = fmt.Sprintf("Google Error (%d): %s", apiErr.Code, apiErr.Message)
		}
	case errors.As(err, &opErr):
		e.Kind = ErrNetwork
		e.Message = "Network Error: Could not connect to Google API. Please check your internet connection."
	default:
		e.Message = fmt.Sprintf("Google API Error: %v", err)
	}
	return e
}
