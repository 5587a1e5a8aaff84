package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"
)

// RemoteProvider manages accounts at a hosted identity provider through its
// backend REST API, authenticated with the instance secret key.
type RemoteProvider struct {
	baseURL string
	client  *http.Client
}

func NewRemoteProvider(baseURL, secretKey string, timeout time.Duration) *RemoteProvider {
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: secretKey, TokenType: "Bearer"})
	client := oauth2.NewClient(context.Background(), ts)
	client.Timeout = timeout

	return &RemoteProvider{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  client,
	}
}

type remoteUser struct {
	ID             string   `json:"id"`
	FirstName      string   `json:"first_name"`
	LastName       string   `json:"last_name"`
	EmailAddress   string   `json:"primary_email_address"`
	PhoneNumber    string   `json:"primary_phone_number"`
	PublicMetadata Metadata `json:"public_metadata"`
}

type remoteErrors struct {
	Errors []struct {
		Code        string `json:"code"`
		Message     string `json:"message"`
		LongMessage string `json:"long_message"`
	} `json:"errors"`
}

func (p *RemoteProvider) CreateAccount(ctx context.Context, account NewAccount) (string, error) {
	if err := account.Metadata.Validate(); err != nil {
		return "", err
	}

	req := struct {
		EmailAddress            []string `json:"email_address"`
		FirstName               string   `json:"first_name"`
		LastName                string   `json:"last_name"`
		Password                string   `json:"password,omitempty"`
		SkipPasswordChecks      bool     `json:"skip_password_checks,omitempty"`
		SkipPasswordRequirement bool     `json:"skip_password_requirement,omitempty"`
		PublicMetadata          Metadata `json:"public_metadata"`
	}{
		EmailAddress:            []string{account.Email},
		FirstName:               account.GivenName,
		LastName:                account.FamilyName,
		Password:                account.Password,
		SkipPasswordChecks:      account.SkipPasswordChecks,
		SkipPasswordRequirement: account.SkipPasswordChecks,
		PublicMetadata:          account.Metadata,
	}

	var user remoteUser
	if err := p.do(ctx, http.MethodPost, "/users", req, &user); err != nil {
		return "", err
	}
	if user.ID == "" {
		return "", &Error{Status: http.StatusOK, Message: "provider returned an account without id"}
	}

	return user.ID, nil
}

func (p *RemoteProvider) UpdateAccount(ctx context.Context, id string, changes AccountChanges, metadata *Metadata) error {
	if !changes.Empty() {
		req := struct {
			FirstName    *string `json:"first_name,omitempty"`
			LastName     *string `json:"last_name,omitempty"`
			EmailAddress *string `json:"primary_email_address,omitempty"`
			PhoneNumber  *string `json:"primary_phone_number,omitempty"`
		}{
			FirstName:    changes.GivenName,
			LastName:     changes.FamilyName,
			EmailAddress: changes.Email,
			PhoneNumber:  changes.Phone,
		}
		if err := p.do(ctx, http.MethodPatch, "/users/"+url.PathEscape(id), req, nil); err != nil {
			return err
		}
	}

	if metadata != nil {
		if err := metadata.Validate(); err != nil {
			return err
		}
		req := struct {
			PublicMetadata Metadata `json:"public_metadata"`
		}{PublicMetadata: *metadata}
		if err := p.do(ctx, http.MethodPatch, "/users/"+url.PathEscape(id)+"/metadata", req, nil); err != nil {
			return err
		}
	}

	return nil
}

func (p *RemoteProvider) GetAccount(ctx context.Context, id string) (*Account, error) {
	var user remoteUser
	if err := p.do(ctx, http.MethodGet, "/users/"+url.PathEscape(id), nil, &user); err != nil {
		return nil, err
	}

	return &Account{
		ID:         user.ID,
		Email:      user.EmailAddress,
		GivenName:  user.FirstName,
		FamilyName: user.LastName,
		Phone:      user.PhoneNumber,
		Metadata:   user.PublicMetadata,
	}, nil
}

func (p *RemoteProvider) DeleteAccount(ctx context.Context, id string) error {
	err := p.do(ctx, http.MethodDelete, "/users/"+url.PathEscape(id), nil, nil)
	if IsNotFound(err) {
		// already gone
		return nil
	}
	return err
}

func (p *RemoteProvider) do(ctx context.Context, method, path string, body, dst any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, p.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return decodeRemoteError(resp)
	}

	if dst == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func decodeRemoteError(resp *http.Response) error {
	perr := &Error{Status: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}

	var payload remoteErrors
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil || len(payload.Errors) == 0 {
		if resp.StatusCode == http.StatusNotFound {
			perr.Code = CodeNotFound
		}
		return perr
	}

	first := payload.Errors[0]
	perr.Code = first.Code
	perr.Message = first.Message
	if first.LongMessage != "" {
		perr.Message = first.LongMessage
	}
	return perr
}
