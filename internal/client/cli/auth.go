package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/jagcoaching/speechcoach/internal/client/client"
	"github.com/jagcoaching/speechcoach/internal/common"
)

// getSimpleText and getPassword are indirections used to facilitate testing.
// They point to interactive input helpers and can be swapped in tests.
var getSimpleText = GetSimpleText
var getPassword = GetPassword

func (a *App) promptCredentials() (string, []byte, error) {
	email, err := getSimpleText(a.reader, "Enter email", a.out)
	if err != nil {
		return "", nil, err
	}
	password, err := getPassword(a.out)
	if err != nil {
		return "", nil, err
	}
	return email, password, nil
}

// Register prompts for an email and password and creates the account.
func (a *App) Register(ctx context.Context) error {
	email, password, err := a.promptCredentials()
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	if err := a.api.Register(ctx, email, password); err != nil {
		if errors.Is(err, client.ErrConflict) {
			return fmt.Errorf("%s is already registered", email)
		}
		return err
	}

	a.printf("Registered %s. Run 'login' to start a session.\n", email)
	return nil
}

// Login prompts for credentials and stores the issued token pair.
func (a *App) Login(ctx context.Context) error {
	email, password, err := a.promptCredentials()
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	tokens, err := a.api.Login(ctx, email, password)
	if err != nil {
		return err
	}
	if err := a.store.Save(tokens); err != nil {
		return fmt.Errorf("saving tokens: %w", err)
	}

	a.printf("Logged in as %s\n", email)
	return nil
}

// Refresh rotates the stored refresh token. A rejected token clears the
// store, since it can never be used again.
func (a *App) Refresh(ctx context.Context) error {
	if _, err := a.refresh(ctx); err != nil {
		return err
	}
	a.printf("Session refreshed\n")
	return nil
}

func (a *App) refresh(ctx context.Context) (*client.Tokens, error) {
	current, err := a.store.Load()
	if err != nil {
		return nil, err
	}

	tokens, err := a.api.Refresh(ctx, current.RefreshToken)
	if err != nil {
		if errors.Is(err, client.ErrUnauthorized) {
			_ = a.store.Clear()
			return nil, fmt.Errorf("session expired, please log in again: %w", err)
		}
		return nil, err
	}
	if err := a.store.Save(tokens); err != nil {
		return nil, fmt.Errorf("saving tokens: %w", err)
	}
	return tokens, nil
}

// Logout ends the stored session, or every session of the user when all is
// set, and forgets the local tokens.
func (a *App) Logout(ctx context.Context, all bool) error {
	tokens, err := a.store.Load()
	if err != nil {
		return err
	}

	refreshToken := tokens.RefreshToken
	if all {
		refreshToken = ""
	}

	err = a.api.Logout(ctx, tokens.AccessToken, refreshToken)
	if errors.Is(err, client.ErrUnauthorized) {
		if tokens, err = a.refresh(ctx); err == nil {
			if all {
				refreshToken = ""
			} else {
				refreshToken = tokens.RefreshToken
			}
			err = a.api.Logout(ctx, tokens.AccessToken, refreshToken)
		}
	}
	if cerr := a.store.Clear(); cerr != nil {
		return cerr
	}
	if err != nil {
		return err
	}

	a.printf("Logged out\n")
	return nil
}

// Whoami prints the current user, refreshing the access token once if it has
// expired.
func (a *App) Whoami(ctx context.Context) error {
	tokens, err := a.store.Load()
	if err != nil {
		return err
	}

	user, err := a.api.Me(ctx, tokens.AccessToken)
	if errors.Is(err, client.ErrUnauthorized) {
		if tokens, err = a.refresh(ctx); err == nil {
			user, err = a.api.Me(ctx, tokens.AccessToken)
		}
	}
	if err != nil {
		return err
	}

	a.printf("%s (id %s, active %t, since %s)\n", user.Email, user.ID, user.IsActive, user.CreatedAt.Format("2006-01-02"))
	return nil
}
