package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/dverbovs/casekeeper/internal/common"
)

func (a *App) Login(ctx context.Context) error {
	username, err := GetSimpleText(a.reader, "Enter username", a.out)
	if err != nil {
		return err
	}
	password, err := GetPassword(a.out)
	if err != nil {
		return err
	}

	if err := a.auth.Login(ctx, username, password); err != nil {
		if errors.Is(err, common.ErrorInvalidLoginPassword) {
			fmt.Fprintln(a.out, "Invalid username or password")
		} else {
			fmt.Fprintf(a.out, "Login failed: %s\n", err)
		}
		return err
	}

	fmt.Fprintf(a.out, "Signed in as %s\n", username)
	return nil
}

func (a *App) Register(ctx context.Context) error {
	username, err := GetSimpleText(a.reader, "Choose a username", a.out)
	if err != nil {
		return err
	}
	password, err := GetPassword(a.out)
	if err != nil {
		return err
	}

	if err := a.auth.Register(ctx, username, password); err != nil {
		if errors.Is(err, common.ErrorLoginAlreadyExists) {
			fmt.Fprintln(a.out, "That username is taken")
		} else {
			fmt.Fprintf(a.out, "Registration failed: %s\n", err)
		}
		return err
	}

	fmt.Fprintln(a.out, "Registered; use 'login' to sign in")
	return nil
}
