package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/gophsend/internal/common"
)

// getSimpleText and getPassword are indirections used to facilitate testing.
// They point to interactive input helpers and can be swapped in tests.
var getSimpleText = GetSimpleText
var getPassword = GetPassword

// Login runs the OAuth flow: it prints the authorization URL, reads back the
// code and state, and offers to seal the new session with a local
// passphrase so it survives a restart.
func (a *App) Login(ctx context.Context) error {
	authURL, err := a.keys.StartLogin(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Open this URL in a browser and approve the login:")
	fmt.Fprintln(a.out, authURL)

	input, err := getSimpleText(a.reader, "Paste the callback URL, or the code and state", a.out)
	if err != nil {
		return err
	}
	code, state, err := ParseCallback(input)
	if err != nil {
		return err
	}

	session, err := a.keys.FinishLogin(ctx, code, state)
	if err != nil {
		return err
	}
	a.setSession(session)
	fmt.Fprintf(a.out, "Logged in as %s\n", session.Profile().Email)

	passphrase, err := getPassword(a.out, "Local passphrase to keep the session (empty to skip): ")
	if err != nil {
		return err
	}
	defer common.WipeByteArray(passphrase)
	if len(passphrase) > 0 {
		if err := a.auth.SealSession(ctx, session, passphrase); err != nil {
			return fmt.Errorf("seal session: %w", err)
		}
	}

	_, err = a.sync(ctx)
	return err
}

// Unlock restores the sealed session. An expired session is discarded.
func (a *App) Unlock(ctx context.Context) error {
	passphrase, err := getPassword(a.out, "Local passphrase: ")
	if err != nil {
		return err
	}
	defer common.WipeByteArray(passphrase)

	session, err := a.auth.UnlockSession(ctx, passphrase)
	if err != nil {
		if errors.Is(err, common.ErrUnauthorized) {
			return errors.New("wrong passphrase")
		}
		return err
	}
	if session.Expired(timeNow()) {
		if err := a.auth.ForgetSession(ctx, session); err != nil {
			return err
		}
		return errors.New("the saved session has expired, please log in")
	}

	a.setSession(session)
	fmt.Fprintf(a.out, "Welcome back, %s\n", session.Profile().Email)
	return nil
}

// Logout signs out and forgets the local file list.
func (a *App) Logout(ctx context.Context) error {
	session := a.currentSession()
	if err := a.auth.Logout(ctx, session); err != nil {
		return err
	}
	a.setSession(nil)
	fmt.Fprintln(a.out, "Logged out")
	return nil
}
