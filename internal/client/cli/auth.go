package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/kinlink/internal/client/client"
	"github.com/dmitrijs2005/kinlink/internal/common"
)

// getSimpleText and getPassword are indirections used to facilitate testing.
// They point to interactive input helpers and can be swapped in tests.
var getSimpleText = GetSimpleText
var getPassword = GetPassword

// Register prompts for an email, a password and a display name, creates the
// account and prints the share link of the new profile.
// The password byte slice is wiped before returning.
func (a *App) Register(ctx context.Context) error {
	userName, err := getSimpleText(a.reader, "Enter email", a.out)
	if err != nil {
		return err
	}

	password, err := getPassword(a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	displayName, err := getSimpleText(a.reader, "Enter your name (shown on your profile)", a.out)
	if err != nil {
		return err
	}

	self, err := a.authService.Register(ctx, userName, password, displayName)
	if err != nil {
		fmt.Fprintf(a.out, "Registration failed: %s\n", err)
		return err
	}

	fmt.Fprintln(a.out, "Success!")
	if self != nil {
		fmt.Fprintf(a.out, "Your share code is %s: %s\n", self.ShareCode, a.codec.BuildLink(self.ShareCode, ""))
	}
	return nil
}

// Login prompts the user for credentials and tries to authenticate.
//
// The method first attempts an online login. If the server is unavailable
// (errors.Is(err, client.ErrUnavailable)), it falls back to offline login.
// On success it sets a.masterKey and updates Mode:
//   - ModeOnline if online login succeeds,
//   - ModeOffline if offline login succeeds,
//   - ModeDisabled if both fail.
//
// After a successful login the pending deferred link, if any, is opened.
// The password is wiped before returning.
func (a *App) Login(ctx context.Context) error {
	userName, err := getSimpleText(a.reader, "Enter email", a.out)
	if err != nil {
		return err
	}

	password, err := getPassword(a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	var (
		masterKey []byte
		mode      Mode
	)

	masterKey, err = a.authService.OnlineLogin(ctx, userName, password)
	if err != nil {
		if errors.Is(err, client.ErrUnavailable) {
			a.logger.Warn(ctx, "server unavailable, trying offline login")
			masterKey, err = a.authService.OfflineLogin(ctx, userName, password)
			if err != nil {
				fmt.Fprintf(a.out, "Offline login unsuccessful: %s\n", err)
				mode = ModeDisabled
			} else {
				fmt.Fprintln(a.out, "Signed in offline")
				mode = ModeOffline
			}
		} else {
			fmt.Fprintf(a.out, "Login unsuccessful: %s\n", err)
		}
	} else {
		fmt.Fprintln(a.out, "Signed in")
		mode = ModeOnline
	}

	a.masterKey = masterKey
	if masterKey != nil {
		a.userName = userName
	}
	a.setMode(ctx, mode)

	if err != nil {
		return err
	}

	if _, ok := a.links.ConsumeDeferred(ctx); ok {
		a.logger.Debug(ctx, "deferred link opened after login")
	}
	return nil
}

// Logout drops the session together with every locally cached piece of
// user data, including the synced graph.
func (a *App) Logout(ctx context.Context) error {
	if err := a.authService.Logout(ctx); err != nil {
		return err
	}
	if err := a.syncer.Clear(ctx); err != nil {
		a.logger.Warn(ctx, "failed to clear local graph", "error", err)
	}
	a.masterKey = nil
	a.userName = ""
	fmt.Fprintln(a.out, "Signed out")
	return nil
}

// WhoAmI prints the signed-in user's profile.
func (a *App) WhoAmI(ctx context.Context) error {
	self, ok := a.authService.Self(ctx)
	if !a.isLoggedIn() || !ok {
		fmt.Fprintln(a.out, "Not signed in")
		return nil
	}
	fmt.Fprintf(a.out, "%s: profile %s, share code %s\n", a.userName, self.ProfileID, self.ShareCode)
	return nil
}
