package cli

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/kinlink/internal/client/models"
	"github.com/dmitrijs2005/kinlink/internal/client/notice"
	"github.com/dmitrijs2005/kinlink/internal/client/pipeline"
	"github.com/dmitrijs2005/kinlink/internal/common"
)

// Open runs raw through the link pipeline. When nobody is signed in the
// link is saved and opened after the next login instead.
func (a *App) Open(ctx context.Context, raw string, source models.LinkSource) error {
	if !a.isLoggedIn() {
		link, ok := a.codec.ParseLink(raw)
		if !ok {
			printNotice(a.out, notice.InvalidLink)
			return common.ErrInvalidFormat
		}
		if err := a.deferred.Save(ctx, link.ID, source, link.Referrer); err != nil {
			return err
		}
		fmt.Fprintln(a.out, "You are not signed in. The profile will open after login.")
		return nil
	}

	res := a.links.ResolveLink(ctx, raw, source)
	if res.Outcome == pipeline.OutcomeIgnored {
		a.logger.Debug(ctx, "link ignored", "raw", raw)
	}
	return res.Err
}

// Share prints the links for code, or for the user's own profile when code
// is empty. Links carry the user's share code as referrer.
func (a *App) Share(ctx context.Context, code string) error {
	self, ok := a.authService.Self(ctx)
	if !a.isLoggedIn() || !ok {
		fmt.Fprintln(a.out, "Sign in to share profiles")
		return nil
	}

	target, referrer := code, self.ShareCode
	if target == "" {
		target, referrer = self.ShareCode, ""
	}

	link := a.codec.BuildLink(target, referrer)
	if link == "" {
		printNotice(a.out, notice.InvalidLink)
		return common.ErrInvalidFormat
	}
	fmt.Fprintln(a.out, link)
	fmt.Fprintln(a.out, a.codec.BuildAppLink(target, referrer))
	return nil
}

// Sync pulls the family graph from the registry.
func (a *App) Sync(ctx context.Context) error {
	if !a.isLoggedIn() {
		fmt.Fprintln(a.out, "Sign in to sync")
		return nil
	}
	n, err := a.syncer.Sync(ctx)
	if err != nil {
		fmt.Fprintf(a.out, "Sync failed: %s\n", err)
		return err
	}
	fmt.Fprintf(a.out, "Synced %d profiles\n", n)
	return nil
}
