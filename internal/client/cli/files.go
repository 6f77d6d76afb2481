package cli

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/dmitrijs2005/gophsend/internal/client/models"
	"github.com/dmitrijs2005/gophsend/internal/common"
	"github.com/dustin/go-humanize"
)

// timeNow is a test seam for the clock.
var timeNow = time.Now

// List prints the owned files.
func (a *App) List(ctx context.Context) error {
	files, err := a.store.Files(ctx)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		fmt.Fprintln(a.out, "No files")
		return nil
	}

	w := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tSIZE\tDOWNLOADS\tEXPIRES\tPASSWORD")
	for _, f := range files {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d/%d\t%s\t%s\n",
			f.ID, f.Name, humanize.IBytes(uint64(f.Size)),
			f.DownloadCount, f.DownloadLimit, expiry(f), yesNo(f.HasPassword))
	}
	return w.Flush()
}

func expiry(f *models.OwnedFile) string {
	if f.Expired(timeNow()) {
		return "expired"
	}
	return humanize.Time(f.ExpiresAt)
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

// Sync reconciles the owned file list with the account, or prunes it
// locally when signed out.
func (a *App) Sync(ctx context.Context) error {
	res, err := a.sync(ctx)
	if err != nil {
		return err
	}
	switch {
	case res.Incoming || res.DownloadCount:
		fmt.Fprintln(a.out, "File list updated")
	case res.Outgoing:
		fmt.Fprintln(a.out, "Account file list updated")
	default:
		fmt.Fprintln(a.out, "Up to date")
	}
	return nil
}

func oneID(args []string, usage string) (string, error) {
	if len(args) != 1 {
		return "", errors.New("usage: " + usage)
	}
	return args[0], nil
}

// afterChange pushes a local change to the account when signed in.
func (a *App) afterChange(ctx context.Context) {
	if !a.isLoggedIn() {
		return
	}
	if _, err := a.sync(ctx); err != nil {
		a.logger.Warn(ctx, "sync failed", "error", err)
	}
}

func (a *App) Delete(ctx context.Context, args []string) error {
	id, err := oneID(args, "delete <id>")
	if err != nil {
		return err
	}
	if err := a.files.Delete(ctx, id); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Deleted", id)
	a.afterChange(ctx)
	return nil
}

func (a *App) Password(ctx context.Context, args []string) error {
	id, err := oneID(args, "password <id>")
	if err != nil {
		return err
	}
	pw, err := getPassword(a.out, "New password: ")
	if err != nil {
		return err
	}
	defer common.WipeByteArray(pw)

	if err := a.files.SetPassword(ctx, id, string(pw)); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Password set")
	a.afterChange(ctx)
	return nil
}

func (a *App) Limit(ctx context.Context, args []string) error {
	if len(args) != 2 {
		return errors.New("usage: limit <id> <downloads>")
	}
	n, err := strconv.Atoi(args[1])
	if err != nil {
		return fmt.Errorf("invalid download limit %q", args[1])
	}
	if err := a.files.ChangeLimit(ctx, args[0], n); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Download limit set to %d\n", n)
	a.afterChange(ctx)
	return nil
}

// Info refreshes one owned file from the service and prints it.
func (a *App) Info(ctx context.Context, args []string) error {
	id, err := oneID(args, "info <id>")
	if err != nil {
		return err
	}
	f, err := a.files.Info(ctx, id)
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "Name:      %s\n", f.Name)
	fmt.Fprintf(a.out, "Size:      %s\n", humanize.IBytes(uint64(f.Size)))
	fmt.Fprintf(a.out, "Downloads: %d of %d\n", f.DownloadCount, f.DownloadLimit)
	fmt.Fprintf(a.out, "Expires:   %s\n", expiry(f))
	fmt.Fprintf(a.out, "Password:  %s\n", yesNo(f.HasPassword))
	for _, m := range f.Manifest.Files {
		fmt.Fprintf(a.out, "  - %s (%s)\n", m.Name, humanize.IBytes(uint64(m.Size)))
	}
	fmt.Fprintf(a.out, "Link:      %s\n", f.ShareURL())
	return nil
}
