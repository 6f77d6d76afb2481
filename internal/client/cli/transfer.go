package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/dmitrijs2005/gophsend/internal/client/models"
	"github.com/dmitrijs2005/gophsend/internal/client/transfer"
	"github.com/dmitrijs2005/gophsend/internal/common"
	"github.com/dmitrijs2005/gophsend/internal/filex"
	"github.com/dustin/go-humanize"
)

// showProgress prints transfer events until the channel closes.
func (a *App) showProgress(events <-chan transfer.Event) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		lastPct := -1
		for ev := range events {
			switch ev.Kind {
			case transfer.EventPhase:
				fmt.Fprintf(a.out, "[%s]\n", ev.Phase)
			case transfer.EventProgress:
				if pct := int(ev.Ratio * 100); pct/10 != lastPct/10 {
					lastPct = pct
					fmt.Fprintf(a.out, "%3d%% %s / %s\n", pct,
						humanize.IBytes(uint64(ev.Bytes)), humanize.IBytes(uint64(ev.Total)))
				}
			}
		}
	}()
	return done
}

// Upload sends the files named in args:
//
//	upload [-p] [-t 24h] [-n 1] <file>...
func (a *App) Upload(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("upload", flag.ContinueOnError)
	fs.SetOutput(a.out)
	withPassword := fs.Bool("p", false, "protect the file with a password")
	timeLimit := fs.Duration("t", a.config.DefaultTimeLimit, "time until the file expires")
	downloads := fs.Int("n", a.config.DefaultDownloadLimit, "number of downloads allowed")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		return errors.New("usage: upload [-p] [-t duration] [-n downloads] <file>...")
	}

	archive, err := models.NewArchiveFromPaths(fs.Args()...)
	if err != nil {
		return err
	}
	archive.TimeLimit = *timeLimit
	archive.DownloadLimit = *downloads

	if *withPassword {
		pw, err := getPassword(a.out, "File password: ")
		if err != nil {
			return err
		}
		archive.Password = string(pw)
		common.WipeByteArray(pw)
	}

	bearer := ""
	if s := a.currentSession(); s.LoggedIn() {
		bearer = s.BearerToken()
	}

	sender := transfer.NewSender(a.api, a.files, a.logger)
	events, unsubscribe := sender.Subscribe(64)
	defer unsubscribe()
	done := a.showProgress(events)

	f, err := sender.Upload(ctx, archive, bearer)
	<-done
	if err != nil {
		return err
	}
	if err := a.store.AddFile(ctx, f); err != nil {
		return fmt.Errorf("save uploaded file: %w", err)
	}

	fmt.Fprintf(a.out, "Uploaded %s (%s), expires %s after %d download(s)\n",
		f.Name, humanize.IBytes(uint64(f.Size)), humanize.Time(f.ExpiresAt), f.DownloadLimit)
	fmt.Fprintln(a.out, f.ShareURL())

	if a.isLoggedIn() {
		if _, err := a.sync(ctx); err != nil {
			a.logger.Warn(ctx, "sync after upload failed", "error", err)
		}
	}
	return nil
}

// Download fetches a shared file into the download directory:
//
//	download <share url>
func (a *App) Download(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return errors.New("usage: download <share url>")
	}
	ref, err := models.ParseShareURL(args[0])
	if err != nil {
		return err
	}

	r, info, err := a.openReceiver(ctx, ref)
	if err != nil {
		return err
	}
	defer r.Close()

	fmt.Fprintf(a.out, "%s (%s), expires %s\n",
		info.Name, humanize.IBytes(uint64(info.Size)), humanize.Time(timeNow().Add(info.TTL)))

	dir, err := filex.EnsureDir(a.config.DownloadDir)
	if err != nil {
		return err
	}

	dst, paths, err := a.downloadTarget(dir, info)
	if err != nil {
		return err
	}

	events, unsubscribe := r.Subscribe(64)
	defer unsubscribe()
	done := a.showProgress(events)

	_, err = r.Download(ctx, transfer.DownloadOptions{Stream: true, Dst: dst})
	<-done
	closeErr := dst.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		for _, p := range paths() {
			_ = os.Remove(p)
		}
		return err
	}

	for _, p := range paths() {
		fmt.Fprintln(a.out, "Saved", p)
	}
	return nil
}

// openReceiver fetches metadata, asking for the password when the file
// needs one.
func (a *App) openReceiver(ctx context.Context, ref *models.FileReference) (*transfer.Receiver, *models.FileInfo, error) {
	r, err := transfer.NewReceiver(a.api, ref, a.logger)
	if err != nil {
		return nil, nil, err
	}
	info, err := r.GetMetadata(ctx)
	if err == nil {
		return r, info, nil
	}
	r.Close()
	if !errors.Is(err, common.ErrUnauthorized) || !ref.RequiresPassword || ref.Password != "" {
		return nil, nil, err
	}

	pw, err := getPassword(a.out, "This file is password protected. Password: ")
	if err != nil {
		return nil, nil, err
	}
	ref.Password = string(pw)
	common.WipeByteArray(pw)

	r, err = transfer.NewReceiver(a.api, ref, a.logger)
	if err != nil {
		return nil, nil, err
	}
	info, err = r.GetMetadata(ctx)
	if err != nil {
		r.Close()
		if errors.Is(err, common.ErrUnauthorized) {
			return nil, nil, errors.New("wrong password")
		}
		return nil, nil, err
	}
	return r, info, nil
}

// downloadTarget picks the writer for a download: one file, or one file per
// manifest entry for a multi-file archive.
func (a *App) downloadTarget(dir string, info *models.FileInfo) (io.WriteCloser, func() []string, error) {
	if len(info.Manifest.Files) > 1 {
		parts := make([]filex.Part, 0, len(info.Manifest.Files))
		for _, f := range info.Manifest.Files {
			parts = append(parts, filex.Part{Name: f.Name, Size: f.Size})
		}
		w := filex.NewSplitWriter(dir, parts)
		return w, w.Paths, nil
	}

	path := filex.UniquePath(dir, info.Name)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, nil, err
	}
	return f, func() []string { return []string{path} }, nil
}
