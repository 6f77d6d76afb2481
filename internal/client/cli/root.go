package cli

import (
	"context"
	"fmt"
)

func (a *App) getStatus() string {
	s := ""
	if session := a.currentSession(); session.LoggedIn() {
		s = session.Profile().Email + " "
	}
	if mode := a.getMode(); mode != "" {
		s = s + string(mode)
	}
	if s != "" {
		s = fmt.Sprintf("(%s)", s)
	}
	return s
}

// Root runs the interactive client until the user exits or ctx ends.
func (a *App) Root(ctx context.Context) {
	fmt.Fprintln(a.out, "Welcome to GophSend CLI (type 'help' for commands)")

	if ok, err := a.auth.HasSealedSession(ctx); err == nil && ok {
		if err := a.Unlock(ctx); err != nil {
			fmt.Fprintln(a.out, describe(err))
		}
	}

	go a.StartOnlineStatusWatcher(ctx, a.config.SyncInterval)
	go a.StartSyncLoop(ctx, a.config.SyncInterval)

	runREPL(ctx, a, a.getStatus, a.reader)
}

// Run starts the REPL and closes the local store afterwards.
func (a *App) Run(ctx context.Context) {
	defer a.Close()
	a.Root(ctx)
}
