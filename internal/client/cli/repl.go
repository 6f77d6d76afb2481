package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/gophsend/internal/common"
)

// printlnFn is a test seam for user-facing output. In tests, replace it with a stub.
var printlnFn = fmt.Println

// execIface defines the minimal command surface the REPL needs to operate.
// The real App type satisfies this interface; tests can provide a lightweight stub.
type execIface interface {
	isLoggedIn() bool
	Login(ctx context.Context) error
	Unlock(ctx context.Context) error
	Logout(ctx context.Context) error
	Upload(ctx context.Context, args []string) error
	Download(ctx context.Context, args []string) error
	List(ctx context.Context) error
	Sync(ctx context.Context) error
	Delete(ctx context.Context, args []string) error
	Password(ctx context.Context, args []string) error
	Limit(ctx context.Context, args []string) error
	Info(ctx context.Context, args []string) error
}

// describe turns an error into the line shown to the user.
func describe(err error) string {
	switch {
	case errors.Is(err, common.ErrCancelled):
		return "Cancelled"
	case errors.Is(err, common.ErrStateMismatch):
		return "Login failed: the state does not match, start again"
	case errors.Is(err, common.ErrAuthentication):
		return "Error: the file could not be decrypted, the link may be wrong or the data damaged"
	}
	if code := common.StatusCode(err); code != "" {
		return fmt.Sprintf("Error %s: %v", code, err)
	}
	return "Error: " + err.Error()
}

// runREPL starts a simple read–eval–print loop for the GophSend CLI.
//
// It reads a line from the provided reader, parses the first token as the
// command and passes the rest as arguments. Unknown commands are reported
// back to the user. The loop exits on EOF or when the user types
// "exit" or "quit".
//
// Prompt & Commands
//
// The prompt shows the current status (from statusFn) and accepts commands:
//
//	Always:
//	  - help                         show available commands
//	  - upload [-p] [-t] [-n] <file>  upload files, print the share link
//	  - download <url>               download a shared file
//	  - (l)ist                       list owned files
//	  - info <id>                    refresh and show an owned file
//	  - limit <id> <n>               change the download limit
//	  - password <id>                set a password
//	  - delete <id>                  delete an owned file
//	  - sync                         synchronise the file list
//	  - exit | quit                  leave the program
//
//	Signed out:
//	  - login                        sign in to an account
//	  - unlock                       restore the saved session
//
//	Signed in:
//	  - logout                       sign out and forget the local list
//
// Errors returned by command handlers are printed and the loop continues.
func runREPL(ctx context.Context, a execIface, statusFn func() string, reader *bufio.Reader) {
	for {
		printlnFn(fmt.Sprintf("send %s> ", statusFn()))
		line, err := reader.ReadString('\n')
		if err != nil && line == "" {
			return
		}
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		cmd, args := parts[0], parts[1:]
		err = nil

		switch cmd {
		case "help":
			if a.isLoggedIn() {
				printlnFn("Available commands: upload, download, (l)ist, info, limit, password, delete, sync, logout, exit")
			} else {
				printlnFn("Available commands: login, unlock, upload, download, (l)ist, info, limit, password, delete, sync, exit")
			}

		case "login":
			err = a.Login(ctx)

		case "unlock":
			err = a.Unlock(ctx)

		case "logout":
			err = a.Logout(ctx)

		case "upload":
			err = a.Upload(ctx, args)

		case "download":
			err = a.Download(ctx, args)

		case "l", "list":
			err = a.List(ctx)

		case "sync":
			err = a.Sync(ctx)

		case "delete":
			err = a.Delete(ctx, args)

		case "password":
			err = a.Password(ctx, args)

		case "limit":
			err = a.Limit(ctx, args)

		case "info":
			err = a.Info(ctx, args)

		case "exit", "quit":
			printlnFn("Bye!")
			return

		default:
			printlnFn("Unknown command:", cmd)
		}

		if err != nil {
			printlnFn(describe(err))
		}
	}
}
