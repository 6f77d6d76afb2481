// Package transfer moves encrypted files between the local machine and the
// file service. A Sender encrypts and uploads an archive; a Receiver fetches
// the metadata of a shared file and downloads and decrypts it. Both report
// their progress through Events and can be cancelled at any time.
package transfer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/dmitrijs2005/gophsend/internal/common"
)

type State int

const (
	StateIdle State = iota
	StateActive
	StateCompleted
	StateCancelled
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateActive:
		return "active"
	case StateCompleted:
		return "completed"
	case StateCancelled:
		return "cancelled"
	case StateFailed:
		return "failed"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// ErrBusy is returned when a transfer is started while another is active.
var ErrBusy = errors.New("transfer already in progress")

// lifecycle tracks the state of one transfer and its cancellation.
type lifecycle struct {
	mu     sync.Mutex
	state  State
	cancel context.CancelFunc
}

func (l *lifecycle) begin(parent context.Context) (context.Context, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.state == StateActive {
		return nil, ErrBusy
	}
	ctx, cancel := context.WithCancel(parent)
	l.state = StateActive
	l.cancel = cancel
	return ctx, nil
}

func (l *lifecycle) end(s State) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.cancel != nil {
		l.cancel()
		l.cancel = nil
	}
	l.state = s
}

// Cancel aborts the active transfer, if any.
func (l *lifecycle) Cancel() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.cancel != nil {
		l.cancel()
	}
}

func (l *lifecycle) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// outcome maps err to the terminal state and the error returned to the
// caller. Cancellation of ctx wins over whatever error it caused.
func outcome(ctx context.Context, err error) (State, Phase, error) {
	if ctx.Err() != nil || errors.Is(err, context.Canceled) || errors.Is(err, common.ErrCancelled) {
		return StateCancelled, PhaseCancelled, common.ErrCancelled
	}
	return StateFailed, PhaseFailed, err
}

// progressReader counts bytes read from r and stops with the context error
// once ctx is done.
type progressReader struct {
	ctx    context.Context
	r      io.Reader
	n      int64
	report func(n int64)
}

func newProgressReader(ctx context.Context, r io.Reader, report func(n int64)) *progressReader {
	return &progressReader{ctx: ctx, r: r, report: report}
}

func (p *progressReader) Read(b []byte) (int, error) {
	if err := p.ctx.Err(); err != nil {
		return 0, err
	}
	n, err := p.r.Read(b)
	if n > 0 {
		p.n += int64(n)
		p.report(p.n)
	}
	return n, err
}
