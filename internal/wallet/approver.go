package wallet

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/algorand/go-algorand-sdk/v2/types"
	"github.com/shopspring/decimal"
)

// RequestKind names what the user is asked to approve.
type RequestKind string

const (
	RequestConnect RequestKind = "connect"
	RequestSign    RequestKind = "sign"
)

// Request is shown to the user before the wallet acts.
type Request struct {
	Kind    RequestKind
	Account string
	Details []string
}

// Approver stands in for the wallet device: it returns nil to approve and
// ErrRejected (or any other error) to refuse.
type Approver interface {
	Approve(ctx context.Context, req Request) error
}

// ApproverFunc adapts a function to Approver.
type ApproverFunc func(ctx context.Context, req Request) error

func (f ApproverFunc) Approve(ctx context.Context, req Request) error {
	return f(ctx, req)
}

// AutoApprover approves every request. The serve command always uses it, as
// does wallet.approval=auto for the one-shot commands.
type AutoApprover struct{}

func (AutoApprover) Approve(ctx context.Context, _ Request) error {
	return ctx.Err()
}

// PromptApprover asks on a terminal and waits for y/N. One goroutine owns
// the input for the life of the approver, so a prompt abandoned through its
// context leaves the next answer for the next prompt.
type PromptApprover struct {
	In  io.Reader
	Out io.Writer

	once  sync.Once
	lines chan promptLine
}

type promptLine struct {
	text string
	err  error
}

func NewPromptApprover(in io.Reader, out io.Writer) *PromptApprover {
	return &PromptApprover{In: in, Out: out}
}

func (p *PromptApprover) Approve(ctx context.Context, req Request) error {
	p.once.Do(func() {
		p.lines = make(chan promptLine)
		go readLines(bufio.NewReader(p.In), p.lines)
	})

	fmt.Fprintf(p.Out, "\n=== wallet %s request ===\n", req.Kind)
	fmt.Fprintf(p.Out, "Account: %s\n", req.Account)
	for _, line := range req.Details {
		fmt.Fprintf(p.Out, "  %s\n", line)
	}
	fmt.Fprint(p.Out, "Approve? [y/N]: ")

	select {
	case <-ctx.Done():
		return ctx.Err()
	case line, ok := <-p.lines:
		if !ok {
			// Input is exhausted.
			return ErrRejected
		}
		if line.err != nil && line.err != io.EOF {
			return fmt.Errorf("read approval: %w", line.err)
		}
		switch strings.ToLower(strings.TrimSpace(line.text)) {
		case "y", "yes":
			return nil
		default:
			return ErrRejected
		}
	}
}

// readLines feeds lines until the reader fails, then closes out.
func readLines(r *bufio.Reader, out chan<- promptLine) {
	defer close(out)
	for {
		text, err := r.ReadString('\n')
		out <- promptLine{text: text, err: err}
		if err != nil {
			return
		}
	}
}

// describeTxn renders a one-line summary of a transaction for approval prompts.
func describeTxn(txn types.Transaction) string {
	fee := decimal.New(int64(txn.Fee), -6)
	if txn.Type == types.ApplicationCallTx {
		return fmt.Sprintf("app call: app=%d args=%d on-complete=%d fee=%s ALGO",
			txn.ApplicationID, len(txn.ApplicationArgs), txn.OnCompletion, fee.String())
	}
	return fmt.Sprintf("%s: fee=%s ALGO", txn.Type, fee.String())
}
