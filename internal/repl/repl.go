// Package repl is the interactive shell. Input is read until it parses or
// fails for a reason other than running out of text, so blocks can span
// lines.
package repl

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/peterh/liner"

	"zonescript/internal/diag"
	"zonescript/internal/lexer"
	"zonescript/internal/object"
	"zonescript/internal/parser"
	"zonescript/internal/token"
)

const (
	PROMPT = ">> "
	CONT   = ".. "
)

// Prompter reads one line of input. *liner.State implements it.
type Prompter interface {
	Prompt(prompt string) (string, error)
	AppendHistory(item string)
}

// EvalFunc runs source in the session's persistent scope.
type EvalFunc func(ctx context.Context, src string) (object.Object, error)

// Command is a `:name` shell command.
type Command struct {
	Help string
	Run  func(ctx context.Context, args []string, out io.Writer) error
}

type Session struct {
	eval     EvalFunc
	out      io.Writer
	commands map[string]Command
	logger   *slog.Logger
}

func New(eval EvalFunc, out io.Writer, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.Default()
	}
	return &Session{
		eval:     eval,
		out:      out,
		commands: map[string]Command{},
		logger:   logger,
	}
}

// Handle registers a `:name` command.
func (s *Session) Handle(name string, cmd Command) {
	s.commands[name] = cmd
}

// Run reads and evaluates input until EOF, `:quit`, or ctx is done.
func (s *Session) Run(ctx context.Context, p Prompter) error {
	for ctx.Err() == nil {
		src, ok := Read(p, PROMPT, CONT)
		if !ok {
			fmt.Fprintln(s.out)
			return nil
		}

		trimmed := strings.TrimSpace(src)
		if trimmed == "" {
			continue
		}
		p.AppendHistory(strings.ReplaceAll(src, "\n", " "))

		if strings.HasPrefix(trimmed, ":") {
			if quit := s.command(ctx, trimmed); quit {
				return nil
			}
			continue
		}

		s.Eval(ctx, src)
	}
	return ctx.Err()
}

// Eval evaluates one complete input and prints its value or error.
func (s *Session) Eval(ctx context.Context, src string) {
	obj, err := s.eval(ctx, src)
	if err != nil {
		s.logger.Debug("repl evaluation failed", slog.Any("error", err))
		fmt.Fprintln(s.out, diag.Error(err, src))
		return
	}
	if obj != nil && obj != object.NULL {
		fmt.Fprintln(s.out, diag.Result(obj.Inspect()))
	}
}

func (s *Session) command(ctx context.Context, line string) (quit bool) {
	fields := strings.Fields(strings.TrimPrefix(line, ":"))
	if len(fields) == 0 {
		fields = []string{""}
	}
	name := strings.ToLower(fields[0])

	switch name {
	case "quit", "q":
		return true
	case "help":
		fmt.Fprintln(s.out, diag.Notice(":help  list commands"))
		fmt.Fprintln(s.out, diag.Notice(":quit  leave the shell"))
		for _, key := range object.SortedKeys(s.commands) {
			fmt.Fprintln(s.out, diag.Notice(fmt.Sprintf(":%-5s %s", key, s.commands[key].Help)))
		}
		return false
	}

	cmd, ok := s.commands[name]
	if !ok {
		fmt.Fprintln(s.out, diag.Notice("unknown command. Type :help for a list."))
		return false
	}
	if err := cmd.Run(ctx, fields[1:], s.out); err != nil {
		fmt.Fprintln(s.out, diag.Error(err, ""))
	}
	return false
}

// Read collects lines until they form a complete input. ok is false at end
// of input.
func Read(p Prompter, prompt, cont string) (src string, ok bool) {
	var b strings.Builder

	for {
		current := prompt
		if b.Len() > 0 {
			current = cont
		}
		line, err := p.Prompt(current)
		if errors.Is(err, io.EOF) {
			if b.Len() > 0 {
				return b.String(), true
			}
			return "", false
		}
		if errors.Is(err, liner.ErrPromptAborted) {
			return "", true
		}
		if err != nil {
			return "", false
		}

		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(line)

		if strings.HasPrefix(strings.TrimSpace(b.String()), ":") || !Incomplete(b.String()) {
			return b.String(), true
		}
	}
}

// Incomplete reports whether src fails only because it ends too early: an
// open block, list, call, string or comment.
func Incomplete(src string) bool {
	_, err := parser.Parse(src)
	if err == nil {
		return false
	}

	var lexErr *lexer.LexError
	if errors.As(err, &lexErr) {
		return strings.HasPrefix(lexErr.Msg, "unterminated")
	}
	var parseErr *parser.ParseError
	if errors.As(err, &parseErr) {
		return parseErr.Token.Type == token.EOF
	}
	return false
}
