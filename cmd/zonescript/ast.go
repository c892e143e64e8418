package main

import (
	"context"
	"fmt"
	"os"

	"zonescript/internal/diag"
	"zonescript/internal/parser"
)

type AstCmd struct {
	File   string `arg:"" help:"Script file." type:"existingfile"`
	Format string `help:"Output format: text or json." enum:"text,json" default:"text"`
}

func (c *AstCmd) Run(_ context.Context, e *env) error {
	data, err := os.ReadFile(c.File)
	if err != nil {
		return err
	}
	src := string(data)

	program, err := parser.Parse(src)
	if err != nil {
		fmt.Fprintln(e.errOut, diag.Error(err, src))
		return fmt.Errorf("parsing %s: %w", c.File, err)
	}

	if c.Format == "json" {
		out, err := parser.RenderASTAsJSON(program)
		if err != nil {
			return err
		}
		fmt.Fprintln(e.out, out)
		return nil
	}
	fmt.Fprintln(e.out, parser.RenderASTAsText(program, 0))
	return nil
}
