// Copyright (c) 2013-2024 The bchd developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Command scriptdebug evaluates an unlocking/locking script pair against a
// supplied transaction context and prints the per-opcode trace of every
// phase the authentication pipeline enters.
package main

import (
	"encoding/hex"
	"fmt"
	"os"

	flags "github.com/jessevdk/go-flags"

	"github.com/bchsuite/bchd/internal/scripthex"
	"github.com/bchsuite/bchd/txscript"
)

type options struct {
	Unlocking string `short:"u" long:"unlocking" description:"hex-encoded unlocking script"`
	Locking   string `short:"l" long:"locking" description:"hex-encoded locking script" required:"true"`
	Context   string `short:"c" long:"context" description:"path to a JSON transaction-context document"`
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	var opts options
	parser := flags.NewParser(&opts, flags.Default)
	if _, err := parser.Parse(); err != nil {
		if e, ok := err.(*flags.Error); ok && e.Type == flags.ErrHelp {
			return nil
		}
		return err
	}

	unlocking, err := scripthex.DecodeScript(opts.Unlocking)
	if err != nil {
		return err
	}
	locking, err := scripthex.DecodeScript(opts.Locking)
	if err != nil {
		return err
	}

	var contextRaw []byte
	if opts.Context != "" {
		contextRaw, err = os.ReadFile(opts.Context)
		if err != nil {
			return fmt.Errorf("reading context document: %w", err)
		}
	}
	external, err := scripthex.DecodeExternalState(contextRaw)
	if err != nil {
		return err
	}

	program := txscript.AuthenticationProgram{
		UnlockingScript: unlocking,
		LockingScript:   locking,
		External:        external,
	}

	cache := txscript.NewSigCache(100)
	phases, valid := txscript.DebugAuthenticationProgram(program, txscript.DefaultCryptoProviders(), cache)

	for _, phase := range phases {
		fmt.Printf("== %s ==\n", phase.Label)
		for _, step := range phase.Steps {
			printStep(step)
		}
	}

	fmt.Printf("\nresult: %s\n", verdict(valid))
	return nil
}

func printStep(step txscript.DebugStep) {
	fmt.Printf("%-28s %-40s stack=%s\n", step.Asm, step.Description, formatStack(step.State.Stack))
	if step.State.Err != nil {
		fmt.Printf("  error: %s: %s\n", step.State.Err.Code, step.State.Err.Description)
	}
}

func formatStack(stack [][]byte) string {
	out := "["
	for i, elem := range stack {
		if i > 0 {
			out += " "
		}
		out += hex.EncodeToString(elem)
	}
	return out + "]"
}

func verdict(valid bool) string {
	if valid {
		return "VALID"
	}
	return "INVALID"
}
