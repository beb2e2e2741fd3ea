// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/olegiv/resourcehub/internal/model"
	"github.com/olegiv/resourcehub/internal/service"
)

// adminCommand provisions administrators from the command line, the only
// way besides seeding to obtain the ADMIN role.
type adminCommand struct {
	createEmail  string
	name         string
	promoteEmail string
}

// adminAccounts is the part of AccountService the command needs.
type adminAccounts interface {
	CreateAdmin(ctx context.Context, in service.RegisterInput) (*model.Identity, error)
	PromoteToAdmin(ctx context.Context, email string) (*model.Identity, error)
}

func (c adminCommand) requested() bool {
	return c.createEmail != "" || c.promoteEmail != ""
}

func (c adminCommand) run(ctx context.Context, accounts adminAccounts, in io.Reader, out io.Writer, readPass func(io.Reader, io.Writer) (string, error)) error {
	if c.createEmail != "" && c.promoteEmail != "" {
		return errors.New("--create-admin and --promote-admin are mutually exclusive")
	}

	if c.promoteEmail != "" {
		identity, err := accounts.PromoteToAdmin(ctx, c.promoteEmail)
		if err != nil {
			return fmt.Errorf("promoting %s: %w", c.promoteEmail, err)
		}
		_, _ = fmt.Fprintf(out, "%s is now an administrator\n", identity.Email)
		return nil
	}

	name := strings.TrimSpace(c.name)
	if name == "" {
		name = strings.SplitN(c.createEmail, "@", 2)[0]
	}
	password, err := readPass(in, out)
	if err != nil {
		return fmt.Errorf("reading password: %w", err)
	}

	identity, err := accounts.CreateAdmin(ctx, service.RegisterInput{
		Name:     name,
		Email:    c.createEmail,
		Password: password,
	})
	if err != nil {
		return fmt.Errorf("creating administrator: %w", err)
	}
	_, _ = fmt.Fprintf(out, "created administrator %s (%s)\n", identity.Email, identity.ID)
	return nil
}

// readPassword prompts without echo on a terminal and reads a plain line
// otherwise, so the command also works with piped input.
func readPassword(in io.Reader, out io.Writer) (string, error) {
	_, _ = fmt.Fprint(out, "Password: ")
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		b, err := term.ReadPassword(int(f.Fd()))
		_, _ = fmt.Fprintln(out)
		if err != nil {
			return "", err
		}
		return string(b), nil
	}

	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}
