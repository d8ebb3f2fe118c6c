// Package admin implements the cadete administration command: provisioning
// users and repairing their login state from a shell.
package admin

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"golang.org/x/term"

	"github.com/dmitrijs2005/cadete/internal/common"
	"github.com/dmitrijs2005/cadete/internal/server/models"
	"github.com/dmitrijs2005/cadete/internal/server/services"
)

// ErrUsage is returned when the command line cannot be understood.
var ErrUsage = errors.New("usage error")

// readPassword is a test seam for term.ReadPassword.
var readPassword = term.ReadPassword

// UserAdmin is the account management the command drives.
type UserAdmin interface {
	Seed(ctx context.Context, passwords map[string]string) ([]string, error)
	CreateUser(ctx context.Context, userName, name, role, password string) (*models.User, error)
	SetPassword(ctx context.Context, userName, password string) error
	Unlock(ctx context.Context, userName string) error
	MigratePasswords(ctx context.Context) (migrated, skipped int, err error)
	ListUsers(ctx context.Context) ([]*models.User, error)
}

type CLI struct {
	svc UserAdmin
	out io.Writer
	in  *bufio.Reader
	fd  int
}

// New returns a CLI that prompts on the terminal behind stdin.
func New(svc UserAdmin, out io.Writer) *CLI {
	return &CLI{svc: svc, out: out, in: bufio.NewReader(os.Stdin), fd: int(os.Stdin.Fd())}
}

type command struct {
	name  string
	usage string
	run   func(c *CLI, ctx context.Context, args []string) error
}

var commands = []command{
	{"seed", "seed [-cubix-password P] [-cadete-password P]", (*CLI).seed},
	{"create-user", "create-user -username U [-name N] [-role Admin|User] [-password P]", (*CLI).createUser},
	{"set-password", "set-password -username U [-password P]", (*CLI).setPassword},
	{"unlock", "unlock -username U", (*CLI).unlock},
	{"migrate-passwords", "migrate-passwords", (*CLI).migratePasswords},
	{"list-users", "list-users", (*CLI).listUsers},
}

// Run executes the first known command found in args with the arguments that
// follow it. Anything before the command belongs to the configuration.
func (c *CLI) Run(ctx context.Context, args []string) error {
	for i, a := range args {
		for _, cmd := range commands {
			if a == cmd.name {
				return cmd.run(c, ctx, args[i+1:])
			}
		}
	}
	c.usage()
	return ErrUsage
}

func (c *CLI) usage() {
	fmt.Fprintln(c.out, "usage: admin [-d DSN] [-c config.json] <command> [flags]")
	fmt.Fprintln(c.out, "commands:")
	for _, cmd := range commands {
		fmt.Fprintln(c.out, "  "+cmd.usage)
	}
}

func (c *CLI) flagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(c.out)
	return fs
}

func parse(fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", ErrUsage, err)
	}
	if fs.NArg() > 0 {
		return fmt.Errorf("%w: unexpected argument %q", ErrUsage, fs.Arg(0))
	}
	return nil
}

// getPassword prints prompt and reads a password without echo.
func (c *CLI) getPassword(prompt string) (string, error) {
	if _, err := fmt.Fprint(c.out, prompt); err != nil {
		return "", err
	}
	pw, err := readPassword(c.fd)
	fmt.Fprintln(c.out)
	if err != nil {
		return "", err
	}
	defer common.WipeByteArray(pw)
	return string(pw), nil
}

// newPassword returns given when set, otherwise prompts twice.
func (c *CLI) newPassword(given, who string) (string, error) {
	if given != "" {
		return given, nil
	}
	pw, err := c.getPassword("New password for " + who + ": ")
	if err != nil {
		return "", err
	}
	again, err := c.getPassword("Repeat password: ")
	if err != nil {
		return "", err
	}
	if pw != again {
		return "", errors.New("passwords do not match")
	}
	return pw, nil
}

func requireUser(userName string) error {
	if strings.TrimSpace(userName) == "" {
		return fmt.Errorf("%w: -username is required", ErrUsage)
	}
	return nil
}

func (c *CLI) seed(ctx context.Context, args []string) error {
	fs := c.flagSet("seed")
	given := make(map[string]*string, len(services.DefaultUsers))
	for _, du := range services.DefaultUsers {
		given[du.UserName] = fs.String(du.UserName+"-password", "", "password for "+du.UserName)
	}
	if err := parse(fs, args); err != nil {
		return err
	}

	existing, err := c.svc.ListUsers(ctx)
	if err != nil {
		return err
	}
	known := make(map[string]bool, len(existing))
	for _, u := range existing {
		known[u.UserName] = true
	}

	passwords := make(map[string]string)
	for _, du := range services.DefaultUsers {
		if known[du.UserName] {
			continue
		}
		pw, err := c.newPassword(*given[du.UserName], du.UserName)
		if err != nil {
			return err
		}
		passwords[du.UserName] = pw
	}

	created, err := c.svc.Seed(ctx, passwords)
	if err != nil {
		return err
	}
	if len(created) == 0 {
		fmt.Fprintln(c.out, "nothing to do, default users exist")
		return nil
	}
	fmt.Fprintf(c.out, "created: %s\n", strings.Join(created, ", "))
	return nil
}

func (c *CLI) createUser(ctx context.Context, args []string) error {
	fs := c.flagSet("create-user")
	userName := fs.String("username", "", "login name")
	name := fs.String("name", "", "display name")
	role := fs.String("role", common.RoleUser, "Admin or User")
	password := fs.String("password", "", "password (prompted when empty)")
	if err := parse(fs, args); err != nil {
		return err
	}
	if err := requireUser(*userName); err != nil {
		return err
	}

	pw, err := c.newPassword(*password, *userName)
	if err != nil {
		return err
	}

	u, err := c.svc.CreateUser(ctx, *userName, *name, *role, pw)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "created user %s (%s) id=%s\n", u.UserName, u.Role, u.ID)
	return nil
}

func (c *CLI) setPassword(ctx context.Context, args []string) error {
	fs := c.flagSet("set-password")
	userName := fs.String("username", "", "login name")
	password := fs.String("password", "", "password (prompted when empty)")
	if err := parse(fs, args); err != nil {
		return err
	}
	if err := requireUser(*userName); err != nil {
		return err
	}

	pw, err := c.newPassword(*password, *userName)
	if err != nil {
		return err
	}
	if err := c.svc.SetPassword(ctx, *userName, pw); err != nil {
		return err
	}
	fmt.Fprintf(c.out, "password of %s changed, sessions revoked\n", *userName)
	return nil
}

func (c *CLI) unlock(ctx context.Context, args []string) error {
	fs := c.flagSet("unlock")
	userName := fs.String("username", "", "login name")
	if err := parse(fs, args); err != nil {
		return err
	}
	if err := requireUser(*userName); err != nil {
		return err
	}

	if err := c.svc.Unlock(ctx, *userName); err != nil {
		return err
	}
	fmt.Fprintf(c.out, "%s unlocked\n", *userName)
	return nil
}

func (c *CLI) migratePasswords(ctx context.Context, args []string) error {
	if err := parse(c.flagSet("migrate-passwords"), args); err != nil {
		return err
	}
	migrated, skipped, err := c.svc.MigratePasswords(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "migrated %d, already hashed %d\n", migrated, skipped)
	return nil
}

func (c *CLI) listUsers(ctx context.Context, args []string) error {
	if err := parse(c.flagSet("list-users"), args); err != nil {
		return err
	}
	users, err := c.svc.ListUsers(ctx)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "USERNAME\tNAME\tROLE\tACTIVE\tLOCKED\tFAILED")
	for _, u := range users {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%t\t%t\t%d\n", u.UserName, u.Name, u.Role, u.Active, u.IsLocked, u.FailedLoginAttempts)
	}
	return tw.Flush()
}
