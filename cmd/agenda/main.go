package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/agendacontatos/agenda.go"
	"github.com/agendacontatos/agenda.go/internal/cli"
	"github.com/agendacontatos/agenda.go/internal/config"
	"github.com/agendacontatos/agenda.go/pkg/apierror"
	"github.com/agendacontatos/agenda.go/pkg/credentials/backend"
	"github.com/agendacontatos/agenda.go/pkg/logger"
	"github.com/agendacontatos/agenda.go/pkg/models"
	"github.com/agendacontatos/agenda.go/pkg/session"
	"golang.org/x/text/language"
)

const usage = `usage: agenda <command> [flags]

commands:
  login   -u <username> [-p <password>]
  logout
  whoami
  list
  add     -name <name> [-phone <phone>] [-email <email>]
  edit    <id> [-name <name>] [-phone <phone>] [-email <email>]
  rm      <id>
`

// routes maps commands onto the route guard. Commands not listed are not
// guarded.
var routes = map[string]session.Route{
	"login": session.LoginRoute,
	"list":  session.HomeRoute,
	"add":   session.HomeRoute,
	"edit":  session.HomeRoute,
	"rm":    session.HomeRoute,
}

type env struct {
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
	// plain disables the interactive loading indicator.
	plain bool
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	e := env{stdin: os.Stdin, stdout: os.Stdout, stderr: os.Stderr, plain: !isTerminal(os.Stdout)}
	os.Exit(run(ctx, os.Args[1:], e))
}

func isTerminal(f *os.File) bool {
	fi, err := f.Stat()
	return err == nil && fi.Mode()&os.ModeCharDevice != 0
}

func run(ctx context.Context, args []string, e env) int {
	if len(args) == 0 {
		fmt.Fprint(e.stderr, usage)
		return 2
	}
	cmd, args := args[0], args[1:]

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(e.stderr, "Error: %v\n", err)
		return 1
	}

	logData, err := logger.New().
		FromBuffer(e.stderr).
		FromPath(cfg.Log.Path).
		Level(cfg.Log.Level).
		Console(cfg.Log.Console).
		Make()
	if err != nil {
		fmt.Fprintf(e.stderr, "Error: %v\n", err)
		return 1
	}
	defer logData.Close()
	log := logData.Logger

	store, err := backend.Open(ctx, backend.Config{
		Backend:     cfg.Storage.Backend,
		Path:        cfg.Storage.Path,
		RedisURL:    cfg.Storage.RedisURL,
		RedisPrefix: cfg.Storage.RedisPrefix,
	})
	if err != nil {
		fmt.Fprintf(e.stderr, "Error: open credentials: %v\n", err)
		return 1
	}

	locale, err := language.Parse(cfg.Collection.Locale)
	if err != nil {
		log.Warn().Err(err).Str("locale", cfg.Collection.Locale).Msg("unknown locale, using root collation")
		locale = language.Und
	}

	client, err := agenda.New(ctx, cfg.API.URL,
		agenda.WithTransport(cfg.API.Transport),
		agenda.WithTimeout(cfg.API.Timeout),
		agenda.WithCredentials(store),
		agenda.WithLogger(log),
		agenda.WithNotifier(cli.Notifier{W: e.stderr}),
		agenda.WithMinDuration(cfg.Loading.MinDuration),
		agenda.WithLocale(locale),
		agenda.WithSerializedMutations(cfg.Collection.SerializeMutations),
	)
	if err != nil {
		fmt.Fprintf(e.stderr, "Error: %v\n", err)
		return 1
	}
	defer func() {
		if err := client.Close(context.Background()); err != nil {
			log.Warn().Err(err).Msg("close client")
		}
	}()

	if route, ok := routes[cmd]; ok {
		switch client.Session().Redirect(route) {
		case session.LoginRoute.Path:
			fmt.Fprintln(e.stderr, "Not logged in. Run: agenda login -u <username>")
			return 1
		case session.HomeRoute.Path:
			id, _ := client.Session().Identity()
			fmt.Fprintf(e.stdout, "Already logged in as %s.\n", id)
			return 0
		}
	}

	c := &command{client: client, env: e}
	switch cmd {
	case "login":
		err = c.login(ctx, args)
	case "logout":
		client.Session().Logout(ctx)
		fmt.Fprintln(e.stdout, "Logged out.")
	case "whoami":
		err = c.whoami()
	case "list":
		err = c.list(ctx)
	case "add":
		err = c.add(ctx, args)
	case "edit":
		err = c.edit(ctx, args)
	case "rm":
		err = c.remove(ctx, args)
	default:
		fmt.Fprintf(e.stderr, "unknown command %q\n\n%s", cmd, usage)
		return 2
	}

	var usageErr usageError
	switch {
	case err == nil:
		return 0
	case errors.As(err, &usageErr):
		fmt.Fprintf(e.stderr, "%v\n\n%s", err, usage)
		return 2
	case errors.Is(err, errFailed):
		return 1
	default:
		fmt.Fprintf(e.stderr, "Error: %v\n", err)
		return 1
	}
}

// errFailed means the failure was already shown to the user.
var errFailed = errors.New("operation failed")

type usageError struct{ msg string }

func (u usageError) Error() string { return u.msg }

type command struct {
	client *agenda.Client
	env
}

// do runs op behind the loading indicator.
func (c *command) do(ctx context.Context, op func(ctx context.Context)) error {
	return cli.RunWithIndicator(ctx, c.client.Loading(), c.stderr, c.plain, op)
}

// report prints non-validation failures; validation failures already went
// through the notifier.
func (c *command) report(title string, err *apierror.Error) error {
	if err.Kind != apierror.KindValidation {
		fmt.Fprintln(c.stderr, cli.RenderError(title, err))
	}
	return errFailed
}

func (c *command) login(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("login", flag.ContinueOnError)
	fs.SetOutput(c.stderr)
	username := fs.String("u", "", "username")
	password := fs.String("p", "", "password (read from stdin when empty)")
	if err := fs.Parse(args); err != nil {
		return usageError{err.Error()}
	}
	if *password == "" {
		line, err := bufio.NewReader(c.stdin).ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return fmt.Errorf("read password: %w", err)
		}
		*password = strings.TrimRight(line, "\r\n")
	}

	var out apierror.Outcome[string]
	if err := c.do(ctx, func(ctx context.Context) {
		out = c.client.Session().Login(ctx, session.Credentials{Username: *username, Password: *password})
	}); err != nil {
		return err
	}
	if !out.Success {
		fmt.Fprintln(c.stderr, cli.RenderError("Could not log in", out.Err))
		return errFailed
	}
	fmt.Fprintf(c.stdout, "Logged in as %s.\n", out.Value)
	return nil
}

func (c *command) whoami() error {
	id, ok := c.client.Session().Identity()
	if !ok {
		fmt.Fprintln(c.stdout, "Not logged in.")
		return nil
	}
	fmt.Fprintln(c.stdout, id)
	return nil
}

func (c *command) list(ctx context.Context) error {
	var out apierror.Outcome[[]models.Contact]
	if err := c.do(ctx, func(ctx context.Context) { out = c.client.Contacts().Load(ctx) }); err != nil {
		return err
	}
	if !out.Success {
		return c.report("Could not load contacts", out.Err)
	}
	fmt.Fprintln(c.stdout, cli.RenderContacts(out.Value))
	return nil
}

type contactFlags struct {
	fs                 *flag.FlagSet
	name, phone, email *string
}

func newContactFlags(name string, out io.Writer) contactFlags {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(out)
	return contactFlags{
		fs:    fs,
		name:  fs.String("name", "", "contact name"),
		phone: fs.String("phone", "", "phone number"),
		email: fs.String("email", "", "email address"),
	}
}

// apply overrides the fields of in that were set on the command line.
func (f contactFlags) apply(in models.ContactInput) models.ContactInput {
	f.fs.Visit(func(fl *flag.Flag) {
		switch fl.Name {
		case "name":
			in.Name = *f.name
		case "phone":
			in.Phone = *f.phone
		case "email":
			in.Email = *f.email
		}
	})
	return in
}

func (c *command) add(ctx context.Context, args []string) error {
	f := newContactFlags("add", c.stderr)
	if err := f.fs.Parse(args); err != nil {
		return usageError{err.Error()}
	}

	var out apierror.Outcome[models.Contact]
	if err := c.do(ctx, func(ctx context.Context) {
		out = c.client.Contacts().Create(ctx, f.apply(models.ContactInput{}))
	}); err != nil {
		return err
	}
	if !out.Success {
		return c.report("Could not save contact", out.Err)
	}
	fmt.Fprintf(c.stdout, "Created %s (%s).\n", out.Value.Name, out.Value.ID)
	return nil
}

// idArg splits a leading contact id from the flags.
func idArg(args []string) (models.ID, []string, error) {
	if len(args) == 0 || strings.HasPrefix(args[0], "-") {
		return "", nil, usageError{"missing contact id"}
	}
	return models.ID(args[0]), args[1:], nil
}

func (c *command) edit(ctx context.Context, args []string) error {
	id, args, err := idArg(args)
	if err != nil {
		return err
	}
	f := newContactFlags("edit", c.stderr)
	if err := f.fs.Parse(args); err != nil {
		return usageError{err.Error()}
	}

	var out apierror.Outcome[models.Contact]
	if err := c.do(ctx, func(ctx context.Context) {
		// unset flags keep the current values
		if loaded := c.client.Contacts().Load(ctx); !loaded.Success {
			out = apierror.Outcome[models.Contact]{Err: loaded.Err}
			return
		}
		current, _ := c.client.Contacts().Find(id)
		out = c.client.Contacts().Update(ctx, id, f.apply(current.Input()))
	}); err != nil {
		return err
	}
	if !out.Success {
		return c.report("Could not update contact", out.Err)
	}
	fmt.Fprintf(c.stdout, "Updated %s (%s).\n", out.Value.Name, out.Value.ID)
	return nil
}

func (c *command) remove(ctx context.Context, args []string) error {
	id, _, err := idArg(args)
	if err != nil {
		return err
	}
	var out apierror.Outcome[struct{}]
	if err := c.do(ctx, func(ctx context.Context) { out = c.client.Contacts().Remove(ctx, id) }); err != nil {
		return err
	}
	if !out.Success {
		return c.report("Could not delete contact", out.Err)
	}
	fmt.Fprintf(c.stdout, "Deleted %s.\n", id)
	return nil
}
