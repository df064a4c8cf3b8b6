// Command enquiries is the admin console for the enquiry API.
//
//	enquiries [-api URL] [-token TOKEN] [-v] <command> [flags] [args]
//
// Commands: login, list, show, status, delete, export.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"enquirydesk/internal/console"
	"enquirydesk/internal/domain"
	"enquirydesk/internal/logging"
)

const (
	defaultAPIURL  = "http://localhost:8000/api/v1"
	requestTimeout = 60 * time.Second
)

var errUsage = errors.New("usage")

type app struct {
	client    *console.Client
	tokenPath string
	stdin     io.Reader
	stdout    io.Writer
}

func main() {
	global := flag.NewFlagSet("enquiries", flag.ContinueOnError)
	apiURL := global.String("api", envOr("ENQUIRYDESK_API_URL", defaultAPIURL), "API base URL including the prefix")
	token := global.String("token", os.Getenv("ENQUIRYDESK_TOKEN"), "session token (defaults to the saved login)")
	verbose := global.Bool("v", false, "log requests")
	global.Usage = func() { usage(global) }

	if err := global.Parse(os.Args[1:]); err != nil {
		os.Exit(2)
	}
	if global.NArg() == 0 {
		usage(global)
		os.Exit(2)
	}

	logger := zap.NewNop()
	if *verbose {
		l, err := logging.New("debug", "console", "enquiries")
		if err == nil {
			logger = l
			defer func() { _ = logger.Sync() }()
		}
	}

	a := &app{tokenPath: tokenPath(), stdin: os.Stdin, stdout: os.Stdout}
	if *token == "" {
		*token = a.savedToken()
	}
	a.client = console.NewClient(*apiURL, console.WithToken(*token), console.WithLogger(logger))

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	err := a.run(ctx, global.Arg(0), global.Args()[1:])
	switch {
	case err == nil:
	case errors.Is(err, errUsage):
		os.Exit(2)
	default:
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		cancel()
		os.Exit(1)
	}
}

func usage(fs *flag.FlagSet) {
	out := fs.Output()
	fmt.Fprintln(out, "usage: enquiries [flags] <command> [args]")
	fmt.Fprintln(out, "\ncommands:")
	fmt.Fprintln(out, "  login [-u username] [-p password]   sign in and save the session token")
	fmt.Fprintln(out, "  list [-search s] [-status s] [-type t] [-skip n] [-limit n]")
	fmt.Fprintln(out, "  show <id>")
	fmt.Fprintln(out, "  status <id> <status>")
	fmt.Fprintln(out, "  delete <id>")
	fmt.Fprintln(out, "  export [-o file.xlsx] [-search s] [-status s] [-type t]")
	fmt.Fprintln(out, "\nflags:")
	fs.PrintDefaults()
}

func (a *app) run(ctx context.Context, cmd string, args []string) error {
	switch cmd {
	case "login":
		return a.login(ctx, args)
	case "list":
		return a.list(ctx, args)
	case "show":
		return a.show(ctx, args)
	case "status":
		return a.status(ctx, args)
	case "delete":
		return a.delete(ctx, args)
	case "export":
		return a.export(ctx, args)
	}
	fmt.Fprintf(os.Stderr, "unknown command %q\n", cmd)
	return errUsage
}

func (a *app) login(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("login", flag.ContinueOnError)
	username := fs.String("u", envOr("ENQUIRYDESK_USERNAME", "admin"), "username")
	password := fs.String("p", os.Getenv("ENQUIRYDESK_PASSWORD"), "password (prompted when empty)")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}

	if *password == "" {
		fmt.Fprint(a.stdout, "Password: ")
		line, err := bufio.NewReader(a.stdin).ReadString('\n')
		if err != nil && line == "" {
			return fmt.Errorf("failed to read password: %w", err)
		}
		*password = strings.TrimRight(line, "\r\n")
	}

	res, err := a.client.Login(ctx, *username, *password)
	if err != nil {
		return err
	}
	if err := a.saveToken(res.AccessToken); err != nil {
		return err
	}
	fmt.Fprintf(a.stdout, "Logged in as %s. Session expires %s.\n", *username, res.ExpiresAt.Local().Format(time.RFC1123))
	return nil
}

func filterFlags(fs *flag.FlagSet) *domain.Filter {
	f := &domain.Filter{}
	fs.StringVar(&f.Search, "search", "", "match contact name, email or agency")
	fs.StringVar(&f.Status, "status", "", "status filter or all")
	fs.StringVar(&f.Type, "type", "", "type or package type filter, or all")
	return f
}

func (a *app) list(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("list", flag.ContinueOnError)
	filter := filterFlags(fs)
	skip := fs.Int("skip", 0, "rows to skip")
	limit := fs.Int("limit", 0, "maximum rows (0 for all)")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}

	page, err := a.client.List(ctx, console.ListOptions{Filter: *filter, Skip: *skip, Limit: *limit})
	if err != nil {
		return err
	}
	return console.RenderList(a.stdout, page)
}

func (a *app) show(ctx context.Context, args []string) error {
	if len(args) != 1 {
		fmt.Fprintln(os.Stderr, "usage: enquiries show <id>")
		return errUsage
	}
	e, err := a.client.Get(ctx, args[0])
	if err != nil {
		return err
	}
	return console.RenderEnquiry(a.stdout, e)
}

func (a *app) status(ctx context.Context, args []string) error {
	if len(args) != 2 {
		fmt.Fprintln(os.Stderr, "usage: enquiries status <id> <status>")
		return errUsage
	}
	e, err := a.client.UpdateStatus(ctx, args[0], domain.Status(strings.TrimSpace(args[1])))
	if err != nil {
		return err
	}
	fmt.Fprintf(a.stdout, "%s is now %s.\n", e.ID, e.Status.Label())
	return nil
}

func (a *app) delete(ctx context.Context, args []string) error {
	if len(args) != 1 {
		fmt.Fprintln(os.Stderr, "usage: enquiries delete <id>")
		return errUsage
	}
	if err := a.client.Delete(ctx, args[0]); err != nil {
		return err
	}
	fmt.Fprintf(a.stdout, "Deleted %s.\n", args[0])
	return nil
}

func (a *app) export(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("export", flag.ContinueOnError)
	filter := filterFlags(fs)
	out := fs.String("o", fmt.Sprintf("enquiries-%s.xlsx", time.Now().Format("20060102")), "output file")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}

	f, err := os.Create(*out)
	if err != nil {
		return err
	}
	n, err := a.client.Export(ctx, *filter, f)
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(*out)
		return err
	}
	fmt.Fprintf(a.stdout, "Wrote %s (%d bytes).\n", *out, n)
	return nil
}

func tokenPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "enquirydesk", "token")
}

func (a *app) savedToken() string {
	if a.tokenPath == "" {
		return ""
	}
	data, err := os.ReadFile(a.tokenPath)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}

func (a *app) saveToken(token string) error {
	if a.tokenPath == "" {
		fmt.Fprintf(a.stdout, "No config directory; export ENQUIRYDESK_TOKEN=%s\n", token)
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(a.tokenPath), 0o700); err != nil {
		return fmt.Errorf("failed to save token: %w", err)
	}
	if err := os.WriteFile(a.tokenPath, []byte(token+"\n"), 0o600); err != nil {
		return fmt.Errorf("failed to save token: %w", err)
	}
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
