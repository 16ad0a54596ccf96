// Command taskctl runs operator tasks against a taskboard database.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/agalitsyn/flagutils"
	"github.com/fatih/color"
	"github.com/go-pkgz/lgr"

	"github.com/agalitsyn/taskboard/internal/app"
	"github.com/agalitsyn/taskboard/internal/auth"
	"github.com/agalitsyn/taskboard/internal/model"
	"github.com/agalitsyn/taskboard/internal/notify"
	"github.com/agalitsyn/taskboard/internal/storage/sqlite"
	"github.com/agalitsyn/taskboard/version"
)

const EnvPrefix = "TASKBOARD"

const usage = `Usage: taskctl [-db path] [-debug] <command> [args]

Commands:
  migrate          apply database migrations
  create-admin     create an admin account (-name, -email, -password)
  users            list accounts
  sweep-overdue    mark every expired task as overdue
  version          show version
`

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, color.RedString("error: %v", err))
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, out io.Writer) error {
	flagutils.Prefix = EnvPrefix

	fs := flag.NewFlagSet("taskctl", flag.ContinueOnError)
	fs.Usage = func() { fmt.Fprint(fs.Output(), usage) }
	dbPath := fs.String("db", "taskboard.db", "Path to SQLite database file.")
	debug := fs.Bool("debug", false, "Verbose logging.")
	flagutils.ParseFlagSet(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return fmt.Errorf("command expected")
	}

	var log lgr.L = lgr.NoOp
	if *debug {
		log = lgr.New(lgr.Debug, lgr.Msec, lgr.LevelBraces)
	}

	cmd, cmdArgs := fs.Arg(0), fs.Args()[1:]
	if cmd == "version" {
		fmt.Fprintln(out, version.String())
		return nil
	}

	db, err := sqlite.Open(*dbPath)
	if err != nil {
		return fmt.Errorf("could not open database %s: %w", *dbPath, err)
	}
	defer db.Close()

	users := app.NewUserService(sqlite.NewUserStorage(db), auth.NewPasswordHasher(auth.DefaultBcryptCost), model.SystemClock{}, log)
	tasks := app.NewTaskService(sqlite.NewTaskStorage(db), users, model.SystemClock{}, notify.Nop{}, log)

	switch cmd {
	case "migrate":
		fmt.Fprintln(out, color.GreenString("database %s is up to date", *dbPath))
		return nil
	case "create-admin":
		return createAdmin(ctx, users, cmdArgs, out)
	case "users":
		return listUsers(ctx, sqlite.NewUserStorage(db), out)
	case "sweep-overdue":
		n, err := tasks.SweepOverdue(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, color.YellowString("%d task(s) marked overdue", n))
		return nil
	default:
		fs.Usage()
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func createAdmin(ctx context.Context, users *app.UserService, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("create-admin", flag.ContinueOnError)
	name := fs.String("name", "", "Display name.")
	email := fs.String("email", "", "Login email.")
	password := fs.String("password", "", "Initial password.")
	if err := fs.Parse(args); err != nil {
		return err
	}

	user, err := users.CreateAdmin(ctx, app.UserInput{Name: *name, Email: *email, Password: *password})
	if err != nil {
		return err
	}
	fmt.Fprintln(out, color.GreenString("created admin %s <%s> id=%s", user.Name, user.Email, user.ID))
	return nil
}

type userLister interface {
	FetchUsers(ctx context.Context) ([]model.User, error)
}

func listUsers(ctx context.Context, repo userLister, out io.Writer) error {
	users, err := repo.FetchUsers(ctx)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tEMAIL\tROLE\tSTATUS")
	for _, u := range users {
		role := notify.Label(u.Role.String())
		if u.Role == model.RoleAdmin {
			role = color.YellowString("%s", role)
		}
		status := color.GreenString("active")
		if !u.IsActive {
			status = color.RedString("inactive")
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", u.ID, u.Name, u.Email, role, status)
	}
	return w.Flush()
}
