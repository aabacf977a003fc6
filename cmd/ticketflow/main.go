// Command ticketflow is a CLI client for the TicketFlow event catalog.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/skorenev/ticketflow/config"
	"github.com/skorenev/ticketflow/internal/catalog"
	"github.com/skorenev/ticketflow/internal/migrate"
	"github.com/skorenev/ticketflow/internal/model"
	"github.com/skorenev/ticketflow/internal/provider/gotrue"
	"github.com/skorenev/ticketflow/internal/provider/postgres"
	"github.com/skorenev/ticketflow/internal/session"
)

var (
	version   = "dev"
	buildDate = "unknown"
)

func usage() {
	fmt.Fprintf(os.Stderr, `ticketflow CLI
Usage:
  ticketflow [-config file] <cmd> [args]

Commands:
  version
  register -email <email> -password <pass> -name <full name>
  login    -email <email> -password <pass>      (persists session)
  logout
  whoami
  feed     [-q <query>]                         (requires an active session)
  migrate                                        (apply catalog schema, dev)
`)
	os.Exit(2)
}

// main dispatches subcommands and wires providers to the session/catalog core.
func main() {
	cfgPath := flag.String("config", "", "config file (YAML)")
	flag.Usage = usage
	flag.Parse()

	if flag.NArg() < 1 {
		usage()
	}
	cmd := flag.Arg(0)

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fail(err)
	}
	logger := buildLogger(cfg.Log.Level)
	defer func() { _ = logger.Sync() }()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	idp := gotrue.New(cfg.Provider.URL, cfg.Provider.AnonKey, logger)
	defer idp.Close()
	mgr := session.NewManager(idp, cfg.Provider.VerifyRedirect, logger)
	defer mgr.Close()

	switch cmd {

	case "version":
		fmt.Printf("ticketflow %s (%s)\n", version, buildDate)

	case "register":
		fs := flag.NewFlagSet("register", flag.ExitOnError)
		email := fs.String("email", "", "email")
		password := fs.String("password", "", "password")
		name := fs.String("name", "", "full name")
		_ = fs.Parse(flag.Args()[1:])
		if *email == "" || *password == "" {
			fmt.Fprintln(os.Stderr, "need -email and -password")
			os.Exit(1)
		}

		if err := mgr.SignUp(ctx, *email, *password, *name); err != nil {
			fail(err)
		}
		fmt.Println("account created; check your email to verify it")

	case "login":
		fs := flag.NewFlagSet("login", flag.ExitOnError)
		email := fs.String("email", "", "email")
		password := fs.String("password", "", "password")
		_ = fs.Parse(flag.Args()[1:])
		if *email == "" || *password == "" {
			fmt.Fprintln(os.Stderr, "need -email and -password")
			os.Exit(1)
		}

		if err := mgr.SignIn(ctx, *email, *password); err != nil {
			fail(err)
		}
		s := mgr.Current()
		fmt.Printf("signed in as %s\n", s.User.Email)

	case "logout":
		<-mgr.Start(ctx)
		if err := mgr.SignOut(ctx); err != nil {
			// local session is cleared regardless
			fmt.Fprintf(os.Stderr, "provider sign-out failed: %v\n", err)
		}
		fmt.Println("signed out")

	case "whoami":
		<-mgr.Start(ctx)
		s := mgr.Current()
		if s == nil {
			fmt.Println("not signed in")
			os.Exit(1)
		}
		printJSON(map[string]string{
			"id":        s.User.ID.String(),
			"email":     s.User.Email,
			"full_name": s.User.FullName,
			"expires":   s.ExpiresAt.UTC().Format(time.RFC3339),
		})

	case "feed":
		fs := flag.NewFlagSet("feed", flag.ExitOnError)
		query := fs.String("q", "", "search query (title or location)")
		_ = fs.Parse(flag.Args()[1:])

		<-mgr.Start(ctx)
		if mgr.State() != session.Authenticated {
			fail(fmt.Errorf("not signed in (run 'ticketflow login')"))
		}

		db, err := postgres.New(ctx, cfg.Database.DSN)
		if err != nil {
			fail(err)
		}
		defer db.Close()

		notify := func(msg string, err error) {
			fmt.Fprintf(os.Stderr, "%s: %v\n", msg, err)
		}
		comp := catalog.NewComposer(postgres.NewEventRepo(db), mgr, cfg.Catalog.MinFeedSize, notify, logger)
		if err := comp.Refresh(ctx); err != nil {
			fail(err)
		}
		comp.SetQuery(*query)
		renderFeed(comp.Feed())

	case "migrate":
		if err := migrate.Up(ctx, cfg.Database.DSN); err != nil {
			fail(err)
		}
		fmt.Println("migrations applied")

	default:
		usage()
	}
}

// ---- rendering ----

type feedRow struct {
	Title    string `json:"title"`
	Location string `json:"location"`
	Date     string `json:"date"`
	Price    string `json:"price"`
	Image    string `json:"image"`
}

func toRow(e model.CatalogEntry) feedRow {
	return feedRow{
		Title:    e.Event.Title,
		Location: e.Event.Location,
		Date:     e.Event.EventDate.Format("2006-01-02"),
		Price:    catalog.PriceLabel(e),
		Image:    e.Image,
	}
}

func renderFeed(f model.Feed) {
	if f.Empty {
		fmt.Println("No events found")
		fmt.Println("Try adjusting your search")
		return
	}
	out := struct {
		Featured feedRow   `json:"featured"`
		Popular  []feedRow `json:"popular"`
	}{Featured: toRow(*f.Featured)}
	for _, e := range f.Popular {
		out.Popular = append(out.Popular, toRow(e))
	}
	printJSON(out)
}

// ---- helpers ----

func buildLogger(level string) *zap.Logger {
	cfg := zap.NewProductionConfig()
	if lvl, err := zapcore.ParseLevel(level); err == nil {
		cfg.Level = zap.NewAtomicLevelAt(lvl)
	}
	logger, err := cfg.Build()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}

func fail(err error) {
	fmt.Fprintln(os.Stderr, err)
	os.Exit(1)
}
