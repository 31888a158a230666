package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"go.uber.org/zap"

	"github.com/spec-kit/medika-client/internal/api"
	"github.com/spec-kit/medika-client/internal/config"
	"github.com/spec-kit/medika-client/internal/guard"
	"github.com/spec-kit/medika-client/internal/observability"
	"github.com/spec-kit/medika-client/internal/session"
	"github.com/spec-kit/medika-client/internal/storage"
)

const usage = `usage: medika <command> [flags]

commands:
  login            -u <username> -p <password>
  logout
  status
  open             <route>
  change-password  -old <password> -new <password>
`

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	app, err := newApp(cfg, logger)
	if err != nil {
		logger.Fatal("failed to wire client", zap.Error(err))
	}

	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	ctx := context.Background()
	switch os.Args[1] {
	case "login":
		err = app.login(ctx, os.Args[2:])
	case "logout":
		app.sessions.LogOut()
		fmt.Println("logged out")
	case "status":
		app.status()
	case "open":
		err = app.open(os.Args[2:])
	case "change-password":
		err = app.changePassword(ctx, os.Args[2:])
	default:
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// app bundles the wired session core. Each CLI invocation is a fresh
// process; a previous session survives only through the persisted token,
// which the guard recovers on demand.
type app struct {
	sessions *session.Manager
	guard    *guard.Guard
	client   *api.Client
}

func newApp(cfg *config.Config, logger *zap.Logger) (*app, error) {
	tokenPath := cfg.Storage.TokenPath
	if tokenPath == "" {
		var err error
		tokenPath, err = storage.DefaultPath()
		if err != nil {
			return nil, err
		}
	}

	metrics := observability.NewSessionMetrics()
	creds := session.NewCredentials(storage.NewFileStore(tokenPath), logger)
	client := api.NewClient(cfg.API, creds, logger)
	sessions := session.NewManager(session.ManagerDeps{
		Credentials: creds,
		Clock:       session.NewClock(session.TimerScheduler{}),
		Refresher:   client,
		Logger:      logger,
		Metrics:     metrics,
	})
	client.SetUnauthorizedHandler(func() {
		sessions.ForceLogOut("server rejected bearer token")
	})

	return &app{
		sessions: sessions,
		guard:    guard.New(guard.GuardDeps{Sessions: sessions, Logger: logger, Metrics: metrics}),
		client:   client,
	}, nil
}

func (a *app) login(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("login", flag.ExitOnError)
	username := fs.String("u", "", "username")
	password := fs.String("p", "", "password")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *username == "" || *password == "" {
		return fmt.Errorf("username and password required")
	}

	raw, err := a.client.Login(ctx, *username, *password)
	if err != nil {
		return err
	}
	if err := a.sessions.LogIn(raw); err != nil {
		return err
	}
	fmt.Printf("logged in as %s (%s), home route %s\n",
		a.sessions.DisplayName(), a.sessions.Role(), guard.HomeRoute(a.sessions.Role()))
	return nil
}

func (a *app) status() {
	if decision := a.guard.RequireLoggedIn(); !decision.Allowed {
		fmt.Println("not logged in")
		return
	}
	fmt.Printf("logged in as %s (%s), user id %s\n",
		a.sessions.DisplayName(), a.sessions.Role(), a.sessions.UserID())
}

func (a *app) open(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: medika open <route>")
	}
	decision := a.guard.Check(args[0])
	if decision.Allowed {
		fmt.Printf("navigation to %s allowed\n", args[0])
	} else {
		fmt.Printf("redirected to %s\n", decision.RedirectTo)
	}
	return nil
}

func (a *app) changePassword(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("change-password", flag.ExitOnError)
	oldPassword := fs.String("old", "", "current password")
	newPassword := fs.String("new", "", "new password")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *oldPassword == "" || *newPassword == "" {
		return fmt.Errorf("old and new password required")
	}
	if decision := a.guard.RequireLoggedIn(); !decision.Allowed {
		return fmt.Errorf("not logged in")
	}

	raw, err := a.client.ChangePassword(ctx, *oldPassword, *newPassword)
	if err != nil {
		return err
	}
	if err := a.sessions.Renew(raw); err != nil {
		return err
	}
	fmt.Println("password changed")
	return nil
}
