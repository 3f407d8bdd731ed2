package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"authclient/internal/config"
	"authclient/internal/domain"
	"authclient/internal/gateway"
	"authclient/internal/notify"
	"authclient/internal/session"
)

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	notifier := notify.NewLogNotifier(logger)
	gw, err := gateway.New(gateway.Config{
		BaseURL:         cfg.API.BaseURL,
		Timeout:         cfg.API.Timeout,
		WithCredentials: cfg.API.WithCredentials,
		ErrorTitle:      cfg.Notify.ErrorTitle,
		ErrorMessage:    cfg.Notify.ErrorMessage,
		Notifier:        notifier,
		Logger:          logger,
	})
	if err != nil {
		logger.Fatalf("setup gateway: %v", err)
	}
	store := session.NewStore(gw, logger)

	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	switch os.Args[1] {
	case "login":
		err = runLogin(ctx, store, notifier, os.Args[2:])
	case "register":
		err = runRegister(ctx, store, notifier, os.Args[2:])
	case "logout":
		runLogout(ctx, store)
	case "whoami":
		runWhoami(ctx, store)
	default:
		usage()
		os.Exit(2)
	}
	if err != nil {
		logger.Fatalf("%s: %v", os.Args[1], err)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: authctl <login|register|logout|whoami> [flags]")
}

func runLogin(ctx context.Context, store *session.Store, notifier notify.Notifier, args []string) error {
	fs := flag.NewFlagSet("login", flag.ExitOnError)
	identifier := fs.String("user", "", "username or email")
	password := fs.String("password", "", "password (or set AUTHCLIENT_PASSWORD)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *password == "" {
		*password = os.Getenv("AUTHCLIENT_PASSWORD")
	}
	if *identifier == "" || *password == "" {
		return fmt.Errorf("both -user and a password are required")
	}

	notifier.ShowLoading("loading", "Please wait...")
	defer notifier.Hide()

	if err := store.Login(ctx, domain.Credentials{Identifier: *identifier, Password: *password}); err != nil {
		return err
	}
	printUser(store.User())
	return nil
}

func runRegister(ctx context.Context, store *session.Store, notifier notify.Notifier, args []string) error {
	fs := flag.NewFlagSet("register", flag.ExitOnError)
	username := fs.String("user", "", "username")
	first := fs.String("first", "", "first name")
	last := fs.String("last", "", "last name")
	email := fs.String("email", "", "email address")
	phone := fs.String("phone", "", "phone number")
	password := fs.String("password", "", "password (or set AUTHCLIENT_PASSWORD)")
	avatar := fs.String("avatar", "", "path to an avatar image (switches to multipart)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *password == "" {
		*password = os.Getenv("AUTHCLIENT_PASSWORD")
	}
	if *username == "" || *email == "" || *password == "" {
		return fmt.Errorf("-user, -email, and a password are required")
	}

	profile := domain.Profile{
		Username:  *username,
		FirstName: *first,
		LastName:  *last,
		Email:     *email,
		Phone:     *phone,
		Password:  *password,
	}

	notifier.ShowLoading("loading", "Please wait...")
	defer notifier.Hide()

	if *avatar == "" {
		if err := store.Register(ctx, profile); err != nil {
			return err
		}
	} else {
		file, err := os.Open(*avatar)
		if err != nil {
			return fmt.Errorf("open avatar: %w", err)
		}
		defer file.Close()
		att := &domain.Attachment{Field: "avatar", Filename: file.Name(), Reader: file}
		if err := store.RegisterForm(ctx, profile, att); err != nil {
			return err
		}
	}
	printUser(store.User())
	return nil
}

func runLogout(ctx context.Context, store *session.Store) {
	store.Logout(ctx)
	// give the fire-and-forget server invalidation a moment to leave the
	// process before exiting; local state is already cleared
	time.Sleep(500 * time.Millisecond)
	fmt.Println("logged out")
}

func runWhoami(ctx context.Context, store *session.Store) {
	store.Refresh(ctx)
	if !store.IsAuthenticated() {
		fmt.Println("not logged in")
		return
	}
	printUser(store.User())
	if claims, err := store.TokenClaims(); err == nil && claims.ExpiresAt != nil {
		fmt.Printf("token expires %s\n", claims.ExpiresAt.Time.Format(time.RFC3339))
	}
}

func printUser(user *domain.User) {
	if user == nil {
		return
	}
	fmt.Printf("%s (#%d, %s)\n", user.Username, user.ID, user.UUID)
	if user.Email != "" {
		fmt.Printf("  email: %s\n", user.Email)
	}
	if name := user.FirstName + " " + user.LastName; name != " " {
		fmt.Printf("  name: %s\n", name)
	}
}
