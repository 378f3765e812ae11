// Command adduser creates a user (or finds an existing one by email) and
// prints a signed bearer token for it.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/term"

	"github.com/dukerupert/fintrack/internal/auth"
	"github.com/dukerupert/fintrack/internal/config"
	"github.com/dukerupert/fintrack/internal/database"
	"github.com/dukerupert/fintrack/internal/push"
	"github.com/dukerupert/fintrack/internal/store"
)

func main() {
	_ = godotenv.Load()
	if err := run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, "adduser:", err)
		os.Exit(1)
	}
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	cfg := config.Load()

	fs := flag.NewFlagSet("adduser", flag.ContinueOnError)
	fs.SetOutput(stderr)
	emailAddr := fs.String("email", "", "user email (required)")
	name := fs.String("name", "", "display name (defaults to the part of the email before @)")
	dbPath := fs.String("db", cfg.DBPath, "database path")
	ttl := fs.Duration("ttl", cfg.TokenTTL, "token lifetime")
	genVAPID := fs.Bool("gen-vapid", false, "print a new VAPID key pair and exit")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *genVAPID {
		pub, priv, err := push.GenerateVAPIDKeys()
		if err != nil {
			return err
		}
		fmt.Fprintf(stdout, "FINTRACK_VAPID_PUBLIC_KEY=%s\nFINTRACK_VAPID_PRIVATE_KEY=%s\n", pub, priv)
		return nil
	}

	addr := strings.ToLower(strings.TrimSpace(*emailAddr))
	if addr == "" || !strings.Contains(addr, "@") {
		return errors.New("a valid -email is required")
	}
	if *name == "" {
		*name = addr[:strings.Index(addr, "@")]
	}

	secret := cfg.JWTSecret
	if secret == "" {
		var err error
		if secret, err = readSecret(stdin, stderr); err != nil {
			return err
		}
	}
	tokens, err := auth.NewTokens([]byte(secret), *ttl)
	if err != nil {
		return err
	}

	db, err := database.Open(*dbPath)
	if err != nil {
		return err
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	users := store.NewUserStore(db)
	u, err := users.GetByEmail(ctx, addr)
	if err != nil {
		return err
	}
	if u == nil {
		if u, err = users.Create(ctx, addr, *name); err != nil {
			return err
		}
		fmt.Fprintf(stderr, "created user %d <%s>\n", u.ID, u.Email)
	} else {
		fmt.Fprintf(stderr, "user %d <%s> already exists\n", u.ID, u.Email)
	}

	token, err := tokens.Issue(auth.AuthContext{UserID: u.ID, Email: u.Email})
	if err != nil {
		return err
	}
	fmt.Fprintln(stdout, token)
	return nil
}

// readSecret prompts for the signing secret without echo on a terminal and
// reads a single line otherwise.
func readSecret(stdin io.Reader, stderr io.Writer) (string, error) {
	fmt.Fprint(stderr, "JWT secret: ")
	if f, ok := stdin.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		b, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(stderr)
		if err != nil {
			return "", fmt.Errorf("read secret: %w", err)
		}
		return string(b), nil
	}
	line, err := bufio.NewReader(stdin).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read secret: %w", err)
	}
	return strings.TrimSpace(line), nil
}
