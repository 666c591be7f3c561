package main

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/edvin/inboxwatch/internal/config"
	"github.com/edvin/inboxwatch/internal/core"
	"github.com/edvin/inboxwatch/internal/db"
	"github.com/edvin/inboxwatch/internal/model"
	"github.com/edvin/inboxwatch/internal/stalwart"
)

//go:embed dev.yaml
var devYAML []byte

type seedFile struct {
	Users         []seedUser         `yaml:"users"`
	Accounts      []seedAccount      `yaml:"accounts"`
	Grants        []seedGrant        `yaml:"grants"`
	Conversations []seedConversation `yaml:"conversations"`
}

type seedUser struct {
	ID          string   `yaml:"id"`
	Email       string   `yaml:"email"`
	Password    string   `yaml:"password"`
	DisplayName string   `yaml:"display_name"`
	Roles       []string `yaml:"roles"`
}

type seedAccount struct {
	ID            string `yaml:"id"`
	Address       string `yaml:"address"`
	DisplayName   string `yaml:"display_name"`
	Purpose       string `yaml:"purpose"`
	Status        string `yaml:"status"`
	JMAPAccountID string `yaml:"jmap_account_id"`
}

type seedGrant struct {
	User    string `yaml:"user"`
	Account string `yaml:"account"`
}

type seedConversation struct {
	ID      string   `yaml:"id"`
	Title   string   `yaml:"title"`
	Members []string `yaml:"members"`
}

// parseSeed decodes a seed file and checks that every reference points at a
// declared user or account.
func parseSeed(data []byte) (*seedFile, error) {
	var f seedFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse seed file: %w", err)
	}

	users := make(map[string]bool, len(f.Users))
	for _, u := range f.Users {
		if u.ID == "" || u.Email == "" || u.Password == "" {
			return nil, fmt.Errorf("user %q: id, email and password are required", u.ID)
		}
		users[u.ID] = true
	}

	accounts := make(map[string]bool, len(f.Accounts))
	for i, a := range f.Accounts {
		if a.ID == "" || a.Address == "" {
			return nil, fmt.Errorf("account %d: id and address are required", i)
		}
		if a.Status == "" {
			f.Accounts[i].Status = model.StatusActive
		}
		accounts[a.ID] = true
	}

	var errs []error
	for _, g := range f.Grants {
		if !users[g.User] {
			errs = append(errs, fmt.Errorf("grant references unknown user %q", g.User))
		}
		if !accounts[g.Account] {
			errs = append(errs, fmt.Errorf("grant references unknown account %q", g.Account))
		}
	}
	for _, c := range f.Conversations {
		for _, m := range c.Members {
			if !users[m] {
				errs = append(errs, fmt.Errorf("conversation %s references unknown user %q", c.ID, m))
			}
		}
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}

	return &f, nil
}

// resolveMailboxes fills in missing JMAP account ids from the mail server.
// Accounts the server does not know stay without an id and are not polled.
func resolveMailboxes(ctx context.Context, f *seedFile, mail *stalwart.Client) {
	for i, a := range f.Accounts {
		if a.JMAPAccountID != "" {
			continue
		}
		id, err := mail.ResolveJMAPAccountID(ctx, a.Address)
		if err != nil {
			fmt.Fprintf(os.Stderr, "  warning: resolve %s: %v\n", a.Address, err)
			continue
		}
		f.Accounts[i].JMAPAccountID = id
	}
}

func seed(ctx context.Context, tx pgx.Tx, f *seedFile) error {
	for _, u := range f.Users {
		fmt.Printf("  Inserting user %s...\n", u.Email)
		hash, err := core.HashPassword(u.Password)
		if err != nil {
			return fmt.Errorf("hash password for %s: %w", u.Email, err)
		}
		_, err = tx.Exec(ctx,
			`INSERT INTO users (id, email, password_hash, display_name) VALUES ($1, $2, $3, $4)
			 ON CONFLICT (id) DO UPDATE SET email = EXCLUDED.email, password_hash = EXCLUDED.password_hash,
			 display_name = EXCLUDED.display_name, updated_at = now()`,
			u.ID, u.Email, hash, u.DisplayName)
		if err != nil {
			return fmt.Errorf("insert user %s: %w", u.Email, err)
		}
		for _, role := range u.Roles {
			if _, err := tx.Exec(ctx,
				`INSERT INTO user_roles (user_id, role) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
				u.ID, role); err != nil {
				return fmt.Errorf("insert role %s for %s: %w", role, u.Email, err)
			}
		}
	}

	for _, a := range f.Accounts {
		fmt.Printf("  Inserting account %s...\n", a.Address)
		var jmapID *string
		if a.JMAPAccountID != "" {
			jmapID = &a.JMAPAccountID
		}
		_, err := tx.Exec(ctx,
			`INSERT INTO mail_accounts (id, address, display_name, purpose, status, jmap_account_id)
			 VALUES ($1, $2, $3, $4, $5, $6)
			 ON CONFLICT (id) DO UPDATE SET display_name = EXCLUDED.display_name, purpose = EXCLUDED.purpose,
			 status = EXCLUDED.status, jmap_account_id = COALESCE(EXCLUDED.jmap_account_id, mail_accounts.jmap_account_id),
			 updated_at = now()`,
			a.ID, a.Address, a.DisplayName, a.Purpose, a.Status, jmapID)
		if err != nil {
			return fmt.Errorf("insert account %s: %w", a.Address, err)
		}
	}

	for _, g := range f.Grants {
		if _, err := tx.Exec(ctx,
			`INSERT INTO account_grants (user_id, account_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
			g.User, g.Account); err != nil {
			return fmt.Errorf("insert grant %s/%s: %w", g.User, g.Account, err)
		}
	}

	for _, c := range f.Conversations {
		fmt.Printf("  Inserting conversation %s...\n", c.Title)
		if _, err := tx.Exec(ctx,
			`INSERT INTO conversations (id, title) VALUES ($1, $2) ON CONFLICT (id) DO UPDATE SET title = EXCLUDED.title`,
			c.ID, c.Title); err != nil {
			return fmt.Errorf("insert conversation %s: %w", c.ID, err)
		}
		for _, m := range c.Members {
			if _, err := tx.Exec(ctx,
				`INSERT INTO conversation_members (conversation_id, user_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
				c.ID, m); err != nil {
				return fmt.Errorf("insert member %s of %s: %w", m, c.ID, err)
			}
		}
	}

	return nil
}

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.Validate("seed"); err != nil {
		fmt.Fprintf(os.Stderr, "invalid config: %v\n", err)
		os.Exit(1)
	}

	data := devYAML
	if len(os.Args) > 1 {
		data, err = os.ReadFile(os.Args[1])
		if err != nil {
			fmt.Fprintf(os.Stderr, "read seed file: %v\n", err)
			os.Exit(1)
		}
	}

	f, err := parseSeed(data)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	if cfg.StalwartURL != "" && cfg.StalwartAdminToken != "" {
		fmt.Println("Resolving mailbox accounts...")
		resolveMailboxes(ctx, f, stalwart.NewClient(cfg.StalwartURL, cfg.StalwartAdminToken))
	}

	if cfg.RunMigrations {
		if err := db.RunMigrations(cfg.DatabaseURL); err != nil {
			fmt.Fprintf(os.Stderr, "migrate: %v\n", err)
			os.Exit(1)
		}
	}

	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to connect: %v\n", err)
		os.Exit(1)
	}
	defer pool.Close()

	fmt.Println("Seeding database...")
	if err := pgx.BeginFunc(ctx, pool, func(tx pgx.Tx) error {
		return seed(ctx, tx, f)
	}); err != nil {
		fmt.Fprintf(os.Stderr, "seed failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("Done.")
}
