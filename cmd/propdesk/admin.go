package main

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/aliuyar1234/propdesk/internal/app"
	"github.com/aliuyar1234/propdesk/internal/audit"
	"github.com/aliuyar1234/propdesk/internal/auth"
	"github.com/aliuyar1234/propdesk/internal/domain"
	"github.com/aliuyar1234/propdesk/internal/invites"
	"github.com/aliuyar1234/propdesk/internal/retention"
	"github.com/aliuyar1234/propdesk/internal/store"
	"github.com/google/uuid"
)

const adminTimeout = 30 * time.Second

func runAdmin(args []string) int {
	if len(args) == 0 {
		printAdminUsage(os.Stderr)
		return 2
	}

	switch args[0] {
	case "reset-password":
		return runResetPassword(args[1:])
	case "issue-invite":
		return runIssueInvite(args[1:])
	case "expire-invites":
		return runExpireInvites(args[1:])
	case "migrate":
		return runMigrate(args[1:])
	case "help", "-h", "--help":
		printAdminUsage(os.Stdout)
		return 0
	default:
		fmt.Fprintf(os.Stderr, "Unknown admin command: %s\n", args[0])
		printAdminUsage(os.Stderr)
		return 2
	}
}

func printAdminUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  propdesk admin issue-invite --kind tenant|staff --org <uuid> --issuer <uuid> [--ttl 168h] [--code-length 10] [--db-dsn <dsn>]")
	fmt.Fprintln(w, "  propdesk admin expire-invites [--audit-retention-days 365] [--db-dsn <dsn>]")
	fmt.Fprintln(w, "  propdesk admin migrate [--db-dsn <dsn>]")
	fmt.Fprintln(w, "  propdesk admin reset-password --email user@example.com [--password <new>] [--db-dsn <dsn>]")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Notes:")
	fmt.Fprintln(w, "  - --db-dsn defaults to PD_DB_DSN (postgres://... or sqlite://path).")
	fmt.Fprintln(w, "  - The issuer must be an owner or admin of the organization.")
	fmt.Fprintln(w, "  - If --password is omitted, a random password is generated and printed.")
}

func newFlagSet(name string, dbDSN *string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	fs.StringVar(dbDSN, "db-dsn", "", "Database DSN (defaults to PD_DB_DSN)")
	return fs
}

// parseFlags returns an exit code when the command should stop.
func parseFlags(fs *flag.FlagSet, args []string) (int, bool) {
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0, false
		}
		return 2, false
	}
	return 0, true
}

func openAdminStore(ctx context.Context, dbDSN string, migrate bool) (store.Store, int) {
	if dbDSN == "" {
		dbDSN = strings.TrimSpace(os.Getenv("PD_DB_DSN"))
	}
	if dbDSN == "" {
		fmt.Fprintln(os.Stderr, "--db-dsn is required (or set PD_DB_DSN)")
		return nil, 2
	}

	st, err := app.OpenStore(ctx, dbDSN, migrate)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open database: %v\n", err)
		return nil, 1
	}
	return st, 0
}

func runIssueInvite(args []string) int {
	var dbDSN, kindName, orgRaw, issuerRaw string
	var ttl time.Duration
	var codeLength int

	fs := newFlagSet("issue-invite", &dbDSN)
	fs.StringVar(&kindName, "kind", "", "Invite kind: tenant or staff")
	fs.StringVar(&orgRaw, "org", "", "Organization ID")
	fs.StringVar(&issuerRaw, "issuer", "", "Issuing user ID (owner or admin of the organization)")
	fs.DurationVar(&ttl, "ttl", 7*24*time.Hour, "Time until the invite expires; 0 for no expiry")
	fs.IntVar(&codeLength, "code-length", envCodeLength(), "Invite code length (defaults to PD_INVITE_CODE_LENGTH)")

	if code, ok := parseFlags(fs, args); !ok {
		return code
	}

	kind, ok := domain.KindByName(kindName)
	if !ok {
		fmt.Fprintln(os.Stderr, "--kind must be tenant or staff")
		return 2
	}
	orgID, err := uuid.Parse(strings.TrimSpace(orgRaw))
	if err != nil {
		fmt.Fprintln(os.Stderr, "--org must be a UUID")
		return 2
	}
	issuerID, err := uuid.Parse(strings.TrimSpace(issuerRaw))
	if err != nil {
		fmt.Fprintln(os.Stderr, "--issuer must be a UUID")
		return 2
	}
	if ttl < 0 {
		fmt.Fprintln(os.Stderr, "--ttl must not be negative")
		return 2
	}
	if codeLength < invites.MinCodeLength || codeLength > invites.MaxCodeLength {
		fmt.Fprintf(os.Stderr, "--code-length (or PD_INVITE_CODE_LENGTH) must be between %d and %d\n",
			invites.MinCodeLength, invites.MaxCodeLength)
		return 2
	}

	ctx, cancel := context.WithTimeout(context.Background(), adminTimeout)
	defer cancel()

	st, code := openAdminStore(ctx, dbDSN, false)
	if st == nil {
		return code
	}
	defer st.Close()

	svc := invites.NewService(st, invites.Options{
		CodeLength: codeLength,
		TTL:        ttl,
		Auditor:    audit.NewWriter(st.Audit()),
	})

	inv, err := svc.Issue(ctx, kind, orgID, issuerID, nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to issue invite: %v\n", err)
		return 1
	}

	fmt.Fprintln(os.Stdout, inv.Code)
	if inv.ExpiresAt != nil {
		fmt.Fprintf(os.Stderr, "Invite %s expires at %s\n", inv.ID, inv.ExpiresAt.Format(time.RFC3339))
	}
	return 0
}

// envCodeLength mirrors the server's PD_INVITE_CODE_LENGTH so both issuers
// produce the same codes. Unparsable values yield -1 and fail validation.
func envCodeLength() int {
	raw := strings.TrimSpace(os.Getenv("PD_INVITE_CODE_LENGTH"))
	if raw == "" {
		return invites.DefaultCodeLength
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return -1
	}
	return n
}

func runExpireInvites(args []string) int {
	var dbDSN string
	var retentionDays int

	fs := newFlagSet("expire-invites", &dbDSN)
	fs.IntVar(&retentionDays, "audit-retention-days", 365, "Delete audit events older than this many days")

	if code, ok := parseFlags(fs, args); !ok {
		return code
	}

	ctx, cancel := context.WithTimeout(context.Background(), adminTimeout)
	defer cancel()

	st, code := openAdminStore(ctx, dbDSN, false)
	if st == nil {
		return code
	}
	defer st.Close()

	auditor := audit.NewWriter(st.Audit())
	job := retention.Job{
		Invites:            invites.NewService(st, invites.Options{Auditor: auditor}),
		AuditLog:           st.Audit(),
		Auditor:            auditor,
		AuditRetentionDays: retentionDays,
	}
	if err := job.Run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Sweep failed: %v\n", err)
		return 1
	}

	fmt.Fprintln(os.Stdout, "Sweep completed.")
	return 0
}

func runMigrate(args []string) int {
	var dbDSN string
	fs := newFlagSet("migrate", &dbDSN)
	if code, ok := parseFlags(fs, args); !ok {
		return code
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	st, code := openAdminStore(ctx, dbDSN, false)
	if st == nil {
		return code
	}
	defer st.Close()

	if err := app.MigrateStore(ctx, st); err != nil {
		fmt.Fprintf(os.Stderr, "Migration failed: %v\n", err)
		return 1
	}

	fmt.Fprintln(os.Stdout, "Migrations applied.")
	return 0
}

func runResetPassword(args []string) int {
	var dbDSN, email, password string

	fs := newFlagSet("reset-password", &dbDSN)
	fs.StringVar(&email, "email", "", "User email")
	fs.StringVar(&password, "password", "", "New password (if empty, generates one)")

	if code, ok := parseFlags(fs, args); !ok {
		return code
	}

	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		fmt.Fprintln(os.Stderr, "--email is required")
		return 2
	}

	generated := false
	if password == "" {
		pw, err := generatePassword(24)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to generate password: %v\n", err)
			return 1
		}
		password = pw
		generated = true
	}

	if err := auth.ValidatePassword(password); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}

	passwordHash, err := auth.HashPassword(password)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to hash password: %v\n", err)
		return 1
	}

	ctx, cancel := context.WithTimeout(context.Background(), adminTimeout)
	defer cancel()

	st, code := openAdminStore(ctx, dbDSN, false)
	if st == nil {
		return code
	}
	defer st.Close()

	if err := st.Users().UpdatePassword(ctx, email, passwordHash, time.Now().UTC()); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			fmt.Fprintf(os.Stderr, "No user found with email %q\n", email)
			return 1
		}
		fmt.Fprintf(os.Stderr, "Failed to update password: %v\n", err)
		return 1
	}

	fmt.Fprintln(os.Stdout, "Password updated.")
	if generated {
		fmt.Fprintln(os.Stdout, password)
	}

	return 0
}

func generatePassword(bytesLen int) (string, error) {
	if bytesLen < 8 {
		bytesLen = 8
	}

	b := make([]byte, bytesLen)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}

	// URL-safe, printable, without padding.
	return base64.RawURLEncoding.EncodeToString(b), nil
}
