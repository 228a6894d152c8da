package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"log"
	"os"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"golang.org/x/crypto/bcrypt"

	"yitro.org/internal/auth"
	"yitro.org/internal/database"
)

func main() {
	log.SetFlags(0)
	dsn := flag.String("dsn", os.Getenv("YITRO_DATABASE_DSN"), "PostgreSQL DSN")
	flag.Parse()

	if *dsn == "" {
		log.Fatal("missing DSN: provide via -dsn or YITRO_DATABASE_DSN")
	}
	if len(flag.Args()) == 0 {
		log.Fatal("usage: migrate [up|down|seed|status]")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db, err := sql.Open("pgx", *dsn)
	if err != nil {
		log.Fatalf("open db: %v", err)
	}
	defer db.Close()

	switch flag.Arg(0) {
	case "up":
		err = database.Migrate(ctx, db)
	case "down":
		err = database.Rollback(ctx, db)
	case "status":
		err = database.Status(ctx, db)
	case "seed":
		err = seedAdmin(ctx, db)
	default:
		log.Fatalf("unknown command %q", flag.Arg(0))
	}
	if err != nil {
		log.Fatalf("migrate %s: %v", flag.Arg(0), err)
	}
}

// seedAdmin creates the bootstrap admin account from YITRO_ADMIN_EMAIL
// and YITRO_ADMIN_PASSWORD. Safe to rerun: an existing account is left
// untouched.
func seedAdmin(ctx context.Context, db *sql.DB) error {
	email := os.Getenv("YITRO_ADMIN_EMAIL")
	password := os.Getenv("YITRO_ADMIN_PASSWORD")
	if email == "" || password == "" {
		return errors.New("seed requires YITRO_ADMIN_EMAIL and YITRO_ADMIN_PASSWORD")
	}

	hash, err := auth.HashPassword(password, bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	users := auth.NewPGStore(db).Users()
	err = users.Create(ctx, &auth.User{
		Email:         email,
		DisplayName:   "Administrator",
		PasswordHash:  hash,
		Role:          auth.RoleAdmin,
		EmailVerified: true,
	})
	if errors.Is(err, auth.ErrDuplicateEmail) {
		log.Printf("admin %s already exists, skipping", auth.NormalizeEmail(email))
		return nil
	}
	if err != nil {
		return err
	}
	log.Printf("admin %s created", auth.NormalizeEmail(email))
	return nil
}
