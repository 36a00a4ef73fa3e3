package main

import (
	"database/sql"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"

	_ "github.com/jackc/pgx/v5/stdlib"
	"golang.org/x/crypto/bcrypt"
)

func main() {
	if err := godotenv.Load(); err != nil {
		fmt.Println("Warning: .env file not found")
	}

	dsn := flag.String("dsn", os.Getenv("DATABASE_URL"), "database url")
	flag.Parse()

	if *dsn == "" {
		log.Fatal("DSN required via flag -dsn or DATABASE_URL env")
	}

	db, err := sql.Open("pgx", *dsn)
	if err != nil {
		log.Fatal(err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		log.Fatal("Cannot ping DB:", err)
	}

	seedUser(db, "Admin", envOr("DB_ADMIN_EMAIL", "admin@horizonx.local"), envOr("DB_ADMIN_PASSWORD", "password"), "admin")
	seedUser(db, "Member", envOr("DB_MEMBER_EMAIL", "member@horizonx.local"), envOr("DB_MEMBER_PASSWORD", "password"), "member")
}

func seedUser(db *sql.DB, name, email, password, role string) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		log.Fatalf("Failed to hash password for %s: %v", email, err)
	}

	query := `
		INSERT INTO users (name, email, password, role_id)
		SELECT $1, $2, $3, id FROM roles WHERE name = $4
		ON CONFLICT ((LOWER(email))) DO UPDATE SET password = excluded.password, role_id = excluded.role_id;
	`

	res, err := db.Exec(query, name, email, string(hashed), role)
	if err != nil {
		log.Fatalf("Failed to seed %s: %v", email, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		log.Fatalf("Failed to seed %s: role %q missing, run migrations first", email, role)
	}

	fmt.Printf("User seeded: %s / %s (%s)\n", email, password, role)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
