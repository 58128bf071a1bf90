// Package main is a diagnostic tool for testing database connectivity and
// inspecting live membership data. It connects to the database, summarizes the
// users and societies tables, and prints the result to stdout. The binary
// exits non-zero on any failure so it can gate deployments on a reachable,
// migrated database.
package main

import (
	"database/sql"
	"fmt"
	"log"
	"os"

	_ "github.com/lib/pq"
)

func main() {
	dbPassword := os.Getenv("DATABASE_PASSWORD")
	if dbPassword == "" {
		dbPassword = "societyhub"
	}

	connStr := fmt.Sprintf("host=localhost port=5432 user=societyhub password=%s dbname=societyhub sslmode=disable", dbPassword)
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		log.Fatalf("Failed to connect: %v", err)
	}
	defer db.Close()

	fmt.Println("=== USERS ===")
	var userCount int
	if err := db.QueryRow("SELECT COUNT(*) FROM users").Scan(&userCount); err != nil {
		log.Fatalf("Query failed: %v", err)
	}
	fmt.Printf("Total users: %d\n", userCount)

	fmt.Println("\n=== SOCIETIES ===")
	rows, err := db.Query("SELECT id, name, status FROM societies ORDER BY created_at")
	if err != nil {
		log.Fatalf("Query failed: %v", err)
	}
	defer rows.Close()

	count := 0
	for rows.Next() {
		var id, name, status string
		if err := rows.Scan(&id, &name, &status); err != nil {
			log.Printf("Warning: failed to scan society row: %v", err)
			continue
		}
		var members int
		if err := db.QueryRow("SELECT COUNT(*) FROM society_user_roles WHERE society_id = $1", id).Scan(&members); err != nil {
			log.Printf("Warning: failed to count members for %s: %v", name, err)
		}
		fmt.Printf("Society: %s [%s] - %d members (ID: %s)\n", name, status, members, id)
		count++
	}

	if count == 0 {
		fmt.Println("No societies found!")
	}
}
