package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/stemsi/degree-audit-backend/internal/config"
	"github.com/stemsi/degree-audit-backend/internal/service"
	"golang.org/x/term"
)

// issue-token signs a bearer token with JWT_SECRET for operators and local
// testing. Production tokens come from the campus identity provider.
func main() {
	var (
		tokenType string
		userID    int
		perms     string
	)
	flag.StringVar(&tokenType, "type", "", "Token type: student or admin")
	flag.IntVar(&userID, "user", 0, "User ID")
	flag.StringVar(&perms, "perms", "", "Comma-separated admin permissions (e.g. degrees:reload)")
	flag.Parse()

	cfg := config.Load()
	authService := service.NewAuthService(cfg)

	// ─── CLI Input ─────────────────────────────────────────────────────
	// Prompt for anything missing when run interactively.
	if term.IsTerminal(int(os.Stdin.Fd())) {
		reader := bufio.NewReader(os.Stdin)

		if tokenType == "" {
			fmt.Print("Token type (student/admin, default student): ")
			s, _ := reader.ReadString('\n')
			tokenType = strings.TrimSpace(s)
		}
		if userID == 0 {
			fmt.Print("User ID: ")
			s, _ := reader.ReadString('\n')
			id, err := strconv.Atoi(strings.TrimSpace(s))
			if err != nil {
				fmt.Println("Error: User ID must be a number")
				os.Exit(1)
			}
			userID = id
		}
	}

	if tokenType == "" {
		tokenType = string(service.TokenTypeStudent)
	}
	if userID <= 0 {
		fmt.Fprintln(os.Stderr, "Error: -user is required")
		os.Exit(2)
	}

	var permissions []string
	for _, p := range strings.Split(perms, ",") {
		if p = strings.TrimSpace(p); p != "" {
			permissions = append(permissions, p)
		}
	}

	token, err := authService.IssueToken(service.TokenType(tokenType), userID, permissions)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if term.IsTerminal(int(os.Stdout.Fd())) {
		fmt.Printf("\n%s token for user %d (expires in %s):\n", tokenType, userID, cfg.JWTExpiry)
	}
	fmt.Println(token)
}
