// Command adduser creates an account from the terminal, for bootstrapping
// an instance without going through the registration page.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"syscall"

	"golang.org/x/term"

	"budgetwatch/internal/auth"
	"budgetwatch/internal/cli"
	"budgetwatch/internal/mail"
)

func main() {
	username := flag.String("username", "", "username for the new account")
	email := flag.String("email", "", "email for the new account")
	flag.Parse()

	if *username == "" || *email == "" {
		fmt.Fprintln(os.Stderr, "usage: adduser -username NAME -email ADDR")
		os.Exit(2)
	}

	cli.LoadEnvFile()
	logger := cli.SetupLogger("adduser")
	cfg := cli.LoadAndValidateConfig(logger)

	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer repo.Close()

	password, err := promptPassword()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	tokens := auth.NewTokenSigner([]byte(cfg.ResetSecret), cfg.ResetTokenTTL)
	svc := auth.NewService(repo, mail.LogMailer{}, tokens, cfg.SessionTTL, cfg.RememberTTL, cfg.BaseURL)

	user, err := svc.Register(context.Background(), *username, *email, password)
	if err != nil {
		fmt.Fprintf(os.Stderr, "create user: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Created user %q (id %d)\n", user.Username, user.ID)
}

func promptPassword() (string, error) {
	fmt.Print("Password: ")
	first, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}

	fmt.Print("Confirm password: ")
	second, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}

	if string(first) != string(second) {
		return "", fmt.Errorf("passwords do not match")
	}
	return string(first), nil
}
