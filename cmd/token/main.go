// Package main mints a member identity token for the API. Hand the printed
// token to a family member's client; requests carrying it as a Bearer token
// are attributed to that member in the request log.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/pkordes/tripboard/backend/internal/auth"
	"github.com/pkordes/tripboard/backend/internal/config"
)

func main() {
	name := flag.String("name", "", "member display name (required)")
	subject := flag.String("subject", "", "token subject, defaults to the name")
	validity := flag.Duration("validity", 365*24*time.Hour, "how long the token stays valid")
	flag.Parse()

	if *name == "" {
		fmt.Fprintln(os.Stderr, "usage: token -name <member> [-subject <id>] [-validity <duration>]")
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "configuration error:", err)
		os.Exit(1)
	}
	if cfg.JWTSecret == "" {
		fmt.Fprintln(os.Stderr, "JWT_SECRET is not set, the API would ignore the token")
		os.Exit(1)
	}

	sub := *subject
	if sub == "" {
		sub = *name
	}

	token, err := auth.GenerateToken(sub, *name, []byte(cfg.JWTSecret), *validity)
	if err != nil {
		fmt.Fprintln(os.Stderr, "signing token failed:", err)
		os.Exit(1)
	}
	fmt.Println(token)
}
