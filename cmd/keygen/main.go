package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/fieldops/dispatch-api/pkg/auth"
	"github.com/fieldops/dispatch-api/pkg/config"
)

func main() {
	// Load .env from project root
	config.LoadDotEnv()

	token := flag.Bool("token", false, "issue a JWT instead of an API key")
	subject := flag.String("subject", "keygen", "JWT subject")
	flag.Parse()

	if flag.NArg() < 1 {
		fmt.Println("Usage: keygen [-token] [-subject name] <tenantID>")
		os.Exit(1)
	}
	tenantID := flag.Arg(0)

	a := auth.New(os.Getenv("JWT_SECRET"), os.Getenv("API_MASTER_SECRET"))

	if *token {
		t, err := a.CreateToken(tenantID, *subject)
		if err != nil {
			fmt.Printf("Error: %v (is JWT_SECRET set in .env?)\n", err)
			os.Exit(1)
		}
		fmt.Printf("Generated token for %s (valid %s):\n%s\n", tenantID, a.TokenTTL, t)
		return
	}

	key, err := a.GenerateTenantKey(tenantID)
	if err != nil {
		fmt.Printf("Error: %v (is API_MASTER_SECRET set in .env?)\n", err)
		os.Exit(1)
	}
	fmt.Printf("Generated Key for %s:\n%s\n", tenantID, key)
}
