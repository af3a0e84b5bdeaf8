package main

import (
	"fmt"
	"os"

	"github.com/lexxxdtp/djassabotSaas-sub000/internal/util"
)

// Generates a fresh tenant API token and the sha256 hash to store in
// tenants.api_token_hash. The token itself is shown once.
func main() {
	token, err := util.GenerateToken()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("token: %s\n", token)
	fmt.Printf("hash:  %s\n", util.HashToken(token))
}
