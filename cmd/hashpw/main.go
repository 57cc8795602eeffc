// Package main generates a bcrypt hash for the bot's registration password.
// The output goes into the PASSWORD_HASH environment variable.
package main

import (
	"fmt"
	"os"

	"github.com/timik232/dataset-bot/internal/auth"
)

func main() {
	if len(os.Args) != 2 {
		fmt.Fprintln(os.Stderr, "usage: hashpw <password>")
		os.Exit(2)
	}
	hash, err := auth.HashPassword(os.Args[1])
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to hash password: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(hash)
}
