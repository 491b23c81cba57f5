// Command hashpassword prints a bcrypt hash for ADMIN_PASSWORD_HASH.
//
//	go run ./cmd/hashpassword 'new admin password'
package main

import (
	"fmt"
	"log"
	"os"

	"golang.org/x/crypto/bcrypt"
)

const minPasswordLength = 12

func main() {
	if len(os.Args) != 2 {
		log.Fatal("usage: hashpassword <password>")
	}
	hash, err := hashPassword(os.Args[1])
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(hash)
}

func hashPassword(password string) (string, error) {
	if len(password) < minPasswordLength {
		return "", fmt.Errorf("password must be at least %d characters", minPasswordLength)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}
