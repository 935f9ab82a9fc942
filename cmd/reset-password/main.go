package main

import (
	"fmt"
	"log"
	"os"

	"go-meatflow/internal/model"
	"go-meatflow/pkg/database"

	"github.com/joho/godotenv"
	"golang.org/x/crypto/bcrypt"
)

// Resets a user's password from the command line. Useful when the owner
// locks themselves out.
//
// Usage: go run ./cmd/reset-password [email] [new-password]
func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found")
	}

	email := "owner@example.com"
	password := "owner123"
	if len(os.Args) > 1 {
		email = os.Args[1]
	}
	if len(os.Args) > 2 {
		password = os.Args[2]
	}

	db := database.ConnectDB()

	var user model.User
	if err := db.Where("email = ?", email).First(&user).Error; err != nil {
		log.Fatalf("user %s not found: %v", email, err)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		log.Fatalf("failed to hash password: %v", err)
	}

	// Rotate the token version so existing sessions are invalidated.
	updates := map[string]interface{}{
		"password":      string(hashed),
		"token_version": "",
	}
	if err := db.Model(&user).Updates(updates).Error; err != nil {
		log.Fatalf("failed to update password: %v", err)
	}

	fmt.Printf("Password for %s has been reset.\n", email)
}
