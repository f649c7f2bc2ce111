package main

import (
	"errors"
	"log"
	"os"

	"golang.org/x/crypto/bcrypt"

	"pouch/internal/config"
	"pouch/internal/models"
	"pouch/internal/repositories"
)

func main() {
	config.LoadEnv()

	adminUsername := os.Getenv("ADMIN_USERNAME")
	adminPassword := os.Getenv("ADMIN_PASSWORD")
	if adminUsername == "" || adminPassword == "" {
		log.Fatal("ADMIN_USERNAME and ADMIN_PASSWORD must be set in environment")
	}

	db, err := repositories.InitDB()
	if err != nil {
		log.Fatalf("failed to initialize database: %v", err)
	}
	defer func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	}()

	users := repositories.NewUserRepository(db)
	wallets := repositories.NewWalletRepository(db)

	if _, err := users.GetByUsername(adminUsername); err == nil {
		log.Println("admin user already exists")
		return
	} else if !errors.Is(err, repositories.ErrUserNotFound) {
		log.Fatalf("failed to look up admin user: %v", err)
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(adminPassword), bcrypt.DefaultCost)
	if err != nil {
		log.Fatal("failed to hash password:", err)
	}

	adminUser := models.User{
		Username:    adminUsername,
		Password:    string(hashedPassword),
		DisplayName: "Administrator",
		Role:        models.RoleAdmin,
	}
	if err := users.Create(&adminUser); err != nil {
		log.Fatal("failed to create admin user:", err)
	}

	// Admins hold wallets too, so reporting sums stay consistent.
	if err := wallets.Create(&models.Wallet{UserID: adminUser.ID}); err != nil {
		log.Fatal("failed to create admin wallet:", err)
	}

	log.Println("admin account created successfully")
}
