package main

import (
	"context"
	"log"

	"github.com/joho/godotenv"
	"golang.org/x/crypto/bcrypt"

	"racklab/internal/config"
	"racklab/internal/database"
	"racklab/internal/domain"
	"racklab/internal/modules/ledger"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("config load failed: ", err)
	}

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatal("DB connection failed: ", err)
	}

	log.Println("Running AutoMigrate...")
	if err := database.Migrate(db); err != nil {
		log.Fatal("AutoMigrate failed: ", err)
	}

	log.Println("Cleaning old data...")
	db.Exec("DELETE FROM access_sessions")
	db.Exec("DELETE FROM ledger_entries")
	db.Exec("DELETE FROM bookings")
	db.Exec("DELETE FROM racks")
	db.Exec("DELETE FROM users")

	log.Println("Creating users...")

	adminHash, _ := bcrypt.GenerateFromPassword([]byte("admin123"), bcrypt.DefaultCost)
	admin := domain.User{
		Email:        "admin@racklab.local",
		PasswordHash: string(adminHash),
		Role:         domain.RoleAdmin,
		Name:         "Administrator",
	}
	db.Create(&admin)
	log.Println("Admin created: admin@racklab.local / admin123")

	memberEmails := []string{"alice@racklab.local", "bob@racklab.local", "carol@racklab.local"}
	members := make([]domain.User, 0, len(memberEmails))
	for _, email := range memberEmails {
		hash, _ := bcrypt.GenerateFromPassword([]byte("member123"), bcrypt.DefaultCost)
		u := domain.User{
			Email:        email,
			PasswordHash: string(hash),
			Role:         domain.RoleMember,
			Name:         email,
		}
		db.Create(&u)
		members = append(members, u)
	}
	log.Printf("Members created: %d (password member123)", len(members))

	log.Println("Creating racks...")
	racks := []domain.Rack{
		{Name: "ACI Lab Rack 1", Status: domain.RackAvailable, HourlyRate: 25},
		{Name: "ACI Lab Rack 2", Status: domain.RackAvailable, HourlyRate: 25},
		{Name: "NX-OS Lab Rack", Status: domain.RackAvailable, HourlyRate: 40},
		{Name: "Maintenance Rack", Status: domain.RackNotAvailable, HourlyRate: 25},
	}
	for i := range racks {
		db.Create(&racks[i])
	}
	log.Printf("Racks created: %d", len(racks))

	log.Println("Granting starter tokens...")
	ledgerService := ledger.NewService(db)
	for _, m := range members {
		if _, err := ledgerService.Credit(context.Background(), m.ID, 100, domain.EntryPurchase, nil); err != nil {
			log.Printf("token grant failed for user %d: %v", m.ID, err)
		}
	}

	log.Println("Seed complete.")
}
