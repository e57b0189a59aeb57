package main

import (
	"context"
	"fmt"
	"os"

	"staybook/internal/config"
	"staybook/internal/database"
	"staybook/internal/domain"
	jwtsvc "staybook/internal/pkg/jwt"
	"staybook/internal/pkg/logger"
	"staybook/internal/repository"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type seedUser struct {
	email    string
	password string
	name     string
	role     domain.UserRole
}

var users = []seedUser{
	{"admin@staybook.ua", "admin123", "Admin", domain.RoleAdmin},
	{"olena@staybook.ua", "landlord123", "Olena Kovalenko", domain.RoleLandlord},
	{"taras@staybook.ua", "landlord123", "Taras Shevchuk", domain.RoleLandlord},
	{"iryna@staybook.ua", "tenant123", "Iryna Bondar", domain.RoleTenant},
	{"maksym@staybook.ua", "tenant123", "Maksym Melnyk", domain.RoleTenant},
}

type seedApartment struct {
	name     string
	capacity int
	price    string
}

var establishments = []struct {
	owner      string
	name       string
	address    string
	vibe       string
	apartments []seedApartment
}{
	{"olena@staybook.ua", "Black Sea Rooms", "Odesa, Frantsuzkyi blvd 12", "Beach", []seedApartment{
		{"Sea view double", 2, "1800.00"},
		{"Family suite", 4, "3200.00"},
	}},
	{"olena@staybook.ua", "Podil Lofts", "Kyiv, Khoryva st 5", "City", []seedApartment{
		{"Studio loft", 2, "1500.00"},
	}},
	{"taras@staybook.ua", "Carpathian Chalet", "Yaremche, Svobody st 40", "Mountains", []seedApartment{
		{"Wooden cabin", 3, "2100.50"},
		{"Attic room", 2, "950.00"},
	}},
}

func main() {
	log := logger.New("dev")

	cfg, err := config.Load()
	if err != nil {
		log.Error("config", "error", err)
		os.Exit(1)
	}
	db, err := database.Connect(cfg.DatabaseURL, database.Options{Logger: log})
	if err != nil {
		log.Error("database connect failed", "error", err)
		os.Exit(1)
	}
	if err := database.Migrate(db, repository.Models()...); err != nil {
		log.Error("database migrate failed", "error", err)
		os.Exit(1)
	}

	log.Info("cleaning old data")
	if err := clean(db); err != nil {
		log.Error("cleanup failed", "error", err)
		os.Exit(1)
	}

	tokens := jwtsvc.New(cfg.JWTSecret, cfg.JWTTTL)
	byEmail := make(map[string]*domain.User, len(users))
	for _, su := range users {
		hash, err := bcrypt.GenerateFromPassword([]byte(su.password), bcrypt.DefaultCost)
		if err != nil {
			log.Error("hash password", "error", err)
			os.Exit(1)
		}
		u := &domain.User{Email: su.email, PasswordHash: string(hash), Name: su.name, Role: su.role}
		err = db.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "email"}},
			DoUpdates: clause.AssignmentColumns([]string{"password_hash", "name", "role", "updated_at"}),
		}).Create(u).Error
		if err != nil {
			log.Error("create user", "email", su.email, "error", err)
			os.Exit(1)
		}
		if err := db.Where("email = ?", su.email).First(u).Error; err != nil {
			log.Error("reload user", "email", su.email, "error", err)
			os.Exit(1)
		}
		byEmail[su.email] = u
	}

	apartments := repository.NewApartmentRepository(db)
	ctx := context.Background()
	var created int
	for _, se := range establishments {
		e := &domain.Establishment{OwnerID: byEmail[se.owner].ID, Name: se.name, Address: se.address, Vibe: se.vibe}
		if err := apartments.CreateEstablishment(ctx, e); err != nil {
			log.Error("create establishment", "name", se.name, "error", err)
			os.Exit(1)
		}
		for _, sa := range se.apartments {
			price, err := domain.ParseAmount(sa.price)
			if err != nil {
				log.Error("parse price", "apartment", sa.name, "error", err)
				os.Exit(1)
			}
			a := &domain.Apartment{
				EstablishmentID: e.ID,
				Name:            sa.name,
				Capacity:        sa.capacity,
				Price:           price,
				Currency:        domain.DefaultCurrency,
			}
			if err := apartments.Create(ctx, a); err != nil {
				log.Error("create apartment", "name", sa.name, "error", err)
				os.Exit(1)
			}
			created++
		}
	}
	log.Info("seeded", "users", len(byEmail), "establishments", len(establishments), "apartments", created)

	fmt.Println("Bearer tokens:")
	for _, su := range users {
		u := byEmail[su.email]
		tok, err := tokens.GenerateToken(u.ID, string(u.Role))
		if err != nil {
			log.Error("generate token", "email", su.email, "error", err)
			os.Exit(1)
		}
		fmt.Printf("  %-8s %-20s %s\n", u.Role, u.Email, tok)
	}
}

// clean removes listing data in foreign-key order. Users are upserted instead.
func clean(db *gorm.DB) error {
	if err := db.Model(&domain.User{}).Where("rating_id IS NOT NULL").Update("rating_id", nil).Error; err != nil {
		return fmt.Errorf("detach user ratings: %w", err)
	}
	for _, table := range []string{"images", "reviews", "payments", "bookings", "apartments", "establishments", "ratings"} {
		if err := db.Exec("DELETE FROM " + table).Error; err != nil {
			return fmt.Errorf("clean %s: %w", table, err)
		}
	}
	return nil
}
