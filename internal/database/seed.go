package database

import (
	"fmt"

	"pmdashboard/internal/model"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type seedUser struct {
	Username string
	Email    string
	Password string
	Role     model.Role
	FullName string
}

// DefaultUsers are created on an empty database so the dashboard can be used right away
var DefaultUsers = []seedUser{
	{"admin", "admin@test.com", "admin123", model.RoleAdmin, "Administrateur"},
	{"chef.projet", "chef@test.com", "chef123", model.RoleProjectManager, "Chef de Projet"},
	{"sophie.manager", "sophie@test.com", "chef123", model.RoleProjectManager, "Sophie Bernard"},
	{"jean.dupont", "jean@test.com", "membre123", model.RoleMember, "Jean Dupont"},
	{"marie.martin", "marie@test.com", "membre123", model.RoleMember, "Marie Martin"},
	{"pierre.durand", "pierre@test.com", "membre123", model.RoleMember, "Pierre Durand"},
}

// SeedDefaultUsers inserts DefaultUsers when the users table is empty.
// It returns the number of users created.
func SeedDefaultUsers(db *gorm.DB, log *zap.Logger) (int, error) {
	var count int64
	if err := db.Model(&model.User{}).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count users: %w", err)
	}
	if count > 0 {
		return 0, nil
	}

	created := 0
	err := db.Transaction(func(tx *gorm.DB) error {
		for _, su := range DefaultUsers {
			hash, err := bcrypt.GenerateFromPassword([]byte(su.Password), bcrypt.DefaultCost)
			if err != nil {
				return fmt.Errorf("failed to hash password for %s: %w", su.Username, err)
			}
			user := &model.User{
				Username:       su.Username,
				Email:          su.Email,
				HashedPassword: string(hash),
				Role:           su.Role,
				FullName:       su.FullName,
				IsActive:       true,
			}
			if err := tx.Create(user).Error; err != nil {
				return fmt.Errorf("failed to create %s: %w", su.Username, err)
			}
			created++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	log.Info("Seeded default users", zap.Int("count", created))
	return created, nil
}
