package database

import (
	"fmt"
	"os"

	"storefront/config"
	"storefront/models"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// Connect opens the database selected by DB_DRIVER. sqlite is meant for local
// development only; the schema is created with SQLite DDL instead of AutoMigrate.
func Connect(cfg config.DBConfig) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.Driver {
	case "", "postgres":
		dialector = postgres.Open(cfg.URL)
	case "mysql":
		dialector = mysql.Open(cfg.URL)
	case "sqlite":
		return OpenSQLite(cfg.URL)
	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER %q", cfg.Driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{})
	if err != nil {
		return nil, err
	}

	return db, nil
}

func Migrate(db *gorm.DB) error {
	if db.Dialector.Name() == "sqlite" {
		return CreateSQLiteTables(db)
	}

	if err := db.AutoMigrate(
		&models.User{},
		&models.Product{},
		&models.Cart{},
		&models.CartItem{},
		&models.Order{},
		&models.OrderItem{},
		&models.Inquiry{},
	); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}

	return nil
}

// CreateDefaultStaff makes sure there is an account able to manage orders.
func CreateDefaultStaff(db *gorm.DB, log *zap.Logger) error {
	email := os.Getenv("ADMIN_EMAIL")
	password := os.Getenv("ADMIN_PASSWORD")

	if email == "" {
		email = "admin@storefront.local"
	}
	if password == "" {
		password = "admin123"
		log.Warn("ADMIN_PASSWORD not set - default staff account uses the built-in password")
	}

	var existing models.User
	if err := db.Where("email = ?", email).First(&existing).Error; err == nil {
		return nil
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	admin := models.User{
		Email:     email,
		Password:  string(hashedPassword),
		Role:      models.RoleAdmin,
		FirstName: "Store",
		LastName:  "Admin",
	}

	if err := db.Create(&admin).Error; err != nil {
		return err
	}

	log.Info("Default staff account created", zap.String("email", email))
	return nil
}
