package config

import (
	"fmt"
	"os"

	"github.com/nadhifgr/learnsphere/internal/models"
	"github.com/stripe/stripe-go/v82/client"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

type Config struct {
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
}

func LoadConfig() (*Config, error) {
	return &Config{
		DBHost:     os.Getenv("DB_HOST"),
		DBPort:     os.Getenv("DB_PORT"),
		DBUser:     os.Getenv("DB_USER"),
		DBPassword: os.Getenv("DB_PASSWORD"),
		DBName:     os.Getenv("DB_NAME"),
	}, nil
}

type StripeConfig struct {
	SecretKey     string
	WebhookSecret string
	Currency      string
	SuccessURL    string
	CancelURL     string
}

func LoadStripeConfig() (*StripeConfig, error) {
	cfg := &StripeConfig{
		SecretKey:     os.Getenv("STRIPE_SECRET_KEY"),
		WebhookSecret: os.Getenv("STRIPE_WEBHOOK_SECRET"),
		Currency:      os.Getenv("CURRENCY"),
		SuccessURL:    os.Getenv("CHECKOUT_SUCCESS_URL"),
		CancelURL:     os.Getenv("CHECKOUT_CANCEL_URL"),
	}
	if cfg.Currency == "" {
		cfg.Currency = "usd"
	}
	return cfg, nil
}

type IdentityConfig struct {
	WebhookSecret string
}

func LoadIdentityConfig() (*IdentityConfig, error) {
	return &IdentityConfig{
		WebhookSecret: os.Getenv("IDENTITY_WEBHOOK_SECRET"),
	}, nil
}

func InitStripeClient(cfg *StripeConfig) (*client.API, error) {
	return client.New(cfg.SecretKey, nil), nil
}

func enableUUIDExtension(db *gorm.DB) error {
	return db.Exec("CREATE EXTENSION IF NOT EXISTS \"uuid-ossp\"").Error
}

func InitDatabase(cfg *Config) (*gorm.DB, error) {
	dsn := fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=disable TimeZone=UTC",
		cfg.DBHost, cfg.DBUser, cfg.DBPassword, cfg.DBName, cfg.DBPort,
	)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	if err := enableUUIDExtension(db); err != nil {
		return nil, err
	}

	err = db.AutoMigrate(
		&models.User{},
		&models.Course{},
		&models.Chapter{},
		&models.Lecture{},
		&models.Rating{},
		&models.Purchase{},
		&models.CourseProgress{},
		&models.Enrollment{},
		&models.LectureCompletion{},
	)
	if err != nil {
		return nil, err
	}

	return db, nil
}
