package db

import (
	"errors"
	"fmt"

	"comet/internal/models"

	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Init opens the connection, migrates the schema and seeds the galaxy catalogue.
func Init(dsn string, log *zap.Logger) (*gorm.DB, error) {
	conn, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	log.Info("Database connection established")

	if err := conn.AutoMigrate(models.All()...); err != nil {
		return nil, fmt.Errorf("migrate database: %w", err)
	}
	// usernames are unique regardless of case
	if err := conn.Exec(`CREATE UNIQUE INDEX IF NOT EXISTS idx_users_username_lower ON users (LOWER(username))`).Error; err != nil {
		return nil, fmt.Errorf("create username index: %w", err)
	}
	if err := conn.Exec(`CREATE INDEX IF NOT EXISTS idx_posts_topics ON posts USING GIN (topics)`).Error; err != nil {
		return nil, fmt.Errorf("create topics index: %w", err)
	}
	log.Info("Database migration completed")

	if err := seedGalaxies(conn, log); err != nil {
		return nil, err
	}

	return conn, nil
}

func seedGalaxies(conn *gorm.DB, log *zap.Logger) error {
	var count int64
	if err := conn.Model(&models.Galaxy{}).Count(&count).Error; err != nil {
		return err
	}
	if count >= int64(len(models.Galaxies)) {
		log.Debug("Galaxies already seeded, skipping")
		return nil
	}

	for _, g := range models.Galaxies {
		if err := conn.Where(models.Galaxy{Name: g.Name}).Assign(g).FirstOrCreate(&g).Error; err != nil {
			return fmt.Errorf("seed galaxy %s: %w", g.Name, err)
		}
	}
	log.Info("Galaxies seeded", zap.Int("count", len(models.Galaxies)))
	return nil
}

// IsUniqueViolation reports whether err is a postgres unique_violation.
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// IsNotFound wraps gorm.ErrRecordNotFound for callers that only import db.
func IsNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
