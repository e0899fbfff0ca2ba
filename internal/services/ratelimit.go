package services

import (
	"fmt"
	"time"

	"comet/internal/apperr"
	"comet/internal/models"

	"gorm.io/gorm"
)

const (
	PostInterval    = time.Minute
	CommentInterval = 15 * time.Second
)

// claimSlot stamps column with now unless it was stamped less than interval
// ago. The check and the stamp are one UPDATE, so two concurrent requests
// cannot both pass.
func claimSlot(tx *gorm.DB, userID, column string, interval time.Duration, now time.Time) (bool, error) {
	res := tx.Model(&models.User{}).
		Where("id = ? AND ("+column+" IS NULL OR "+column+" <= ?)", userID, now.Add(-interval)).
		UpdateColumn(column, now)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// slot names a per-user throttle column and the caller's last stamp, which
// only feeds the wait message.
type slot struct {
	userID   string
	column   string
	interval time.Duration
	last     *time.Time
	action   string
}

// throttled claims s and runs write in the same transaction. A failed write
// rolls the claim back, so it does not cost the user an interval.
func throttled(conn *gorm.DB, s slot, now time.Time, write func(tx *gorm.DB) error) error {
	return conn.Transaction(func(tx *gorm.DB) error {
		ok, err := claimSlot(tx, s.userID, s.column, s.interval, now)
		if err != nil {
			return err
		}
		if !ok {
			return apperr.RateLimited(waitMessage(s.last, s.interval, now, s.action))
		}
		return write(tx)
	})
}

// remaining is how long until last+interval, never negative.
func remaining(last *time.Time, interval time.Duration, now time.Time) time.Duration {
	if last == nil {
		return 0
	}
	d := last.Add(interval).Sub(now)
	if d < 0 {
		return 0
	}
	return d
}

func waitMessage(last *time.Time, interval time.Duration, now time.Time, action string) string {
	secs := int(remaining(last, interval, now).Round(time.Second) / time.Second)
	if secs < 1 {
		secs = 1
	}
	unit := "seconds"
	if secs == 1 {
		unit = "second"
	}
	return fmt.Sprintf("Please wait %d %s before %s", secs, unit, action)
}
