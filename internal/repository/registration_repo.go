package repository

import (
	"context"

	"github.com/issb-portal/registration-service/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// StatusCount is one row of the per-status breakdown.
type StatusCount struct {
	Status models.RegistrationStatus `json:"status"`
	Count  int64                     `json:"count"`
}

// AttendanceSummary aggregates over completed check-in/check-out pairs.
type AttendanceSummary struct {
	Attendees          int64   `json:"attendees"`
	AverageStayMinutes float64 `json:"average_stay_minutes"`
}

// TrendPoint is the registration count for one calendar day.
type TrendPoint struct {
	Date  string `json:"date"`
	Count int64  `json:"count"`
}

type RegistrationRepository interface {
	Create(ctx context.Context, tx *gorm.DB, reg *models.Registration) error
	FindByID(ctx context.Context, id uint) (*models.Registration, error)
	FindByIDForUpdate(ctx context.Context, tx *gorm.DB, id uint) (*models.Registration, error)
	FindByEventID(ctx context.Context, eventID uint, status *models.RegistrationStatus) ([]models.Registration, error)
	FindByMemberID(ctx context.Context, memberID string) ([]models.Registration, error)
	FindActiveByMemberAndEvent(ctx context.Context, tx *gorm.DB, memberID string, eventID uint) (*models.Registration, error)
	FindFirstWaitlisted(ctx context.Context, tx *gorm.DB, eventID uint) (*models.Registration, error)
	PromoteWaitlisted(ctx context.Context, tx *gorm.DB, id uint) (int64, error)
	CountByStatus(ctx context.Context, db *gorm.DB, eventID uint, status models.RegistrationStatus) (int64, error)
	UpdateStatus(ctx context.Context, tx *gorm.DB, id uint, status models.RegistrationStatus) error
	UpdateAttendance(ctx context.Context, tx *gorm.DB, reg *models.Registration) error
	StatusCounts(ctx context.Context, eventID uint) ([]StatusCount, error)
	AttendanceStats(ctx context.Context, eventID uint) (*AttendanceSummary, error)
	RegistrationTrend(ctx context.Context, eventID uint) ([]TrendPoint, error)
	GetDB() *gorm.DB
}

type registrationRepository struct {
	db *gorm.DB
}

func NewRegistrationRepository(db *gorm.DB) RegistrationRepository {
	return &registrationRepository{db: db}
}

func (r *registrationRepository) GetDB() *gorm.DB {
	return r.db
}

func (r *registrationRepository) Create(ctx context.Context, tx *gorm.DB, reg *models.Registration) error {
	return tx.WithContext(ctx).Create(reg).Error
}

func (r *registrationRepository) FindByID(ctx context.Context, id uint) (*models.Registration, error) {
	var reg models.Registration
	if err := r.db.WithContext(ctx).First(&reg, id).Error; err != nil {
		return nil, err
	}
	return &reg, nil
}

// FindByIDForUpdate locks the registration row so concurrent status
// transitions on the same registration are serialized.
func (r *registrationRepository) FindByIDForUpdate(ctx context.Context, tx *gorm.DB, id uint) (*models.Registration, error) {
	var reg models.Registration
	if err := tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&reg, id).Error; err != nil {
		return nil, err
	}
	return &reg, nil
}

func (r *registrationRepository) FindByEventID(ctx context.Context, eventID uint, status *models.RegistrationStatus) ([]models.Registration, error) {
	var regs []models.Registration
	q := r.db.WithContext(ctx).Where("event_id = ?", eventID)
	if status != nil {
		q = q.Where("status = ?", *status)
	}
	if err := q.Order("submitted_at ASC, id ASC").Find(&regs).Error; err != nil {
		return nil, err
	}
	return regs, nil
}

func (r *registrationRepository) FindByMemberID(ctx context.Context, memberID string) ([]models.Registration, error) {
	var regs []models.Registration
	if err := r.db.WithContext(ctx).
		Preload("Event").
		Where("member_id = ?", memberID).
		Order("submitted_at DESC").
		Find(&regs).Error; err != nil {
		return nil, err
	}
	return regs, nil
}

func (r *registrationRepository) FindActiveByMemberAndEvent(ctx context.Context, tx *gorm.DB, memberID string, eventID uint) (*models.Registration, error) {
	var reg models.Registration
	err := tx.WithContext(ctx).
		Where("member_id = ? AND event_id = ? AND status <> ?", memberID, eventID, models.StatusCancelled).
		First(&reg).Error
	if err != nil {
		return nil, err
	}
	return &reg, nil
}

// FindFirstWaitlisted returns the promotion candidate: oldest submission
// first, serial id as the deterministic tie-break for equal timestamps.
func (r *registrationRepository) FindFirstWaitlisted(ctx context.Context, tx *gorm.DB, eventID uint) (*models.Registration, error) {
	var reg models.Registration
	err := tx.WithContext(ctx).
		Where("event_id = ? AND status = ?", eventID, models.StatusWaitlist).
		Order("submitted_at ASC, id ASC").
		First(&reg).Error
	if err != nil {
		return nil, err
	}
	return &reg, nil
}

// PromoteWaitlisted flips a waitlisted row to registered. The status guard
// makes the write a no-op when the row left the waitlist after the candidate
// read, so a concurrently committed terminal state is never overwritten; the
// caller re-picks on zero rows affected.
func (r *registrationRepository) PromoteWaitlisted(ctx context.Context, tx *gorm.DB, id uint) (int64, error) {
	res := tx.WithContext(ctx).
		Model(&models.Registration{}).
		Where("id = ? AND status = ?", id, models.StatusWaitlist).
		Update("status", models.StatusRegistered)
	return res.RowsAffected, res.Error
}

func (r *registrationRepository) CountByStatus(ctx context.Context, db *gorm.DB, eventID uint, status models.RegistrationStatus) (int64, error) {
	var count int64
	err := db.WithContext(ctx).
		Model(&models.Registration{}).
		Where("event_id = ? AND status = ?", eventID, status).
		Count(&count).Error
	return count, err
}

func (r *registrationRepository) UpdateStatus(ctx context.Context, tx *gorm.DB, id uint, status models.RegistrationStatus) error {
	return tx.WithContext(ctx).
		Model(&models.Registration{}).
		Where("id = ?", id).
		Update("status", status).Error
}

// UpdateAttendance persists status plus the attendance pair in one write.
func (r *registrationRepository) UpdateAttendance(ctx context.Context, tx *gorm.DB, reg *models.Registration) error {
	return tx.WithContext(ctx).
		Model(&models.Registration{}).
		Where("id = ?", reg.ID).
		Updates(map[string]any{
			"status":         reg.Status,
			"check_in_time":  reg.CheckInTime,
			"check_out_time": reg.CheckOutTime,
		}).Error
}

func (r *registrationRepository) StatusCounts(ctx context.Context, eventID uint) ([]StatusCount, error) {
	var counts []StatusCount
	err := r.db.WithContext(ctx).
		Model(&models.Registration{}).
		Select("status, COUNT(*) AS count").
		Where("event_id = ?", eventID).
		Group("status").
		Order("status").
		Scan(&counts).Error
	if err != nil {
		return nil, err
	}
	return counts, nil
}

func (r *registrationRepository) AttendanceStats(ctx context.Context, eventID uint) (*AttendanceSummary, error) {
	var summary AttendanceSummary
	err := r.db.WithContext(ctx).Raw(`
		SELECT COUNT(*) AS attendees,
		       COALESCE(AVG(EXTRACT(EPOCH FROM (check_out_time - check_in_time)) / 60), 0) AS average_stay_minutes
		FROM registrations
		WHERE event_id = ? AND check_in_time IS NOT NULL AND check_out_time IS NOT NULL`,
		eventID,
	).Scan(&summary).Error
	if err != nil {
		return nil, err
	}
	return &summary, nil
}

func (r *registrationRepository) RegistrationTrend(ctx context.Context, eventID uint) ([]TrendPoint, error) {
	var points []TrendPoint
	err := r.db.WithContext(ctx).Raw(`
		SELECT to_char(submitted_at, 'YYYY-MM-DD') AS date, COUNT(*) AS count
		FROM registrations
		WHERE event_id = ?
		GROUP BY 1
		ORDER BY 1`,
		eventID,
	).Scan(&points).Error
	if err != nil {
		return nil, err
	}
	return points, nil
}
