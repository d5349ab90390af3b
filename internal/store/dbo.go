package store

import (
	"database/sql"
	"time"

	"github.com/datallboy/jarview/internal/domain"
)

// requestDBO maps to the requests table
type requestDBO struct {
	ID         string         `db:"id"`
	URL        string         `db:"url"`
	Mode       string         `db:"mode"`
	Status     string         `db:"status"`
	ErrorCode  int            `db:"error_code"`
	Error      sql.NullString `db:"error"`
	Bytes      int64          `db:"bytes"`
	Redirect   sql.NullString `db:"redirect"`
	CreatedAt  int64          `db:"created_at"`
	FinishedAt int64          `db:"finished_at"`
}

// Mapper: DBO to Domain RequestRecord
func (r *requestDBO) ToDomain() *domain.RequestRecord {
	rec := &domain.RequestRecord{
		ID:        r.ID,
		URL:       r.URL,
		Mode:      r.Mode,
		Status:    domain.RequestStatus(r.Status),
		ErrorCode: domain.ErrorCode(r.ErrorCode),
		Error:     r.Error.String,
		Bytes:     r.Bytes,
		Redirect:  r.Redirect.String,
		CreatedAt: time.UnixMilli(r.CreatedAt),
	}
	if r.FinishedAt != 0 {
		rec.FinishedAt = time.UnixMilli(r.FinishedAt)
	}
	return rec
}

// Mapper: Domain RequestRecord to DBO
func (r *requestDBO) FromDomain(rec *domain.RequestRecord) {
	r.ID = rec.ID
	r.URL = rec.URL
	r.Mode = rec.Mode
	r.Status = string(rec.Status)
	r.ErrorCode = int(rec.ErrorCode)
	r.Error = sql.NullString{String: rec.Error, Valid: rec.Error != ""}
	r.Bytes = rec.Bytes
	r.Redirect = sql.NullString{String: rec.Redirect, Valid: rec.Redirect != ""}
	r.CreatedAt = rec.CreatedAt.UnixMilli()

	if !rec.FinishedAt.IsZero() {
		r.FinishedAt = rec.FinishedAt.UnixMilli()
	} else {
		r.FinishedAt = 0
	}
}
