package models

import "time"

// Material is a link shared with an offering's members.
type Material struct {
	ID         int64     `db:"id" json:"id"`
	OfferingID int64     `db:"offering_id" json:"offering_id"`
	Title      string    `db:"title" json:"title"`
	URL        string    `db:"url" json:"url"`
	UploadedBy int64     `db:"uploaded_by" json:"uploaded_by"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// CreateMaterialRequest shares a new material.
type CreateMaterialRequest struct {
	OfferingID int64  `json:"offering_id" validate:"required,gt=0"`
	Title      string `json:"title" validate:"required,max=200"`
	URL        string `json:"url" validate:"required,url,max=2048"`
}
