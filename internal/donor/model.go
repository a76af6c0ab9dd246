// File: internal/donor/model.go
package donor

import (
	"time"

	"github.com/google/uuid"

	"hemato_backend/internal/common"
)

// BloodGroups is the closed set of ABO/Rh types a donor record may carry.
var BloodGroups = []string{"A+", "A-", "B+", "B-", "O+", "O-", "AB+", "AB-"}

// IsValidBloodGroup reports whether bg is one of the eight ABO/Rh types.
func IsValidBloodGroup(bg string) bool {
	for _, g := range BloodGroups {
		if g == bg {
			return true
		}
	}
	return false
}

// Donor represents a directory entry describing a potential blood donor.
//
// Two creation paths produce the same entity with divergent lifecycles:
// anonymous registrations are born unverified with a one-time
// VerificationToken, self-registrations are born verified with OwnerUID set.
// VerificationToken is non-empty exactly while the record is pending.
type Donor struct {
	common.BaseModel
	Name              string  `gorm:"type:varchar(120);not null"`
	Email             string  `gorm:"type:varchar(255);not null;index"`
	BloodGroup        string  `gorm:"type:varchar(3);not null;index"`
	District          string  `gorm:"type:varchar(120);not null;index"`
	Gender            *string `gorm:"type:varchar(10)"`
	Age               *int
	DOB               *string `gorm:"column:dob;type:varchar(10)"`
	IsVerified        bool    `gorm:"not null;default:false"`
	VerificationToken string  `gorm:"type:varchar(64);index"`
	OwnerUID          *string `gorm:"column:owner_uid;type:varchar(128);index"`
}

// TableName specifies the table name for the Donor model.
func (Donor) TableName() string {
	return "donors"
}

// --- DTOs ---

// AddDonorRequest is the anonymous registration body (POST /donor/add).
// Presence of the required fields is checked by the handler so the endpoint
// keeps its published error shape.
type AddDonorRequest struct {
	Name       string `json:"name"`
	Email      string `json:"email"`
	BloodGroup string `json:"bloodGroup"`
	District   string `json:"district"`
	DOB        string `json:"dob"`
}

// CreateDonorRequest is the authenticated self-registration body. The donor
// email is taken from the session, never from the payload.
type CreateDonorRequest struct {
	Name       string `json:"name" binding:"required,max=120"`
	District   string `json:"district" binding:"required,max=120"`
	Gender     string `json:"gender" binding:"required,oneof=Male Female Other"`
	Age        int    `json:"age" binding:"required,min=1,max=120"`
	BloodGroup string `json:"bloodGroup" binding:"required,oneof=A+ A- B+ B- O+ O- AB+ AB-"`
}

// ContactRequestInput is the ephemeral contact request a seeker submits for a
// specific donor. It is consumed by a single mail hand-off and never stored.
type ContactRequestInput struct {
	Phone   string `json:"phone" binding:"required,max=20"`
	Message string `json:"message" binding:"required,max=2000"`
}

// DonorResponse defines the donor data sent in API responses. The
// verification token is a bearer credential and is never exposed.
type DonorResponse struct {
	ID         uuid.UUID `json:"id"`
	Name       string    `json:"name"`
	Email      string    `json:"email"`
	BloodGroup string    `json:"blood_group"`
	District   string    `json:"district"`
	Gender     *string   `json:"gender,omitempty"`
	Age        *int      `json:"age,omitempty"`
	DOB        *string   `json:"dob,omitempty"`
	IsVerified bool      `json:"is_verified"`
	CreatedAt  time.Time `json:"created_at"`
}

// ToDonorResponse converts a Donor model to a DonorResponse DTO.
func ToDonorResponse(d *Donor) DonorResponse {
	return DonorResponse{
		ID:         d.ID,
		Name:       d.Name,
		Email:      d.Email,
		BloodGroup: d.BloodGroup,
		District:   d.District,
		Gender:     d.Gender,
		Age:        d.Age,
		DOB:        d.DOB,
		IsVerified: d.IsVerified,
		CreatedAt:  d.CreatedAt,
	}
}
