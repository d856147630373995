package model

import (
	"time"
)

// User roles
const (
	RoleDonor    = "donor"
	RoleHospital = "hospital"
	RoleAdmin    = "admin"
)

// BloodGroups lists the eight ABO/Rh types accepted everywhere a blood group
// is validated.
var BloodGroups = []string{"A+", "A-", "B+", "B-", "AB+", "AB-", "O+", "O-"}

// ValidBloodGroup reports whether g is one of the eight ABO/Rh types.
func ValidBloodGroup(g string) bool {
	for _, b := range BloodGroups {
		if g == b {
			return true
		}
	}
	return false
}

// User represents a donor, hospital, or admin account
type User struct {
	ID             string     `json:"id" db:"id"`
	Name           string     `json:"name" db:"name"`
	Email          string     `json:"email" db:"email"`
	PasswordHash   string     `json:"-" db:"password_hash"`
	Role           string     `json:"role" db:"role"`
	BloodGroup     string     `json:"blood_group,omitempty" db:"blood_group"`
	City           string     `json:"city,omitempty" db:"city"`
	Phone          string     `json:"phone,omitempty" db:"phone"`
	LastDonationAt *time.Time `json:"last_donation_at,omitempty" db:"last_donation_at"`
	DonationCount  int        `json:"donation_count" db:"donation_count"`
	TransferCount  int        `json:"transfer_count" db:"transfer_count"`
	CreatedAt      time.Time  `json:"created_at" db:"created_at"`
}

// Eligible reports whether the user may donate again: at least minDays have
// passed since their last completed donation. Users with no recorded donation
// are always eligible.
func (u *User) Eligible(now time.Time, minDays int) bool {
	if u.LastDonationAt == nil {
		return true
	}
	return now.Sub(*u.LastDonationAt) >= time.Duration(minDays)*24*time.Hour
}

// UserRegister represents data for creating a new account
type UserRegister struct {
	Name       string `json:"name" binding:"required"`
	Email      string `json:"email" binding:"required,email"`
	Password   string `json:"password" binding:"required,min=8"`
	Role       string `json:"role" binding:"required,oneof=donor hospital"`
	BloodGroup string `json:"blood_group" binding:"omitempty,bloodgroup"`
	City       string `json:"city"`
	Phone      string `json:"phone"`
}

// UserLogin represents login credentials
type UserLogin struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// AuthResponse is returned on successful register/login
type AuthResponse struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

// DonorSearchResult is one row of an eligibility search
type DonorSearchResult struct {
	ID             string     `json:"id" db:"id"`
	Name           string     `json:"name" db:"name"`
	BloodGroup     string     `json:"blood_group" db:"blood_group"`
	City           string     `json:"city" db:"city"`
	Phone          string     `json:"phone,omitempty" db:"phone"`
	LastDonationAt *time.Time `json:"last_donation_at,omitempty" db:"last_donation_at"`
	DonationCount  int        `json:"donation_count" db:"donation_count"`
}
