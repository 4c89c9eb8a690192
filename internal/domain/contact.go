package domain

import "time"

// Contact is an addressable recipient with profile fields, owned by one account.
// Optional fields are empty strings when absent.
type Contact struct {
	ID          string    `json:"id" db:"id"`
	OwnerID     string    `json:"owner_id" db:"owner_id"`
	Email       string    `json:"email" db:"email"`
	Company     string    `json:"company" db:"company"`
	FullName    string    `json:"fullName" db:"full_name"`
	WorkPhone   string    `json:"workPhone,omitempty" db:"work_phone"`
	MobilePhone string    `json:"mobilePhone,omitempty" db:"mobile_phone"`
	Role        string    `json:"role,omitempty" db:"role"`
	Address     string    `json:"address,omitempty" db:"address"`
	City        string    `json:"city,omitempty" db:"city"`
	State       string    `json:"state,omitempty" db:"state"`
	Zip         string    `json:"zip,omitempty" db:"zip"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}
