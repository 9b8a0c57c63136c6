package models

type User struct {
	ID        string `json:"id" db:"user_id"`
	Email     string `json:"email" db:"email"`
	FirstName string `json:"first_name,omitempty" db:"first_name"`
	LastName  string `json:"last_name,omitempty" db:"last_name"`
	Role      string `json:"role" db:"role"`
}
