package model

import "time"

// Role is set by the backend and only ever read here, for authorization
// decisions.
type Role string

const (
	RoleAdmin               Role = "admin"
	RolePrincipal           Role = "principal"
	RoleTeacher             Role = "teacher"
	RoleSchoolAdminStaff    Role = "school_admin_staff"
	RoleEducationDepartment Role = "education_department"
)

func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RolePrincipal, RoleTeacher, RoleSchoolAdminStaff, RoleEducationDepartment:
		return true
	default:
		return false
	}
}

type User struct {
	ID             int        `json:"id"`
	Username       string     `json:"username"`
	Email          string     `json:"email"`
	Role           Role       `json:"role"`
	FullName       string     `json:"fullName"`
	PhoneNumber    string     `json:"phoneNumber,omitempty"`
	ProfilePicture string     `json:"profilePicture,omitempty"`
	IsActive       bool       `json:"isActive"`
	LastLogin      *time.Time `json:"lastLogin,omitempty"`
	CreatedAt      time.Time  `json:"createdAt"`
}

// Structural check used for optimistic hydration: a stored user is trusted
// when it carries an id and a username; everything else is the backend's
// problem on the first authenticated call.
func (u *User) Structural() bool {
	return u != nil && u.ID > 0 && u.Username != ""
}

type School struct {
	ID            int    `json:"id"`
	NPSN          string `json:"npsn"`
	SchoolName    string `json:"schoolName"`
	FullAddress   string `json:"fullAddress"`
	Phone         string `json:"phone,omitempty"`
	Email         string `json:"email,omitempty"`
	Accreditation string `json:"accreditation,omitempty"`
	LogoURL       string `json:"logoUrl,omitempty"`
}
