package auth

import "fmt"

// Role is the closed set of account roles. Every user carries exactly one.
type Role string

const (
	RolePatient  Role = "PATIENT"
	RoleHospital Role = "HOSPITAL"
	RoleDoctor   Role = "DOCTOR"
	RoleAdmin    Role = "ADMIN"
)

// ParseRole validates a raw role string.
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RolePatient, RoleHospital, RoleDoctor, RoleAdmin:
		return Role(s), nil
	}
	return "", fmt.Errorf("unknown role %q", s)
}

func (r Role) String() string { return string(r) }

func (r Role) Valid() bool {
	_, err := ParseRole(string(r))
	return err == nil
}
