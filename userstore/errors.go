package userstore

import "fmt"

type (
	UserNotFound struct {
		ID    int64
		Email string
	}

	ScopeNotFound struct {
		Code string
	}

	ReadOnly struct{}

	InvalidEmail struct {
		Email string
	}
)

func (u UserNotFound) Error() string {
	if u.Email != "" {
		return fmt.Sprintf("user %v not found", u.Email)
	}
	return fmt.Sprintf("user %v not found", u.ID)
}

func (s ScopeNotFound) Error() string {
	return fmt.Sprintf("scope %v not found", s.Code)
}

func (ReadOnly) Error() string {
	return "user store was opened as read-only"
}

func (i InvalidEmail) Error() string {
	return fmt.Sprintf("%q is not a valid email", i.Email)
}
