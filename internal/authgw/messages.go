package authgw

import (
	"regexp"
	"strings"

	"nusantaraedu/gateway/internal/backend"
)

var npsnPattern = regexp.MustCompile(`^[0-9]{8}$`)

func validateRegisterInput(input RegisterInput) error {
	missing := input.Username == "" || input.Email == "" || input.Password == "" || input.FullName == ""
	if missing {
		return &backend.Error{
			Code:    backend.CodeValidation,
			Message: "Semua kolom wajib diisi.",
		}
	}
	if !npsnPattern.MatchString(input.NPSN) {
		return &backend.Error{
			Code:    backend.CodeValidation,
			Message: "NPSN harus terdiri dari 8 digit angka.",
			Details: []backend.FieldError{{Field: "npsn", Message: "NPSN harus terdiri dari 8 digit angka."}},
		}
	}
	return nil
}

func refineLoginError(err error) error {
	apiErr := backend.AsError(err)
	if apiErr == nil {
		return err
	}
	if apiErr.Code == backend.CodeUnauthorized {
		return &backend.Error{
			Code:    apiErr.Code,
			Status:  apiErr.Status,
			Message: "Username atau password salah. Silakan coba lagi.",
		}
	}
	return apiErr
}

// refineRegisterError narrows duplicate-registration failures to the field
// that collided. The backend gives no structured field for this, so after
// the 409 check it falls back to substring inspection of the server message.
func refineRegisterError(err error) error {
	apiErr := backend.AsError(err)
	if apiErr == nil {
		return err
	}
	if apiErr.Code != backend.CodeConflict && apiErr.Code != backend.CodeValidation {
		return apiErr
	}

	message := strings.ToLower(apiErr.Message)
	refined := ""
	switch {
	case strings.Contains(message, "username"):
		refined = "Username sudah digunakan. Silakan pilih username lain."
	case strings.Contains(message, "email"):
		refined = "Email sudah terdaftar. Gunakan email lain atau masuk dengan akun Anda."
	case strings.Contains(message, "npsn"):
		refined = "NPSN sudah terdaftar untuk kepala sekolah lain."
	}
	if refined == "" {
		return apiErr
	}
	return &backend.Error{
		Code:    apiErr.Code,
		Status:  apiErr.Status,
		Message: refined,
		Details: apiErr.Details,
	}
}
