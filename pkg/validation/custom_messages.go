package validation

// CustomMessage returns field specific messages keyed by validation tag.
func CustomMessage(field string) map[string]string {
	var customValidationMessages = map[string]map[string]string{
		"email": {
			"required": "email is required",
			"email":    "email is not a valid email address",
		},
		"username": {
			"required": "username is required",
			"min":      "username must be at least 5 characters",
			"max":      "username must be at most 16 characters",
		},
		"password": {
			"required": "password is required",
			"min":      "password must be at least 6 characters",
			"max":      "password must be at most 10 characters",
		},
		"birthday": {
			"required": "birthday is required",
			"datetime": "birthday must be a date in YYYY-MM-DD format",
		},
	}
	return customValidationMessages[field]
}
