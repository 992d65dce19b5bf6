package dto

// ConfirmationMailJob is the payload handed to the mail worker.
type ConfirmationMailJob struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Host     string `json:"host"`
	Token    string `json:"token"`
}
