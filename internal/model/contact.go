package model

// ContactRequest is the POST /contact payload. Token is the CAPTCHA
// response token issued to the client by the challenge widget.
type ContactRequest struct {
	Name    string `json:"name" binding:"required"`
	Email   string `json:"email" binding:"required,email"`
	Phone   string `json:"phone"`
	Message string `json:"message" binding:"required"`
	Token   string `json:"token"`
}
