package dtos

type InquiryRequest struct {
	Email   string `json:"email" form:"email" binding:"required,email,max=254"`
	Message string `json:"message" form:"message" binding:"required,max=5000"`
}
