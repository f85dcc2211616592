package request

type PurchaseRequest struct {
	BookID        string `json:"book_id" validate:"required,uuid"`
	PaymentMethod string `json:"payment_method" validate:"required,max=50"`
}
