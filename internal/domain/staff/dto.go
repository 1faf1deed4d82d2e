package staff

type LoginRequest struct {
	Phone string `json:"phone" validate:"required"`
	Pin   string `json:"pin" validate:"required,min=4,max=12"`
}

type RegisterRequest struct {
	Name    string `json:"name" validate:"required,max=128"`
	Phone   string `json:"phone" validate:"required,max=32"`
	Pin     string `json:"pin" validate:"required,numeric,min=4,max=12"`
	Role    string `json:"role" validate:"omitempty,oneof=staff admin"`
	StoreID string `json:"store_id" validate:"omitempty,max=36"`
}
