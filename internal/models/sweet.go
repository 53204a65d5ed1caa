package models

// Sweet represents a single confectionery item in the shop's inventory.
// JSON field names follow the public API contract (camelCase).
type Sweet struct {
	ID          string  `json:"id" gorm:"primaryKey;type:varchar(36)" validate:"omitempty,uuid"`
	Name        string  `json:"name" gorm:"type:varchar(100)" validate:"required,max=100"`
	Category    string  `json:"category" gorm:"type:varchar(100)" validate:"required"`
	Price       float64 `json:"price" validate:"required,gt=0"`
	Quantity    int     `json:"quantity" validate:"gte=0"`
	ImageURL    string  `json:"imageUrl,omitempty" gorm:"column:image_url" validate:"omitempty,url"`
	Description string  `json:"description,omitempty" gorm:"type:varchar(500)" validate:"omitempty,max=500"`
	AdminID     string  `json:"adminId" gorm:"column:admin_id;type:varchar(36)"` // creator, set once
}
