package domain

// ProductSnapshot is the slice of the catalog the order path needs: the name
// and pricing captured onto an order line at creation time.
type ProductSnapshot struct {
	ID       int
	Name     string
	Price    float64
	Discount float64
	IsActive bool
}
