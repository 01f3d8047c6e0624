package repository

// Factory describes access to different domain repositories.
type Factory interface {
	Users() UserRepository
	Purchases() PurchaseRepository
	PromoCodes() PromoCodeRepository
	Catalog() CatalogRepository
	OrderCounters() OrderCounterRepository
}
