package repositories

import "pouch/internal/models"

// UserRepository stores accounts. The ledger only reads id and username for
// recipient resolution and display; mutation belongs to the auth service.
type UserRepository interface {
	Create(user *models.User) error
	GetByID(id uint) (*models.User, error)
	GetByUsername(username string) (*models.User, error)
	Update(user *models.User) error
	List() ([]models.User, error)
}
