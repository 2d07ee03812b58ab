package database

import (
	"strings"

	"github.com/google/uuid"

	"relaychat/internal/models"
)

func (d *Database) SaveUser(user *models.User) error {
	return d.db.Create(user).Error
}

func (d *Database) UpdateUser(user *models.User) error {
	return d.db.Save(user).Error
}

func (d *Database) GetUser(id uuid.UUID) (*models.User, error) {
	user := models.User{}
	if err := d.db.First(&user, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (d *Database) FindUserByEmail(email string) (*models.User, error) {
	user := models.User{}
	if err := d.db.Where("email = ?", email).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// SearchUsersByName matches display names case-insensitively, excluding
// the searching user.
func (d *Database) SearchUsersByName(query string, excludeID uuid.UUID, limit int) ([]models.User, error) {
	var users []models.User
	err := d.db.
		Where("id <> ?", excludeID).
		Where("LOWER(name) LIKE ?", "%"+strings.ToLower(query)+"%").
		Limit(limit).
		Find(&users).Error
	return users, err
}
