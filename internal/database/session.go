package database

import (
	"relaychat/internal/models"
)

func (d *Database) SaveSession(session *models.UserSession) error {
	return d.db.Create(session).Error
}

func (d *Database) FindSessionByToken(token string) (*models.UserSession, error) {
	var session models.UserSession
	if err := d.db.Where("token = ?", token).First(&session).Error; err != nil {
		return nil, err
	}
	return &session, nil
}

func (d *Database) DeleteSession(token string) error {
	return d.db.Where("token = ?", token).Delete(&models.UserSession{}).Error
}
