package model

import "time"

// BrokerCredential holds a user's broker API keypair. The secret arrives
// already encrypted; decryption is handled by the credential resolver, not
// this model.
type BrokerCredential struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	UserID          uint      `gorm:"not null;uniqueIndex" json:"user_id"`
	APIKey          string    `gorm:"not null" json:"api_key"`
	EncryptedSecret string    `gorm:"not null" json:"-"`
	IsActive        bool      `gorm:"default:true" json:"is_active"`
	CreatedAt       time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time `gorm:"autoUpdateTime" json:"updated_at"`

	User User `gorm:"foreignKey:UserID;references:ID"`
}

func (BrokerCredential) TableName() string {
	return "broker_credentials"
}
