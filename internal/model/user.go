package model

import "time"

type User struct {
	ID           uint      `gorm:"primaryKey"`
	Username     string    `gorm:"column:username;size:50;not null"`
	Email        string    `gorm:"column:email;size:250;uniqueIndex;not null"`
	Password     string    `gorm:"column:password;size:255;not null"`
	CreatedAt    time.Time `gorm:"column:created_at"`
	Avatar       *string   `gorm:"column:avatar;size:255"`
	RefreshToken *string   `gorm:"column:refresh_token;size:512"`
	Confirmed    bool      `gorm:"column:confirmed;default:false;not null"`
}
