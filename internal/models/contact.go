package models

// UserContact maps a marketplace user id to an out-of-band notification
// address. Only Telegram is wired today; a row exists only for users that
// linked the bot.
type UserContact struct {
	UserID         string `gorm:"primaryKey"`
	TelegramChatID int64  `gorm:"uniqueIndex"`
}
