package main

import (
	"fmt"
	"log"
	"os"
	"strconv"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"workmesh/backend/internal/config"
	"workmesh/backend/internal/models"
	"workmesh/backend/internal/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	db, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{})
	if err != nil {
		log.Fatalf("failed to connect database: %v", err)
	}

	storageSvc := storage.NewStorageService(db, nil) // No redis needed for admin CLI

	if len(os.Args) < 2 {
		fmt.Println("Usage: admin <command> [args]")
		fmt.Println("Commands: deactivate-room <room_id> | link-telegram <user_id> <chat_id> | stats")
		os.Exit(1)
	}

	switch os.Args[1] {
	case "deactivate-room":
		if len(os.Args) != 3 {
			fmt.Println("Usage: admin deactivate-room <room_id>")
			os.Exit(1)
		}
		roomID := os.Args[2]
		if _, err := storageSvc.GetRoomByID(roomID); err != nil {
			log.Fatalf("Error: %v", err)
		}
		if err := storageSvc.DeactivateRoom(roomID); err != nil {
			log.Fatalf("Error deactivating room: %v", err)
		}
		fmt.Printf("Room %s has been deactivated.\n", roomID)

	case "link-telegram":
		if len(os.Args) != 4 {
			fmt.Println("Usage: admin link-telegram <user_id> <chat_id>")
			os.Exit(1)
		}
		chatID, err := strconv.ParseInt(os.Args[3], 10, 64)
		if err != nil {
			fmt.Println("Invalid chat id. Please provide an integer.")
			os.Exit(1)
		}
		contact := models.UserContact{UserID: os.Args[2], TelegramChatID: chatID}
		if err := db.Save(&contact).Error; err != nil {
			log.Fatalf("Error linking telegram contact: %v", err)
		}
		fmt.Printf("User %s linked to Telegram chat %d.\n", os.Args[2], chatID)

	case "stats":
		var rooms, active, messages int64
		db.Model(&models.Room{}).Count(&rooms)
		db.Model(&models.Room{}).Where("is_active = ?", true).Count(&active)
		db.Model(&models.Message{}).Count(&messages)
		fmt.Printf("Rooms: %d (%d active)\nMessages: %d\n", rooms, active, messages)

	default:
		fmt.Printf("Unknown command: %s\n", os.Args[1])
		os.Exit(1)
	}
}
