package main

import (
	"log"
	"net/http"
	"os"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"

	"geopoint/database"
	"geopoint/handlers"
	"geopoint/mail"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = "8010"
	}

	avatarDir := os.Getenv("AVATAR_DIR")
	if avatarDir == "" {
		avatarDir = "./static/avatars"
	}

	if err := database.Initialize(); err != nil {
		log.Fatalf("Database initialization failed: %v", err)
	}

	server := handlers.NewServer(mail.NewSMTPSenderFromEnv())

	r := mux.NewRouter()
	r.HandleFunc("/ws", server.HandleWebSocket)
	r.PathPrefix("/static/avatars/").Handler(
		http.StripPrefix("/static/avatars/", http.FileServer(http.Dir(avatarDir))))

	log.Printf("Geopoint server starting on :%s", port)
	if err := http.ListenAndServe(":"+port, r); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}
