// Package main WikiChat API Server
//
//	@title			WikiChat API
//	@version		1.0
//	@description	A chat API that answers questions about anything from Wikipedia using retrieval-augmented generation
//	@termsOfService	http://swagger.io/terms/
//
//	@contact.name	API Support
//	@contact.url	http://www.swagger.io/support
//	@contact.email	support@swagger.io
//
//	@license.name	Apache 2.0
//	@license.url	http://www.apache.org/licenses/LICENSE-2.0.html
//
//	@host		localhost:8080
//	@BasePath	/
//
//	@externalDocs.description	OpenAPI
//	@externalDocs.url			https://swagger.io/resources/open-api/
package main

import (
	"log"

	"github.com/joho/godotenv"

	_ "wikichat/docs" // This imports the docs package to initialize swagger
	"wikichat/internal/config"
	"wikichat/internal/server"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := config.Load()

	log.Println("Starting WikiChat server...")
	srv := server.NewServer(cfg)
	if err := srv.ListenAndServe(); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
