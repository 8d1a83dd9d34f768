package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"

	"github.com/jwebster45206/pale-notes/internal/config"
	"github.com/jwebster45206/pale-notes/internal/logger"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "Failed to load .env: %v\n", err)
		os.Exit(1)
	}
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	log := logger.Setup(cfg, os.Stderr)

	filename := cfg.StoryData
	if len(os.Args) > 1 {
		filename = os.Args[1]
	}

	validator := NewCatalogValidator(log)
	if err := validator.ValidateFile(filename); err != nil {
		fmt.Fprintf(os.Stderr, "Validation failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("Catalog file is valid!")
}
