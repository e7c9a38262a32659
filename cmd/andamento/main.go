package main

import (
	"log"

	"github.com/andamento/andamento/internal/app"
)

func main() {
	if err := app.New().Run(); err != nil {
		log.Fatalf("andamento failed to start: %v", err)
	}
}
