package main

import (
	"github.com/MeKo-Tech/marksheet/cmd/marksheet/cmd"

	// Registers the local Tesseract recognizer backend.
	_ "github.com/MeKo-Tech/marksheet/internal/recognizer/tesseract"
)

func main() {
	cmd.Execute()
}
