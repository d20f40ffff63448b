package main

import (
	"os"

	"github.com/joho/godotenv"

	"github.com/Dimple-Kanwar/SafeStake.AI/internal/app"
)

func main() {
	_ = godotenv.Load()
	runner := app.NewRunner()
	os.Exit(runner.Run(os.Args[1:]))
}
