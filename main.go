package main

import (
	"context"
	"os"

	"github.com/joho/godotenv"
)

func main() {
	// A missing .env is fine; ENCRYPTION_KEY may come from the environment.
	_ = godotenv.Load()

	os.Exit(newApp(os.Stdin, os.Stdout, os.Stderr).run(context.Background(), os.Args))
}
