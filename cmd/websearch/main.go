package main

import (
	"os"

	"websearch/cmd/handlers"
	"websearch/internal/logger"
)

func main() {
	logger.Init()
	os.Exit(handlers.Execute())
}
