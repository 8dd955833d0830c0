package utils

import (
	"log"
	"os"
)

// InitLogger initializes the application logger.
func InitLogger() *log.Logger {
	return log.New(os.Stdout, "[LearnSphere] ", log.LstdFlags|log.LUTC)
}
