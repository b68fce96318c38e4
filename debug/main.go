package main

import (
	"os"

	"github.com/toolsforexperiments/lab-dragon-sub000/internal/server"
)

func main() {
	httpPort := os.Getenv("HTTP_PORT")
	if httpPort == "" {
		httpPort = "8000"
	}

	err := server.Start(httpPort)
	if err != nil {
		return
	}
}
