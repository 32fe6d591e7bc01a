package main

import "smatact/go_backend/internal/app"

func main() {
	app.Run()
}
