package main

import (
	"slowdown-service/app"
)

func main() {
	app.Run()
}
