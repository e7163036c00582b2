package main

import (
	"github.com/josephgoksu/concierge/cmd"
	"github.com/josephgoksu/concierge/internal/logger"
)

func main() {
	defer logger.HandlePanic()
	cmd.Execute()
}
