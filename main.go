/*
Copyright © 2025 Joseph Goksu josephgoksu@gmail.com
*/
package main

import (
	"github.com/josephgoksu/featuregraph/cmd"
	"github.com/josephgoksu/featuregraph/internal/logger"
)

func main() {
	defer logger.HandlePanic()
	cmd.Execute()
}
