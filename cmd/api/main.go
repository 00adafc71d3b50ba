package main

import (
	"go.uber.org/fx"

	"github.com/sugarline/bakehouse/internal/app"
)

func main() {
	fx.New(app.Module).Run()
}
