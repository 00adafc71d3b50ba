package http

import (
	"go.uber.org/fx"

	ordertransport "github.com/sugarline/bakehouse/internal/transport/http/order"
	paymenttransport "github.com/sugarline/bakehouse/internal/transport/http/payment"
)

// Module aggregates all HTTP transport handlers.
var Module = fx.Options(
	ordertransport.Module,
	paymenttransport.Module,
)
