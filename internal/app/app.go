package app

import (
	"go.uber.org/fx"

	"github.com/sugarline/bakehouse/internal/cache"
	"github.com/sugarline/bakehouse/internal/config"
	"github.com/sugarline/bakehouse/internal/database"
	"github.com/sugarline/bakehouse/internal/deposit"
	"github.com/sugarline/bakehouse/internal/logger"
	"github.com/sugarline/bakehouse/internal/messaging"
	"github.com/sugarline/bakehouse/internal/observability"
	"github.com/sugarline/bakehouse/internal/pricing"
	repositoryledger "github.com/sugarline/bakehouse/internal/repository/ledger"
	repositoryorder "github.com/sugarline/bakehouse/internal/repository/order"
	"github.com/sugarline/bakehouse/internal/scheduling"
	grpcserver "github.com/sugarline/bakehouse/internal/server/grpc"
	httpserver "github.com/sugarline/bakehouse/internal/server/http"
	serviceledger "github.com/sugarline/bakehouse/internal/service/ledger"
	serviceorder "github.com/sugarline/bakehouse/internal/service/order"
	transporthttp "github.com/sugarline/bakehouse/internal/transport/http"
	"github.com/sugarline/bakehouse/internal/worker"
	workerorder "github.com/sugarline/bakehouse/internal/worker/order"
)

// Core provides the foundational modules shared across executables.
var Core = fx.Options(
	config.Module,
	cache.Module,
	database.Module,
	logger.Module,
	messaging.Module,
	observability.Module,
	pricing.Module,
	scheduling.Module,
	deposit.Module,
	repositoryorder.Module,
	repositoryledger.Module,
	serviceorder.Module,
	serviceledger.Module,
)

// HTTP wires the HTTP transport on top of the core modules.
var HTTP = fx.Options(
	Core,
	httpserver.Module,
	transporthttp.Module,
)

// GRPC wires the gRPC server on top of the core modules.
var GRPC = fx.Options(
	Core,
	grpcserver.Module,
)

// Worker exposes background worker processing.
var Worker = fx.Options(
	Core,
	worker.Module,
	workerorder.Module,
)

// Module is the default application wiring (HTTP only).
var Module = HTTP
