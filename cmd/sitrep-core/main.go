package main

//go:generate swag init --dir ../../ -g cmd/sitrep-core/main.go --output ../../docs

// @title           sitrep-core API
// @version         1.0
// @description     Persistence and review lifecycle for structured documents extracted from situation reports.

// @contact.name   Sitrep OSS
// @contact.url    https://github.com/custodia-labs/sitrep-core/issues

// @license.name  Apache 2.0
// @license.url   http://www.apache.org/licenses/LICENSE-2.0.html

// @host      localhost:8080
// @BasePath  /api/v1
// @schemes   http https

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description JWT Bearer token. Format: "Bearer {token}"

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/custodia-labs/sitrep-core/docs"
)

var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}
